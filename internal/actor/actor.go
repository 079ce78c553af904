// Package actor implements the node's supervised, typed, mailbox-driven
// runtime: bounded/unbounded queues, priority observation and kill-switch
// handling, progress-based liveness, and graceful termination.
package actor

import (
	"context"
	"sync"
	"time"
)

// Actor is a single-threaded (cooperatively scheduled) unit of state with a
// typed mailbox and a single handler for its message type M.
type Actor[M any] interface {
	// Initialize runs once before the first message is processed.
	Initialize(ctx context.Context) error
	// Process handles one mailbox message in arrival order.
	Process(ctx context.Context, msg M) error
	// ObservableState returns a pure snapshot; it must not block.
	ObservableState() any
	// Finalize runs exactly once after the run loop exits, for every
	// ExitStatus except a hard process abort.
	Finalize(status ExitStatus, ctx context.Context) error
	// Name identifies the actor in logs and observations.
	Name() string
	// Pool selects the cooperative executor pool this actor runs on.
	Pool() Pool
	// QueueCapacity selects the mailbox's backpressure policy.
	QueueCapacity() QueueCapacity
}

// HEARTBEAT is the default observation deadline.
const HEARTBEAT = time.Second

// Handle is a running actor: its mailbox, kill switch, progress counter,
// and exit-status future.
type Handle[M any] struct {
	name    string
	mailbox chan envelope[M]
	control chan controlMsg
	ks      *KillSwitch
	prog    *Progress

	mu       sync.Mutex
	lastSeen any // best-effort snapshot used for Timeout observations

	doneCh chan struct{}
	status ExitStatus
}

// Spawn starts actor a on rt, returning a Handle for sending messages,
// observing state, and awaiting termination. parent may be nil for a root
// actor; otherwise the actor's kill switch is a child of parent's.
func Spawn[M any](rt *Runtimes, a Actor[M], parent *KillSwitch) *Handle[M] {
	cap := a.QueueCapacity()
	h := &Handle[M]{
		name:    a.Name(),
		mailbox: make(chan envelope[M], cap.channelSize()),
		control: make(chan controlMsg, 8),
		doneCh:  make(chan struct{}),
	}
	if parent != nil {
		h.ks = parent.Child()
	} else {
		h.ks = NewKillSwitch()
	}
	h.prog = &Progress{}

	rt.Spawn(a.Pool(), func() {
		h.run(a)
	})
	return h
}

// KillSwitch returns this actor's kill switch, usable to create a child
// actor whose lifetime is bound to this one's.
func (h *Handle[M]) KillSwitch() *KillSwitch { return h.ks }

// Progress returns the actor's liveness counter.
func (h *Handle[M]) Progress() *Progress { return h.prog }

// Kill requests cooperative termination; the actor drains any
// already-received messages up to its next await point, then finalizes
// with ExitKilled.
func (h *Handle[M]) Kill() {
	h.ks.Kill()
	select {
	case h.control <- controlMsg{quit: true}:
	default:
	}
}

// Done returns a channel closed once the actor has finalized.
func (h *Handle[M]) Done() <-chan struct{} { return h.doneCh }

// ExitStatus blocks until the actor terminates and returns its status.
func (h *Handle[M]) ExitStatus() ExitStatus {
	<-h.doneCh
	return h.status
}

// Send enqueues msg. Bounded mailboxes apply backpressure by blocking the
// caller until space is available or the actor exits; an Unbounded mailbox
// is a 4096-slot buffer, so Send blocks there too once 4096 messages are
// queued.
func (h *Handle[M]) Send(ctx context.Context, msg M) error {
	select {
	case h.mailbox <- envelope[M]{msg: msg}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.doneCh:
		return errMailboxClosed
	}
}

// TrySend enqueues msg without blocking; returns false if the mailbox is
// full or the actor has exited.
func (h *Handle[M]) TrySend(msg M) bool {
	select {
	case h.mailbox <- envelope[M]{msg: msg}:
		return true
	default:
		return false
	}
}

// Ask sends msg and waits for the handler to Reply on the context it was
// given. R must match the type passed to Reply inside Process.
func Ask[M any, R any](ctx context.Context, h *Handle[M], msg M) (R, error) {
	var zero R
	reply := make(chan askResult, 1)
	env := envelope[M]{msg: msg, reply: reply}

	select {
	case h.mailbox <- env:
	case <-ctx.Done():
		return zero, &AskError{Kind: MessageNotDelivered, Err: ctx.Err()}
	case <-h.doneCh:
		return zero, &AskError{Kind: MessageNotDelivered, Err: errMailboxClosed}
	}

	select {
	case res, ok := <-reply:
		if !ok {
			return zero, &AskError{Kind: ProcessMessageError, Err: errMailboxClosed}
		}
		if res.err != nil {
			return zero, &AskError{Kind: ErrorReply, Err: res.err}
		}
		v, _ := res.value.(R)
		return v, nil
	case <-h.doneCh:
		return zero, &AskError{Kind: ProcessMessageError, Err: errMailboxClosed}
	case <-ctx.Done():
		return zero, &AskError{Kind: MessageNotDelivered, Err: ctx.Err()}
	}
}

// replyKey is the context key a handler uses to find its reply slot when
// responding to an Ask round-trip.
type replyKeyType struct{}

var replyKey replyKeyType

// Reply delivers v as the result of the in-flight Ask call that produced
// ctx. It is a no-op if ctx was not created by an Ask round-trip (a normal
// Send never carries a reply slot).
func Reply(ctx context.Context, v any) {
	if ch, ok := ctx.Value(replyKey).(chan askResult); ok {
		select {
		case ch <- askResult{value: v}:
		default:
		}
	}
}

// ReplyError delivers err as the result of the in-flight Ask call.
func ReplyError(ctx context.Context, err error) {
	if ch, ok := ctx.Value(replyKey).(chan askResult); ok {
		select {
		case ch <- askResult{err: err}:
		default:
		}
	}
}

// Observe requests a state snapshot under the HEARTBEAT deadline.
func Observe[M any](h *Handle[M]) Observation[any] {
	return ObserveTimeout(h, HEARTBEAT)
}

// ObserveTimeout is Observe with a caller-supplied deadline.
func ObserveTimeout[M any](h *Handle[M], deadline time.Duration) Observation[any] {
	reply := make(chan any, 1)
	req := controlMsg{observe: &observeRequest{reply: reply}}

	select {
	case h.control <- req:
	case <-h.doneCh:
		return Observation[any]{Kind: PostMortem, State: h.status}
	}

	select {
	case state := <-reply:
		return Observation[any]{Kind: Alive, State: state}
	case <-time.After(deadline):
		h.mu.Lock()
		last := h.lastSeen
		h.mu.Unlock()
		return Observation[any]{Kind: Timeout, State: last}
	case <-h.doneCh:
		return Observation[any]{Kind: PostMortem, State: h.status}
	}
}

// run is the actor's cooperative loop: drain control messages with
// priority, then the normal mailbox; recover panics into ExitPanicked;
// always run Finalize.
func (h *Handle[M]) run(a Actor[M]) {
	ctx := context.Background()
	status := h.loop(ctx, a)

	finalizeStatus := status
	func() {
		defer func() {
			if r := recover(); r != nil {
				finalizeStatus = Panicked(r)
			}
		}()
		_ = a.Finalize(finalizeStatus, ctx)
	}()

	h.status = finalizeStatus
	close(h.doneCh)
}

func (h *Handle[M]) loop(ctx context.Context, a Actor[M]) (status ExitStatus) {
	defer func() {
		if r := recover(); r != nil {
			status = Panicked(r)
		}
	}()

	if err := a.Initialize(ctx); err != nil {
		return Failure(err)
	}
	h.snapshot(a)

	for {
		// Priority channel drains first on every iteration.
		select {
		case ctrl := <-h.control:
			if done, st := h.handleControl(ctx, a, ctrl); done {
				return st
			}
			continue
		default:
		}

		if h.ks.IsDead() {
			h.drainOnKill(ctx, a)
			return Killed()
		}

		select {
		case ctrl := <-h.control:
			if done, st := h.handleControl(ctx, a, ctrl); done {
				return st
			}
		case env, ok := <-h.mailbox:
			if !ok {
				return DownstreamClosed()
			}
			if h.ks.IsDead() {
				if env.reply != nil {
					close(env.reply)
				}
				return Killed()
			}
			h.process(ctx, a, env)
		}
	}
}

// drainOnKill processes any messages already sitting in the mailbox at the
// moment Kill was observed, without blocking for new arrivals.
func (h *Handle[M]) drainOnKill(ctx context.Context, a Actor[M]) {
	for {
		select {
		case env, ok := <-h.mailbox:
			if !ok {
				return
			}
			h.process(ctx, a, env)
		default:
			return
		}
	}
}

func (h *Handle[M]) process(ctx context.Context, a Actor[M], env envelope[M]) {
	msgCtx := ctx
	if env.reply != nil {
		msgCtx = context.WithValue(ctx, replyKey, env.reply)
	}

	// A panic in Process propagates to loop's recover, which ends the actor
	// with ExitPanicked; Finalize still runs.
	err := a.Process(msgCtx, env.msg)

	h.prog.Record()
	h.snapshot(a)

	if env.reply != nil {
		select {
		case env.reply <- askResult{err: err}:
		default:
			// handler already replied via actor.Reply/ReplyError
		}
	}
}

func (h *Handle[M]) handleControl(ctx context.Context, a Actor[M], ctrl controlMsg) (done bool, status ExitStatus) {
	if ctrl.observe != nil {
		ctrl.observe.reply <- a.ObservableState()
		return false, ExitStatus{}
	}
	if ctrl.quit {
		// Kill sends quit after killing the switch: drain and exit Killed.
		if h.ks.IsDead() {
			h.drainOnKill(ctx, a)
			return true, Killed()
		}
		return true, Quit()
	}
	return false, ExitStatus{}
}

func (h *Handle[M]) snapshot(a Actor[M]) {
	h.mu.Lock()
	h.lastSeen = a.ObservableState()
	h.mu.Unlock()
}

type panicError struct{ recovered any }

func (e *panicError) Error() string { return Panicked(e.recovered).Err.Error() }
