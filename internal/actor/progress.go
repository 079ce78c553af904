package actor

import "sync/atomic"

// Progress is a monotonic liveness counter. It increments whenever an actor
// does observable work and is read independently of mailbox activity:
// liveness is "progress increments or a protected zone is active", not
// "mailbox non-empty", since a correctly-running actor can be idle.
type Progress struct {
	counter atomic.Uint64
	zones   atomic.Int32
}

// Record increments the progress counter. Call once per handled message.
func (p *Progress) Record() {
	p.counter.Add(1)
}

// Value returns the current progress count.
func (p *Progress) Value() uint64 {
	return p.counter.Load()
}

// ProtectedZone marks the actor as "alive during long I/O" for the
// duration of the returned release function's lifetime. Call it in a
// defer so every exit path — success, error, or panic — releases the zone.
func (p *Progress) ProtectedZone() (release func()) {
	p.zones.Add(1)
	var released bool
	return func() {
		if released {
			return
		}
		released = true
		p.zones.Add(-1)
	}
}

// InProtectedZone reports whether the actor currently holds an open
// protected zone.
func (p *Progress) InProtectedZone() bool {
	return p.zones.Load() > 0
}
