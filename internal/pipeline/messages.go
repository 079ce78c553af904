package pipeline

// Msg is the mailbox message type for the Pipeline actor.
type Msg struct {
	Trigger         *TriggerMsg
	ControlLoop     *ControlLoopMsg
	Healthz         *HealthzMsg
	StopPipeline    *StopPipelineMsg
}

// TriggerMsg asks the pipeline to (re)start its run; RetryCount selects the
// backoff applied before the restart. Nothing in this package sends one: a
// run that fails is logged and is not restarted automatically.
type TriggerMsg struct {
	RetryCount int
}

// ControlLoopMsg is accepted and ignored: Process does nothing for it, and
// nothing in this package sends it.
type ControlLoopMsg struct{}

// HealthzMsg asks for an aggregated boolean health signal; reply carries
// bool via actor.Reply.
type HealthzMsg struct{}

// StopPipelineMsg cancels the current run, waits for it to return, then
// kills the actor, which drains its mailbox and exits Killed.
type StopPipelineMsg struct {
	PipelineID string
}
