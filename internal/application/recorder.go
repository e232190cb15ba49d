package application

import "time"

type Stage string

const (
	StageIntake     Stage = "intake"
	StageTranscribe Stage = "transcribe"
	StageEnhance    Stage = "enhance"
	StageReply      Stage = "reply"
)

type Outcome string

const (
	OutcomeFiltered            Outcome = "filtered"
	OutcomeIntakeFailed        Outcome = "intake_failed"
	OutcomeTranscriptionFailed Outcome = "transcription_failed"
	OutcomeRepliedEnhanced     Outcome = "replied_enhanced"
	OutcomeRepliedRaw          Outcome = "replied_raw"
	OutcomeReplyFailed         Outcome = "reply_failed"
	OutcomePanicked            Outcome = "panicked"
)

// Recorder receives pipeline measurements. Implementations must be safe for
// concurrent use.
type Recorder interface {
	RunStarted()
	RunFinished(outcome Outcome, elapsed time.Duration)
	ObserveStage(stage Stage, elapsed time.Duration, err error)
	TempFileCreated()
	TempFileReleased()
}

type NoopRecorder struct{}

func (NoopRecorder) RunStarted()                              {}
func (NoopRecorder) RunFinished(Outcome, time.Duration)       {}
func (NoopRecorder) ObserveStage(Stage, time.Duration, error) {}
func (NoopRecorder) TempFileCreated()                         {}
func (NoopRecorder) TempFileReleased()                        {}
