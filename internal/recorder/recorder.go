package recorder

// Attempt records one scored quiz submission.
type Attempt struct {
	Asset string
	Score int
	Total int
}

// Recorder persists quiz attempts for later analysis.
type Recorder interface {
	RecordAttempt(a *Attempt) error
	Close() error
}
