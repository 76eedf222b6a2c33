package ledger

import "time"

// Entry tracks the payment history of one basket as observed on the event
// stream.
type Entry struct {
	BasketUID      string
	Status         string
	MethodID       string
	OrderID        string
	AmountInCents  int64
	Currency       string
	FailedAttempts int
	LastErrorKind  string
	CreatedAt      time.Time
	LastModified   *time.Time
}

const (
	statusStarted   = "started"
	statusCompleted = "completed"
	statusFailed    = "failed"
)
