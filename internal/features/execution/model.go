package execution

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status is the execution lifecycle state. Transitions are monotonic:
// pending -> running -> completed|failed|cancelled, with failed and
// cancelled also reachable straight from pending.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status can never change again
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

type EmailStatus string

const (
	EmailNotSent EmailStatus = ""
	EmailSent    EmailStatus = "sent"
	EmailFailed  EmailStatus = "failed"
)

// Execution is one run of a report, from queueing to its terminal state
type Execution struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ReportID primitive.ObjectID `json:"report_id" bson:"report_id"`

	Status  Status `json:"status" bson:"status"`
	Trigger string `json:"trigger" bson:"trigger"` // manual, scheduled, retry

	StartedAt   *time.Time `json:"started_at,omitempty" bson:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`

	// Artifact details, set on completion
	FilePath string `json:"file_path,omitempty" bson:"file_path,omitempty"`
	FileSize int64  `json:"file_size,omitempty" bson:"file_size,omitempty"`
	RowCount int    `json:"row_count,omitempty" bson:"row_count,omitempty"`

	// Delivery outcome; independent of the execution status
	EmailsSent  int         `json:"emails_sent" bson:"emails_sent"`
	EmailStatus EmailStatus `json:"email_status,omitempty" bson:"email_status,omitempty"`

	ErrorMessage string `json:"error_message,omitempty" bson:"error_message,omitempty"`
	RetryCount   int    `json:"retry_count" bson:"retry_count"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Duration is the wall-clock run time, zero until the run finishes
func (e *Execution) Duration() time.Duration {
	if e.StartedAt == nil || e.CompletedAt == nil {
		return 0
	}
	return e.CompletedAt.Sub(*e.StartedAt)
}
