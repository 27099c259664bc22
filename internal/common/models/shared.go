package models

import (
	"time"
)

type ContextKey string

type Log struct {
	AppId        string    `bson:"app_id" json:"app_id"`
	Message      string    `bson:"message" json:"message"`
	ReportID     string    `bson:"report_id,omitempty" json:"report_id,omitempty"`
	ExecutionID  string    `bson:"execution_id,omitempty" json:"execution_id,omitempty"`
	Caller       string    `bson:"caller,omitempty" json:"caller,omitempty"`
	LogLevelId   int       `bson:"log_level_id" json:"log_level_id"`
	CreatedOnUtc time.Time `bson:"created_on_utc" json:"created_on_utc"`
}

// Recipient is one entry of a distribution list
type Recipient struct {
	Name  string `json:"name" bson:"name"`
	Email string `json:"email" bson:"email"`
}
