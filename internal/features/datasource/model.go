package datasource

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DataSourceType string

const (
	DataSourceTypePostgreSQL DataSourceType = "postgresql"
	DataSourceTypeMySQL      DataSourceType = "mysql"
)

type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusError        ConnectionStatus = "error"
)

// DataSource represents an external database connection configuration
type DataSource struct {
	ID   primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name string             `json:"name" bson:"name"`
	Type DataSourceType     `json:"type" bson:"type"`

	// Connection details
	Host     string `json:"host" bson:"host"`
	Port     int    `json:"port" bson:"port"`
	Database string `json:"database" bson:"database"`
	Username string `json:"username" bson:"username"`
	Password string `json:"-" bson:"password"`

	// Additional connection options
	Options map[string]interface{} `json:"options,omitempty" bson:"options,omitempty"`

	// Status
	IsActive         bool             `json:"is_active" bson:"is_active"`
	ConnectionStatus ConnectionStatus `json:"connection_status" bson:"connection_status"`
	LastTested       *time.Time       `json:"last_tested,omitempty" bson:"last_tested,omitempty"`

	CreatedBy primitive.ObjectID `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// RelationshipSuggestion is a candidate join between two tables, derived from
// foreign keys (high confidence) or column naming patterns (medium confidence)
type RelationshipSuggestion struct {
	SourceTable  string `json:"source_table"`
	TargetTable  string `json:"target_table"`
	SourceColumn string `json:"source_column"`
	TargetColumn string `json:"target_column"`
	JoinType     string `json:"join_type"`
	Confidence   string `json:"confidence"` // high, medium
	Reason       string `json:"reason"`     // foreign_key, naming_pattern
}

func (ds *DataSource) connectorConfig() map[string]interface{} {
	config := map[string]interface{}{
		"host":     ds.Host,
		"port":     ds.Port,
		"database": ds.Database,
		"username": ds.Username,
		"password": ds.Password,
	}
	for k, v := range ds.Options {
		config[k] = v
	}
	return config
}
