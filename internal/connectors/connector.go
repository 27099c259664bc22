package connectors

import (
	"context"
	"time"
)

// QueryResult represents the outcome of a report query
type QueryResult struct {
	Columns   []string
	Rows      []map[string]interface{}
	RowCount  int64
	Timestamp time.Time
}

// ColumnInfo represents column metadata
type ColumnInfo struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Label      string `json:"label"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primary_key"`
}

// ForeignKey represents a foreign key constraint
type ForeignKey struct {
	Column         string `json:"column"`
	ReferredTable  string `json:"referred_table"`
	ReferredColumn string `json:"referred_column"`
	Name           string `json:"name"`
}

// TableSchema represents one table of a data source
type TableSchema struct {
	Name        string       `json:"name"`
	Columns     []ColumnInfo `json:"columns"`
	ForeignKeys []ForeignKey `json:"foreign_keys"`
}

// SchemaInfo represents the full schema of a data source
type SchemaInfo struct {
	Tables []TableSchema `json:"tables"`
}

// Connector interface for all external data sources
type Connector interface {
	// Connect establishes connection to data source
	Connect(ctx context.Context, config map[string]interface{}) error

	// Disconnect closes connection
	Disconnect(ctx context.Context) error

	// Execute runs a compiled query with named parameters and returns results
	Execute(ctx context.Context, query string, params map[string]interface{}) (*QueryResult, error)

	// GetSchema returns schema information for every table of the data source
	GetSchema(ctx context.Context) (*SchemaInfo, error)

	// TestConnection tests if connection is valid
	TestConnection(ctx context.Context) error

	// GetType returns the connector type
	GetType() string
}
