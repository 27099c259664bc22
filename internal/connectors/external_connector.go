package connectors

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// ExternalDBConnector connects to external SQL databases
type ExternalDBConnector struct {
	dbType string // "postgresql" or "mysql"
	db     *sql.DB
}

// NewExternalDBConnector creates a new external database connector
func NewExternalDBConnector(dbType string) Connector {
	return &ExternalDBConnector{
		dbType: dbType,
	}
}

// Connect establishes connection to external database
func (c *ExternalDBConnector) Connect(ctx context.Context, config map[string]interface{}) error {
	connStr, err := c.buildConnectionString(config)
	if err != nil {
		return fmt.Errorf("failed to build connection string: %w", err)
	}

	driver := c.dbType
	if c.dbType == "postgresql" {
		driver = "postgres"
	}

	db, err := sql.Open(driver, connStr)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	// Test connection
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings; the pool is shared across concurrent executions
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	c.db = db
	return nil
}

// Disconnect closes the database connection
func (c *ExternalDBConnector) Disconnect(ctx context.Context) error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Execute runs a compiled query. The query text uses named parameters in the
// :name form; they are rebound to the dialect's positional placeholders here,
// so values are never interpolated into the SQL text.
func (c *ExternalDBConnector) Execute(ctx context.Context, query string, params map[string]interface{}) (*QueryResult, error) {
	if c.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	bound, args, err := c.rebindNamedParams(query, params)
	if err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx, bound, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	data, err := c.rowsToMaps(rows, columns)
	if err != nil {
		return nil, fmt.Errorf("failed to process query results: %w", err)
	}

	return &QueryResult{
		Columns:   columns,
		Rows:      data,
		RowCount:  int64(len(data)),
		Timestamp: time.Now(),
	}, nil
}

// GetSchema returns tables, columns and foreign keys of the connected database
func (c *ExternalDBConnector) GetSchema(ctx context.Context) (*SchemaInfo, error) {
	if c.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	tables, err := c.listTables(ctx)
	if err != nil {
		return nil, err
	}

	schema := &SchemaInfo{Tables: []TableSchema{}}
	for _, table := range tables {
		columns, err := c.tableColumns(ctx, table)
		if err != nil {
			return nil, err
		}
		fks, err := c.tableForeignKeys(ctx, table)
		if err != nil {
			// Foreign keys are advisory only; a failed lookup must not hide the table
			fks = []ForeignKey{}
		}
		schema.Tables = append(schema.Tables, TableSchema{
			Name:        table,
			Columns:     columns,
			ForeignKeys: fks,
		})
	}

	return schema, nil
}

// TestConnection tests if the database connection is valid
func (c *ExternalDBConnector) TestConnection(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database connection not established")
	}
	return c.db.PingContext(ctx)
}

// GetType returns the connector type
func (c *ExternalDBConnector) GetType() string {
	return c.dbType
}

// buildConnectionString creates a connection string from config
func (c *ExternalDBConnector) buildConnectionString(config map[string]interface{}) (string, error) {
	host, _ := config["host"].(string)
	port := toInt(config["port"])
	database, _ := config["database"].(string)
	username, _ := config["username"].(string)
	password, _ := config["password"].(string)

	if host == "" || database == "" || username == "" {
		return "", fmt.Errorf("missing required connection parameters")
	}

	if port == 0 {
		if c.dbType == "postgresql" {
			port = 5432
		} else {
			port = 3306
		}
	}

	if c.dbType == "postgresql" {
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			host, port, username, password, database,
		), nil
	}

	// MySQL
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%d)/%s?parseTime=true",
		username, password, host, port, database,
	), nil
}

// rebindNamedParams converts :name placeholders to the dialect's positional
// placeholders, collecting argument values in order of appearance.
func (c *ExternalDBConnector) rebindNamedParams(query string, params map[string]interface{}) (string, []interface{}, error) {
	var out strings.Builder
	var args []interface{}
	argIndex := 1

	runes := []rune(query)
	inQuote := false
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\'' {
			inQuote = !inQuote
			out.WriteRune(r)
			continue
		}
		if r == ':' && !inQuote {
			// Postgres cast operator "::" is not a parameter
			if i+1 < len(runes) && runes[i+1] == ':' {
				out.WriteString("::")
				i++
				continue
			}
			start := i + 1
			end := start
			for end < len(runes) && (unicode.IsLetter(runes[end]) || unicode.IsDigit(runes[end]) || runes[end] == '_') {
				end++
			}
			if end == start {
				out.WriteRune(r)
				continue
			}
			name := string(runes[start:end])
			value, ok := params[name]
			if !ok {
				return "", nil, fmt.Errorf("missing value for parameter %q", name)
			}
			out.WriteString(c.getPlaceholder(argIndex))
			args = append(args, value)
			argIndex++
			i = end - 1
			continue
		}
		out.WriteRune(r)
	}

	return out.String(), args, nil
}

// getPlaceholder returns the appropriate placeholder for the database type
func (c *ExternalDBConnector) getPlaceholder(index int) string {
	if c.dbType == "postgresql" {
		return fmt.Sprintf("$%d", index)
	}
	return "?"
}

func (c *ExternalDBConnector) listTables(ctx context.Context) ([]string, error) {
	var query string
	if c.dbType == "postgresql" {
		query = `
			SELECT table_name FROM information_schema.tables
			WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
			ORDER BY table_name
		`
	} else { // mysql
		query = `
			SELECT table_name FROM information_schema.tables
			WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
			ORDER BY table_name
		`
	}

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (c *ExternalDBConnector) tableColumns(ctx context.Context, table string) ([]ColumnInfo, error) {
	var query string
	if c.dbType == "postgresql" {
		query = `
			SELECT column_name, data_type, is_nullable
			FROM information_schema.columns
			WHERE table_name = $1
			ORDER BY ordinal_position
		`
	} else { // mysql
		query = `
			SELECT column_name, data_type, is_nullable
			FROM information_schema.columns
			WHERE table_name = ? AND table_schema = DATABASE()
			ORDER BY ordinal_position
		`
	}

	rows, err := c.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	defer rows.Close()

	columns := []ColumnInfo{}
	for rows.Next() {
		var columnName, dataType, isNullable string
		if err := rows.Scan(&columnName, &dataType, &isNullable); err != nil {
			return nil, fmt.Errorf("failed to scan schema row: %w", err)
		}
		columns = append(columns, ColumnInfo{
			Name:     columnName,
			Type:     dataType,
			Label:    columnName,
			Nullable: isNullable != "NO",
		})
	}
	return columns, rows.Err()
}

func (c *ExternalDBConnector) tableForeignKeys(ctx context.Context, table string) ([]ForeignKey, error) {
	var query string
	if c.dbType == "postgresql" {
		query = `
			SELECT kcu.column_name, ccu.table_name, ccu.column_name, tc.constraint_name
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
			JOIN information_schema.constraint_column_usage ccu
				ON tc.constraint_name = ccu.constraint_name
			WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_name = $1
		`
	} else { // mysql
		query = `
			SELECT column_name, referenced_table_name, referenced_column_name, constraint_name
			FROM information_schema.key_column_usage
			WHERE table_name = ? AND table_schema = DATABASE()
				AND referenced_table_name IS NOT NULL
		`
	}

	rows, err := c.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get foreign keys: %w", err)
	}
	defer rows.Close()

	fks := []ForeignKey{}
	for rows.Next() {
		var fk ForeignKey
		if err := rows.Scan(&fk.Column, &fk.ReferredTable, &fk.ReferredColumn, &fk.Name); err != nil {
			return nil, err
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

// rowsToMaps converts SQL rows to a slice of maps
func (c *ExternalDBConnector) rowsToMaps(rows *sql.Rows, columns []string) ([]map[string]interface{}, error) {
	result := []map[string]interface{}{}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{})
		for i, col := range columns {
			val := values[i]
			if b, ok := val.([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = val
			}
		}

		result = append(result, row)
	}

	return result, rows.Err()
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
