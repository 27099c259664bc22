package datasource

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go-reports/internal/connectors"

	"go.uber.org/zap"
)

type DataSourceService interface {
	CreateDataSource(ctx context.Context, ds *DataSource) error
	GetDataSource(ctx context.Context, id string) (*DataSource, error)
	ListDataSources(ctx context.Context) ([]DataSource, error)
	UpdateDataSource(ctx context.Context, id string, ds *DataSource) error
	DeleteDataSource(ctx context.Context, id string) error
	TestDataSource(ctx context.Context, id string) error

	// Connection returns a ready connector for the data source, or an error
	// when the source is missing, inactive or unreachable. Callers treat a
	// failed checkout identically to a query failure.
	Connection(ctx context.Context, id string) (connectors.Connector, error)

	// SchemaInfo introspects the data source and augments the raw schema with
	// relationship suggestions for the report builder.
	SchemaInfo(ctx context.Context, id string) (*connectors.SchemaInfo, []RelationshipSuggestion, error)
}

type DataSourceServiceImpl struct {
	repo DataSourceRepository
	log  *zap.Logger

	// connector cache; checkout must be safe under concurrent executions
	mu         sync.Mutex
	connectors map[string]connectors.Connector
}

func NewDataSourceService(repo DataSourceRepository, log *zap.Logger) DataSourceService {
	return &DataSourceServiceImpl{
		repo:       repo,
		log:        log,
		connectors: make(map[string]connectors.Connector),
	}
}

func (s *DataSourceServiceImpl) CreateDataSource(ctx context.Context, ds *DataSource) error {
	if err := validateDataSource(ds); err != nil {
		return err
	}

	// Validate connection before creating an active source
	if ds.IsActive {
		connector, err := s.createConnector(ctx, ds)
		if err != nil {
			return fmt.Errorf("failed to create connector: %w", err)
		}
		defer connector.Disconnect(ctx)

		if err := connector.TestConnection(ctx); err != nil {
			return fmt.Errorf("connection test failed: %w", err)
		}
		ds.ConnectionStatus = StatusConnected
	}

	return s.repo.Create(ctx, ds)
}

func (s *DataSourceServiceImpl) GetDataSource(ctx context.Context, id string) (*DataSource, error) {
	return s.repo.Get(ctx, id)
}

func (s *DataSourceServiceImpl) ListDataSources(ctx context.Context) ([]DataSource, error) {
	return s.repo.List(ctx)
}

func (s *DataSourceServiceImpl) UpdateDataSource(ctx context.Context, id string, ds *DataSource) error {
	if err := validateDataSource(ds); err != nil {
		return err
	}

	err := s.repo.Update(ctx, id, ds)
	if err == nil {
		s.evictConnector(ctx, id)
	}
	return err
}

func (s *DataSourceServiceImpl) DeleteDataSource(ctx context.Context, id string) error {
	s.evictConnector(ctx, id)
	return s.repo.Delete(ctx, id)
}

func (s *DataSourceServiceImpl) TestDataSource(ctx context.Context, id string) error {
	ds, err := s.GetDataSource(ctx, id)
	if err != nil {
		return err
	}

	connector, err := s.getConnector(ctx, ds)
	if err != nil {
		s.repo.UpdateStatus(ctx, id, StatusError, time.Now())
		return err
	}

	if err := connector.TestConnection(ctx); err != nil {
		s.repo.UpdateStatus(ctx, id, StatusError, time.Now())
		return err
	}

	return s.repo.UpdateStatus(ctx, id, StatusConnected, time.Now())
}

func (s *DataSourceServiceImpl) Connection(ctx context.Context, id string) (connectors.Connector, error) {
	ds, err := s.GetDataSource(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("data source not found: %w", err)
	}

	if !ds.IsActive {
		return nil, fmt.Errorf("data source %s is not active", ds.Name)
	}

	return s.getConnector(ctx, ds)
}

func (s *DataSourceServiceImpl) SchemaInfo(ctx context.Context, id string) (*connectors.SchemaInfo, []RelationshipSuggestion, error) {
	connector, err := s.Connection(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	schema, err := connector.GetSchema(ctx)
	if err != nil {
		return nil, nil, err
	}

	return schema, suggestRelationships(schema), nil
}

// suggestRelationships derives candidate joins from foreign keys first, then
// from common id-column naming patterns between table pairs.
func suggestRelationships(schema *connectors.SchemaInfo) []RelationshipSuggestion {
	suggestions := []RelationshipSuggestion{}

	tableNames := make(map[string]bool, len(schema.Tables))
	columnsByTable := make(map[string]map[string]bool, len(schema.Tables))
	for _, t := range schema.Tables {
		tableNames[t.Name] = true
		cols := make(map[string]bool, len(t.Columns))
		for _, c := range t.Columns {
			cols[c.Name] = true
		}
		columnsByTable[t.Name] = cols
	}

	for _, t := range schema.Tables {
		for _, fk := range t.ForeignKeys {
			if !tableNames[fk.ReferredTable] {
				continue
			}
			suggestions = append(suggestions, RelationshipSuggestion{
				SourceTable:  t.Name,
				TargetTable:  fk.ReferredTable,
				SourceColumn: fk.Column,
				TargetColumn: fk.ReferredColumn,
				JoinType:     "LEFT JOIN",
				Confidence:   "high",
				Reason:       "foreign_key",
			})
		}
	}

	for _, t1 := range schema.Tables {
		for _, t2 := range schema.Tables {
			if t1.Name >= t2.Name { // avoid duplicates and self-joins
				continue
			}

			patterns := [][2]string{
				{"id", t1.Name + "_id"},
				{t2.Name + "_id", "id"},
				{"id", singular(t1.Name) + "_id"},
				{singular(t2.Name) + "_id", "id"},
			}

			for _, p := range patterns {
				if !columnsByTable[t1.Name][p[0]] || !columnsByTable[t2.Name][p[1]] {
					continue
				}
				if hasSuggestion(suggestions, t1.Name, t2.Name, p[0], p[1]) {
					continue
				}
				suggestions = append(suggestions, RelationshipSuggestion{
					SourceTable:  t1.Name,
					TargetTable:  t2.Name,
					SourceColumn: p[0],
					TargetColumn: p[1],
					JoinType:     "LEFT JOIN",
					Confidence:   "medium",
					Reason:       "naming_pattern",
				})
			}
		}
	}

	return suggestions
}

func hasSuggestion(suggestions []RelationshipSuggestion, source, target, sourceCol, targetCol string) bool {
	for _, s := range suggestions {
		if s.SourceTable == source && s.TargetTable == target &&
			s.SourceColumn == sourceCol && s.TargetColumn == targetCol {
			return true
		}
	}
	return false
}

func singular(table string) string {
	if strings.HasSuffix(table, "s") {
		return table[:len(table)-1]
	}
	return table
}

func validateDataSource(ds *DataSource) error {
	if strings.TrimSpace(ds.Name) == "" {
		return fmt.Errorf("data source name is required")
	}
	switch ds.Type {
	case DataSourceTypePostgreSQL, DataSourceTypeMySQL:
	default:
		return fmt.Errorf("unsupported data source type: %s", ds.Type)
	}
	if ds.Host == "" || ds.Database == "" || ds.Username == "" {
		return fmt.Errorf("host, database and username are required")
	}
	return nil
}

// getConnector gets or creates a connector for a data source
func (s *DataSourceServiceImpl) getConnector(ctx context.Context, ds *DataSource) (connectors.Connector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conn, exists := s.connectors[ds.ID.Hex()]; exists {
		return conn, nil
	}

	connector, err := s.createConnector(ctx, ds)
	if err != nil {
		return nil, err
	}

	s.connectors[ds.ID.Hex()] = connector
	return connector, nil
}

func (s *DataSourceServiceImpl) evictConnector(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if connector, exists := s.connectors[id]; exists {
		connector.Disconnect(ctx)
		delete(s.connectors, id)
	}
}

// createConnector creates a new connector based on data source type
func (s *DataSourceServiceImpl) createConnector(ctx context.Context, ds *DataSource) (connectors.Connector, error) {
	var connector connectors.Connector

	switch ds.Type {
	case DataSourceTypePostgreSQL:
		connector = connectors.NewExternalDBConnector("postgresql")
	case DataSourceTypeMySQL:
		connector = connectors.NewExternalDBConnector("mysql")
	default:
		return nil, fmt.Errorf("unsupported data source type: %s", ds.Type)
	}

	if err := connector.Connect(ctx, ds.connectorConfig()); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", ds.Type, err)
	}

	return connector, nil
}
