package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReportFormat string

const (
	FormatPDF        ReportFormat = "PDF"
	FormatExcel      ReportFormat = "Excel"
	FormatCSV        ReportFormat = "CSV"
	FormatPowerPoint ReportFormat = "PowerPoint" // rendered as PDF for now
)

type ReportTemplate string

const (
	TemplateBusinessStandard ReportTemplate = "business_standard"
	TemplateExecutiveSummary ReportTemplate = "executive_summary"
	TemplateDetailedAnalysis ReportTemplate = "detailed_analysis"
	TemplateFinancial        ReportTemplate = "financial"
	TemplateMarketing        ReportTemplate = "marketing"
)

type ReportLayout string

const (
	LayoutTable     ReportLayout = "table"
	LayoutChart     ReportLayout = "chart"
	LayoutDashboard ReportLayout = "dashboard"
	LayoutSummary   ReportLayout = "summary"
)

// FilterOperator is the closed set of operators the query compiler accepts
type FilterOperator string

const (
	OperatorEquals      FilterOperator = "equals"
	OperatorNotEquals   FilterOperator = "not_equals"
	OperatorGreaterThan FilterOperator = "greater_than"
	OperatorLessThan    FilterOperator = "less_than"
	OperatorContains    FilterOperator = "contains"
	OperatorStartsWith  FilterOperator = "starts_with"
	OperatorIsNull      FilterOperator = "is_null"
	OperatorNotNull     FilterOperator = "not_null"
)

// ColumnRef is one column a table reference knows about. Column lists are
// stored report configuration, not live schema; join auto-detection and
// filter field resolution work off them.
type ColumnRef struct {
	Name  string `json:"name" bson:"name"`
	Label string `json:"label,omitempty" bson:"label,omitempty"`
	Type  string `json:"type,omitempty" bson:"type,omitempty"`
}

// JoinConfig is an explicit per-table join declaration
type JoinConfig struct {
	TargetTable string `json:"target_table" bson:"target_table"`
	JoinType    string `json:"join_type,omitempty" bson:"join_type,omitempty"`
	OnCondition string `json:"on_condition" bson:"on_condition"`
}

// TableRef names one source table and the columns the report may use
type TableRef struct {
	DataSourceID string       `json:"data_source_id" bson:"data_source_id"`
	TableName    string       `json:"table_name" bson:"table_name"`
	Columns      []ColumnRef  `json:"columns,omitempty" bson:"columns,omitempty"`
	Joins        []JoinConfig `json:"joins,omitempty" bson:"joins,omitempty"`
}

// Relationship is a stored join between two tables. When both tables appear
// in a report it takes priority over explicit join configs and auto-detection.
type Relationship struct {
	SourceTable  string `json:"source_table" bson:"source_table"`
	SourceColumn string `json:"source_column,omitempty" bson:"source_column,omitempty"`
	TargetTable  string `json:"target_table" bson:"target_table"`
	TargetColumn string `json:"target_column,omitempty" bson:"target_column,omitempty"`
	JoinType     string `json:"join_type,omitempty" bson:"join_type,omitempty"`
	OnCondition  string `json:"on_condition,omitempty" bson:"on_condition,omitempty"`
}

// FieldRef is one selected output column
type FieldRef struct {
	Table string `json:"table" bson:"table"`
	Name  string `json:"name" bson:"name"`
	Label string `json:"label,omitempty" bson:"label,omitempty"`
}

// CalculatedField is a named output column defined by a raw SQL expression
type CalculatedField struct {
	Name       string `json:"name" bson:"name"`
	Label      string `json:"label,omitempty" bson:"label,omitempty"`
	Expression string `json:"expression" bson:"expression"`
	DataType   string `json:"data_type,omitempty" bson:"data_type,omitempty"`
}

// CTEDefinition is a WITH-clause subquery prepended to the main query.
// The body is trusted raw SQL.
type CTEDefinition struct {
	Name  string `json:"name" bson:"name"`
	Query string `json:"query" bson:"query"`
}

// Filter is one WHERE condition
type Filter struct {
	Field    string         `json:"field" bson:"field"`
	Operator FilterOperator `json:"operator" bson:"operator"`
	Value    interface{}    `json:"value,omitempty" bson:"value,omitempty"`
}

// Report is a saved report configuration
type Report struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`

	TableRefs        []TableRef        `json:"table_refs" bson:"table_refs"`
	Relationships    []Relationship    `json:"relationships,omitempty" bson:"relationships,omitempty"`
	Fields           []FieldRef        `json:"fields" bson:"fields"`
	CalculatedFields []CalculatedField `json:"calculated_fields,omitempty" bson:"calculated_fields,omitempty"`
	CTEDefinitions   []CTEDefinition   `json:"cte_definitions,omitempty" bson:"cte_definitions,omitempty"`
	Filters          []Filter          `json:"filters,omitempty" bson:"filters,omitempty"`

	Format   ReportFormat   `json:"format" bson:"format"`
	Template ReportTemplate `json:"template" bson:"template"`
	Layout   ReportLayout   `json:"layout" bson:"layout"`

	IsActive       bool       `json:"is_active" bson:"is_active"`
	LastExecuted   *time.Time `json:"last_executed,omitempty" bson:"last_executed,omitempty"`
	ExecutionCount int        `json:"execution_count" bson:"execution_count"`

	CreatedBy primitive.ObjectID `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// identPattern is the allow-list for table and column identifiers. They come
// from stored configuration rather than end-user input, but they end up
// embedded in SQL text and are gated here regardless.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validIdent(name string) bool {
	return identPattern.MatchString(name)
}

var knownOperators = map[FilterOperator]bool{
	OperatorEquals:      true,
	OperatorNotEquals:   true,
	OperatorGreaterThan: true,
	OperatorLessThan:    true,
	OperatorContains:    true,
	OperatorStartsWith:  true,
	OperatorIsNull:      true,
	OperatorNotNull:     true,
}

// Validate rejects malformed configurations at the boundary so the compiler
// never has to silently drop clauses later
func (r *Report) Validate() error {
	if len(strings.TrimSpace(r.Name)) < 3 {
		return fmt.Errorf("report name must be at least 3 characters long")
	}
	if len(r.TableRefs) == 0 {
		return fmt.Errorf("at least one table reference is required")
	}
	if len(r.Fields) == 0 && len(r.CalculatedFields) == 0 {
		return fmt.Errorf("at least one field or calculated field is required")
	}

	for _, ref := range r.TableRefs {
		if ref.DataSourceID == "" {
			return fmt.Errorf("table reference %q has no data source", ref.TableName)
		}
		if !validIdent(ref.TableName) {
			return fmt.Errorf("invalid table name %q", ref.TableName)
		}
		for _, col := range ref.Columns {
			if !validIdent(col.Name) {
				return fmt.Errorf("invalid column name %q in table %q", col.Name, ref.TableName)
			}
		}
	}

	for _, rel := range r.Relationships {
		if !validIdent(rel.SourceTable) || !validIdent(rel.TargetTable) {
			return fmt.Errorf("invalid relationship between %q and %q", rel.SourceTable, rel.TargetTable)
		}
		if rel.SourceColumn != "" && !validIdent(rel.SourceColumn) {
			return fmt.Errorf("invalid relationship column %q", rel.SourceColumn)
		}
		if rel.TargetColumn != "" && !validIdent(rel.TargetColumn) {
			return fmt.Errorf("invalid relationship column %q", rel.TargetColumn)
		}
	}

	for _, field := range r.Fields {
		if !validIdent(field.Name) {
			return fmt.Errorf("invalid field name %q", field.Name)
		}
		if field.Table != "" && !validIdent(field.Table) {
			return fmt.Errorf("invalid field table %q", field.Table)
		}
	}

	for _, calc := range r.CalculatedFields {
		if !validIdent(calc.Name) {
			return fmt.Errorf("invalid calculated field name %q", calc.Name)
		}
		if strings.TrimSpace(calc.Expression) == "" {
			return fmt.Errorf("calculated field %q has no expression", calc.Name)
		}
	}

	for _, cte := range r.CTEDefinitions {
		if !validIdent(cte.Name) {
			return fmt.Errorf("invalid CTE name %q", cte.Name)
		}
		if strings.TrimSpace(cte.Query) == "" {
			return fmt.Errorf("CTE %q has no query", cte.Name)
		}
	}

	for _, filter := range r.Filters {
		if filter.Field == "" {
			return fmt.Errorf("filter has no field")
		}
		if !knownOperators[filter.Operator] {
			return fmt.Errorf("unsupported filter operator %q", filter.Operator)
		}
	}

	return nil
}

// Executable reports have at least one table reference and one output column
func (r *Report) Executable() bool {
	return len(r.TableRefs) > 0 && (len(r.Fields) > 0 || len(r.CalculatedFields) > 0)
}

// FileExtension maps the report format to its artifact extension.
// Unrecognized formats fall back to pdf.
func (f ReportFormat) FileExtension() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatExcel:
		return "xlsx"
	default:
		return "pdf"
	}
}
