package report

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// MaxReportRows caps every compiled query so a misconfigured report cannot
// pull an unbounded result set from an external database.
const MaxReportRows = 1000

// SelectedField describes one output column of a compiled query, in the
// order it appears in the SELECT clause. Renderers use it for headers.
type SelectedField struct {
	Name         string `json:"name"`
	Label        string `json:"label"`
	Table        string `json:"table,omitempty"`
	Type         string `json:"type,omitempty"`
	IsCalculated bool   `json:"is_calculated,omitempty"`
}

// CompiledQuery is the output of the compiler: parameterized SQL plus the
// named parameter values and the ordered field list.
type CompiledQuery struct {
	SQL    string
	Params map[string]interface{}
	Fields []SelectedField
}

// Empty reports whether compilation produced no query (no table references)
func (q *CompiledQuery) Empty() bool {
	return q.SQL == ""
}

// QueryCompiler turns a report configuration into a single SQL statement.
// Values are always passed as named parameters; identifiers are validated
// upstream and embedded as text.
type QueryCompiler struct {
	log *zap.Logger
}

func NewQueryCompiler(log *zap.Logger) *QueryCompiler {
	return &QueryCompiler{log: log}
}

// Compile builds the full query: optional CTE prefix, SELECT, FROM with
// joins, WHERE, synthesized GROUP BY and the row limit.
func (c *QueryCompiler) Compile(report *Report) (*CompiledQuery, error) {
	refs := c.sameSourceRefs(report)
	if len(refs) == 0 {
		return &CompiledQuery{Params: map[string]interface{}{}}, nil
	}

	selectClause, fields := c.buildSelect(report)

	fromClause, err := c.buildFrom(refs, report.Relationships)
	if err != nil {
		return nil, err
	}

	whereClause, params, err := c.buildWhere(report.Filters, refs)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	if cte := buildCTEClause(report.CTEDefinitions); cte != "" {
		sb.WriteString(cte)
	}
	sb.WriteString("SELECT ")
	sb.WriteString(selectClause)
	sb.WriteString(" FROM ")
	sb.WriteString(fromClause)
	sb.WriteString(whereClause)
	sb.WriteString(c.buildGroupBy(report))
	fmt.Fprintf(&sb, " LIMIT %d", MaxReportRows)

	return &CompiledQuery{SQL: sb.String(), Params: params, Fields: fields}, nil
}

// sameSourceRefs keeps only the table references belonging to the first
// table's data source. Cross-database queries are not supported; extra
// sources are dropped with a warning rather than failing the run.
func (c *QueryCompiler) sameSourceRefs(report *Report) []TableRef {
	if len(report.TableRefs) == 0 {
		return nil
	}

	primary := report.TableRefs[0].DataSourceID
	refs := make([]TableRef, 0, len(report.TableRefs))
	dropped := 0
	for _, ref := range report.TableRefs {
		if ref.DataSourceID == primary {
			refs = append(refs, ref)
		} else {
			dropped++
		}
	}

	if dropped > 0 {
		c.log.Warn("report spans multiple data sources, using first source only",
			zap.String("reportId", report.ID.Hex()),
			zap.String("dataSourceId", primary),
			zap.Int("droppedTables", dropped))
	}

	return refs
}

// buildSelect renders one expression per selected field and calculated
// field. Fields missing a table or name are skipped. Falls back to * when
// nothing usable is configured.
func (c *QueryCompiler) buildSelect(report *Report) (string, []SelectedField) {
	exprs := make([]string, 0, len(report.Fields)+len(report.CalculatedFields))
	fields := make([]SelectedField, 0, len(report.Fields)+len(report.CalculatedFields))

	for _, f := range report.Fields {
		if f.Table == "" || f.Name == "" {
			continue
		}
		expr := f.Table + "." + f.Name
		label := f.Label
		if label != "" && label != f.Name {
			expr += fmt.Sprintf(" AS %q", label)
		} else {
			label = f.Name
		}
		exprs = append(exprs, expr)
		fields = append(fields, SelectedField{Name: f.Name, Label: label, Table: f.Table})
	}

	for _, calc := range report.CalculatedFields {
		if calc.Name == "" || strings.TrimSpace(calc.Expression) == "" {
			continue
		}
		label := calc.Label
		if label == "" {
			label = calc.Name
		}
		exprs = append(exprs, fmt.Sprintf("(%s) AS %q", calc.Expression, label))
		fields = append(fields, SelectedField{
			Name:         calc.Name,
			Label:        label,
			Type:         calc.DataType,
			IsCalculated: true,
		})
	}

	if len(exprs) == 0 {
		return "*", fields
	}
	return strings.Join(exprs, ", "), fields
}

// buildFrom chains every table after the first onto the primary table
func (c *QueryCompiler) buildFrom(refs []TableRef, relationships []Relationship) (string, error) {
	primary := refs[0]

	var sb strings.Builder
	sb.WriteString(primary.TableName)
	for i := 1; i < len(refs); i++ {
		clause, err := c.joinClause(primary, refs[i], relationships)
		if err != nil {
			return "", err
		}
		sb.WriteString(clause)
	}
	return sb.String(), nil
}

// joinClause picks the join for one candidate table. Stored relationships
// win over explicit join configs, which win over naming-based detection;
// a CROSS JOIN is the final fallback.
func (c *QueryCompiler) joinClause(primary, candidate TableRef, relationships []Relationship) (string, error) {
	if rel := matchRelationship(primary.TableName, candidate.TableName, relationships); rel != nil {
		cond := rel.OnCondition
		if cond == "" {
			cond = fmt.Sprintf("%s.%s = %s.%s",
				rel.SourceTable, rel.SourceColumn, rel.TargetTable, rel.TargetColumn)
		}
		return fmt.Sprintf(" %s %s ON %s", joinType(rel.JoinType), candidate.TableName, cond), nil
	}

	if len(candidate.Joins) > 0 {
		var sb strings.Builder
		for _, join := range candidate.Joins {
			if join.OnCondition == "" {
				return "", fmt.Errorf("join on table %s has no condition", candidate.TableName)
			}
			fmt.Fprintf(&sb, " %s %s ON %s", joinType(join.JoinType), candidate.TableName, join.OnCondition)
		}
		return sb.String(), nil
	}

	if cond := autoDetectJoin(primary, candidate); cond != "" {
		return fmt.Sprintf(" LEFT JOIN %s ON %s", candidate.TableName, cond), nil
	}

	c.log.Warn("no join condition found between tables, falling back to CROSS JOIN",
		zap.String("primaryTable", primary.TableName),
		zap.String("candidateTable", candidate.TableName))
	return fmt.Sprintf(" CROSS JOIN %s", candidate.TableName), nil
}

// matchRelationship finds a stored relationship covering the table pair in
// either direction
func matchRelationship(primary, candidate string, relationships []Relationship) *Relationship {
	for i := range relationships {
		rel := &relationships[i]
		if (rel.SourceTable == primary && rel.TargetTable == candidate) ||
			(rel.SourceTable == candidate && rel.TargetTable == primary) {
			return rel
		}
	}
	return nil
}

func joinType(jt string) string {
	jt = strings.TrimSpace(strings.ToUpper(jt))
	switch jt {
	case "INNER JOIN", "LEFT JOIN", "RIGHT JOIN", "FULL JOIN", "FULL OUTER JOIN", "CROSS JOIN":
		return jt
	case "INNER", "LEFT", "RIGHT", "FULL":
		return jt + " JOIN"
	default:
		return "LEFT JOIN"
	}
}

// autoDetectJoin probes conventional id-column pairs using the column lists
// the table references carry. First matching pattern wins.
func autoDetectJoin(primary, candidate TableRef) string {
	primaryCols := columnSet(primary)
	candidateCols := columnSet(candidate)

	type pattern struct {
		primaryCol, candidateCol string
	}
	patterns := []pattern{
		{"id", primary.TableName + "_id"},
		{"id", singularize(primary.TableName) + "_id"},
		{candidate.TableName + "_id", "id"},
		{singularize(candidate.TableName) + "_id", "id"},
	}

	for _, p := range patterns {
		if primaryCols[p.primaryCol] && candidateCols[p.candidateCol] {
			return fmt.Sprintf("%s.%s = %s.%s",
				primary.TableName, p.primaryCol, candidate.TableName, p.candidateCol)
		}
	}
	return ""
}

func columnSet(ref TableRef) map[string]bool {
	cols := make(map[string]bool, len(ref.Columns))
	for _, c := range ref.Columns {
		cols[c.Name] = true
	}
	return cols
}

func singularize(table string) string {
	if strings.HasSuffix(table, "s") {
		return table[:len(table)-1]
	}
	return table
}

// buildWhere renders the filters into a WHERE clause with positional named
// parameters (param_0, param_1, ...). Filters with an empty field or
// operator are skipped; an unknown operator fails the whole compile.
func (c *QueryCompiler) buildWhere(filters []Filter, refs []TableRef) (string, map[string]interface{}, error) {
	params := map[string]interface{}{}
	conditions := make([]string, 0, len(filters))

	for i, filter := range filters {
		if filter.Field == "" || filter.Operator == "" {
			continue
		}

		field, err := resolveFilterField(filter.Field, refs)
		if err != nil {
			return "", nil, err
		}

		paramName := fmt.Sprintf("param_%d", i)
		switch filter.Operator {
		case OperatorEquals:
			conditions = append(conditions, fmt.Sprintf("%s = :%s", field, paramName))
			params[paramName] = filter.Value
		case OperatorNotEquals:
			conditions = append(conditions, fmt.Sprintf("%s <> :%s", field, paramName))
			params[paramName] = filter.Value
		case OperatorGreaterThan:
			conditions = append(conditions, fmt.Sprintf("%s > :%s", field, paramName))
			params[paramName] = filter.Value
		case OperatorLessThan:
			conditions = append(conditions, fmt.Sprintf("%s < :%s", field, paramName))
			params[paramName] = filter.Value
		case OperatorContains:
			conditions = append(conditions, fmt.Sprintf("%s LIKE :%s", field, paramName))
			params[paramName] = fmt.Sprintf("%%%v%%", filter.Value)
		case OperatorStartsWith:
			conditions = append(conditions, fmt.Sprintf("%s LIKE :%s", field, paramName))
			params[paramName] = fmt.Sprintf("%v%%", filter.Value)
		case OperatorIsNull:
			conditions = append(conditions, fmt.Sprintf("%s IS NULL", field))
		case OperatorNotNull:
			conditions = append(conditions, fmt.Sprintf("%s IS NOT NULL", field))
		default:
			return "", nil, fmt.Errorf("unsupported filter operator %q", filter.Operator)
		}
	}

	if len(conditions) == 0 {
		return "", params, nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), params, nil
}

// resolveFilterField qualifies a bare column name with its table. Already
// qualified names pass through; unknown columns default to the first table.
func resolveFilterField(field string, refs []TableRef) (string, error) {
	if strings.Contains(field, ".") {
		parts := strings.SplitN(field, ".", 2)
		if !validIdent(parts[0]) || !validIdent(parts[1]) {
			return "", fmt.Errorf("invalid filter field %q", field)
		}
		return field, nil
	}

	if !validIdent(field) {
		return "", fmt.Errorf("invalid filter field %q", field)
	}

	for _, ref := range refs {
		if columnSet(ref)[field] {
			return ref.TableName + "." + field, nil
		}
	}
	return refs[0].TableName + "." + field, nil
}

// buildGroupBy synthesizes a GROUP BY when any calculated field aggregates:
// every plain field plus every non-aggregate calculated field (by its quoted
// output name) becomes a grouping key.
func (c *QueryCompiler) buildGroupBy(report *Report) string {
	hasAggregate := false
	for _, calc := range report.CalculatedFields {
		if isAggregateExpression(calc.Expression) {
			hasAggregate = true
			break
		}
	}
	if !hasAggregate {
		return ""
	}

	groups := make([]string, 0, len(report.Fields)+len(report.CalculatedFields))
	for _, f := range report.Fields {
		if f.Table == "" || f.Name == "" {
			continue
		}
		groups = append(groups, f.Table+"."+f.Name)
	}
	for _, calc := range report.CalculatedFields {
		if calc.Name == "" || isAggregateExpression(calc.Expression) {
			continue
		}
		groups = append(groups, fmt.Sprintf("%q", calc.Name))
	}

	if len(groups) == 0 {
		return ""
	}
	return " GROUP BY " + strings.Join(groups, ", ")
}

var aggregateFuncs = []string{"SUM(", "COUNT(", "AVG(", "MIN(", "MAX("}

func isAggregateExpression(expr string) bool {
	upper := strings.ToUpper(expr)
	for _, fn := range aggregateFuncs {
		if strings.Contains(upper, fn) {
			return true
		}
	}
	return false
}

func buildCTEClause(ctes []CTEDefinition) string {
	if len(ctes) == 0 {
		return ""
	}
	parts := make([]string, 0, len(ctes))
	for _, cte := range ctes {
		if cte.Name == "" || strings.TrimSpace(cte.Query) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s AS (%s)", cte.Name, cte.Query))
	}
	if len(parts) == 0 {
		return ""
	}
	return "WITH " + strings.Join(parts, ", ") + " "
}
