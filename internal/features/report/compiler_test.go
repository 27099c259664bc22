package report

import (
	"strings"
	"testing"

	"go.uber.org/zap"
)

func testCompiler() *QueryCompiler {
	return NewQueryCompiler(zap.NewNop())
}

func ordersCustomersReport() *Report {
	return &Report{
		TableRefs: []TableRef{
			{
				DataSourceID: "ds1",
				TableName:    "orders",
				Columns: []ColumnRef{
					{Name: "id"}, {Name: "customer_id"}, {Name: "status"}, {Name: "total"},
				},
			},
			{
				DataSourceID: "ds1",
				TableName:    "customers",
				Columns: []ColumnRef{
					{Name: "id"}, {Name: "name"},
				},
			},
		},
		Fields: []FieldRef{
			{Table: "orders", Name: "id"},
			{Table: "customers", Name: "name"},
		},
	}
}

func TestCompileAutoDetectedJoin(t *testing.T) {
	compiled, err := testCompiler().Compile(ordersCustomersReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "SELECT orders.id, customers.name FROM orders LEFT JOIN customers ON orders.customer_id = customers.id LIMIT 1000"
	if compiled.SQL != want {
		t.Errorf("got SQL %q, want %q", compiled.SQL, want)
	}
	if len(compiled.Params) != 0 {
		t.Errorf("expected no params, got %v", compiled.Params)
	}
}

func TestCompileJoinPriority(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(r *Report)
		wantJoin string
	}{
		{
			name: "stored relationship wins over auto-detection",
			mutate: func(r *Report) {
				r.Relationships = []Relationship{{
					SourceTable:  "orders",
					SourceColumn: "buyer_id",
					TargetTable:  "customers",
					TargetColumn: "id",
					JoinType:     "INNER JOIN",
				}}
			},
			wantJoin: "INNER JOIN customers ON orders.buyer_id = customers.id",
		},
		{
			name: "relationship matched in reverse direction",
			mutate: func(r *Report) {
				r.Relationships = []Relationship{{
					SourceTable:  "customers",
					SourceColumn: "id",
					TargetTable:  "orders",
					TargetColumn: "customer_id",
				}}
			},
			wantJoin: "LEFT JOIN customers ON customers.id = orders.customer_id",
		},
		{
			name: "relationship on_condition overrides column pair",
			mutate: func(r *Report) {
				r.Relationships = []Relationship{{
					SourceTable: "orders",
					TargetTable: "customers",
					OnCondition: "orders.customer_id = customers.id AND customers.active = true",
				}}
			},
			wantJoin: "LEFT JOIN customers ON orders.customer_id = customers.id AND customers.active = true",
		},
		{
			name: "explicit join config used when no relationship exists",
			mutate: func(r *Report) {
				r.TableRefs[1].Joins = []JoinConfig{{
					TargetTable: "orders",
					JoinType:    "RIGHT JOIN",
					OnCondition: "customers.id = orders.customer_id",
				}}
			},
			wantJoin: "RIGHT JOIN customers ON customers.id = orders.customer_id",
		},
		{
			name: "cross join fallback when nothing matches",
			mutate: func(r *Report) {
				r.TableRefs[0].Columns = []ColumnRef{{Name: "code"}}
				r.TableRefs[1].Columns = []ColumnRef{{Name: "name"}}
			},
			wantJoin: "CROSS JOIN customers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ordersCustomersReport()
			tt.mutate(r)

			compiled, err := testCompiler().Compile(r)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(compiled.SQL, tt.wantJoin) {
				t.Errorf("SQL %q does not contain join %q", compiled.SQL, tt.wantJoin)
			}
		})
	}
}

func TestCompileFieldAliases(t *testing.T) {
	r := ordersCustomersReport()
	r.Fields = []FieldRef{
		{Table: "orders", Name: "id", Label: "Order ID"},
		{Table: "customers", Name: "name", Label: "name"}, // label == name, no alias
	}

	compiled, err := testCompiler().Compile(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(compiled.SQL, `orders.id AS "Order ID"`) {
		t.Errorf("SQL %q missing aliased field", compiled.SQL)
	}
	if strings.Contains(compiled.SQL, `customers.name AS`) {
		t.Errorf("SQL %q should not alias field whose label matches its name", compiled.SQL)
	}
}

func TestCompileFilters(t *testing.T) {
	tests := []struct {
		name       string
		filter     Filter
		wantClause string
		wantParam  interface{}
	}{
		{
			name:       "equals",
			filter:     Filter{Field: "status", Operator: OperatorEquals, Value: "shipped"},
			wantClause: "WHERE orders.status = :param_0",
			wantParam:  "shipped",
		},
		{
			name:       "not equals",
			filter:     Filter{Field: "status", Operator: OperatorNotEquals, Value: "draft"},
			wantClause: "WHERE orders.status <> :param_0",
			wantParam:  "draft",
		},
		{
			name:       "greater than",
			filter:     Filter{Field: "total", Operator: OperatorGreaterThan, Value: 100},
			wantClause: "WHERE orders.total > :param_0",
			wantParam:  100,
		},
		{
			name:       "less than",
			filter:     Filter{Field: "total", Operator: OperatorLessThan, Value: 50},
			wantClause: "WHERE orders.total < :param_0",
			wantParam:  50,
		},
		{
			name:       "contains wraps value in wildcards",
			filter:     Filter{Field: "status", Operator: OperatorContains, Value: "ship"},
			wantClause: "WHERE orders.status LIKE :param_0",
			wantParam:  "%ship%",
		},
		{
			name:       "starts_with appends wildcard",
			filter:     Filter{Field: "status", Operator: OperatorStartsWith, Value: "sh"},
			wantClause: "WHERE orders.status LIKE :param_0",
			wantParam:  "sh%",
		},
		{
			name:       "is_null takes no parameter",
			filter:     Filter{Field: "status", Operator: OperatorIsNull},
			wantClause: "WHERE orders.status IS NULL",
		},
		{
			name:       "not_null takes no parameter",
			filter:     Filter{Field: "status", Operator: OperatorNotNull},
			wantClause: "WHERE orders.status IS NOT NULL",
		},
		{
			name:       "qualified field passes through untouched",
			filter:     Filter{Field: "customers.name", Operator: OperatorEquals, Value: "Acme"},
			wantClause: "WHERE customers.name = :param_0",
			wantParam:  "Acme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ordersCustomersReport()
			r.Filters = []Filter{tt.filter}

			compiled, err := testCompiler().Compile(r)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(compiled.SQL, tt.wantClause) {
				t.Errorf("SQL %q missing clause %q", compiled.SQL, tt.wantClause)
			}
			if tt.wantParam == nil {
				if len(compiled.Params) != 0 {
					t.Errorf("expected no params, got %v", compiled.Params)
				}
			} else if got := compiled.Params["param_0"]; got != tt.wantParam {
				t.Errorf("param_0 = %v, want %v", got, tt.wantParam)
			}
		})
	}
}

func TestCompileFilterParamNumbering(t *testing.T) {
	r := ordersCustomersReport()
	r.Filters = []Filter{
		{Field: "status", Operator: OperatorEquals, Value: "shipped"},
		{Field: "total", Operator: OperatorIsNull},
		{Field: "total", Operator: OperatorGreaterThan, Value: 10},
	}

	compiled, err := testCompiler().Compile(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Parameter names follow filter positions even when a filter in between
	// binds no value
	if !strings.Contains(compiled.SQL, "orders.total > :param_2") {
		t.Errorf("SQL %q should number third filter param_2", compiled.SQL)
	}
	if _, ok := compiled.Params["param_1"]; ok {
		t.Errorf("is_null filter must not bind a parameter, got %v", compiled.Params)
	}
	if len(compiled.Params) != 2 {
		t.Errorf("expected 2 params, got %v", compiled.Params)
	}
}

func TestCompileUnknownOperator(t *testing.T) {
	r := ordersCustomersReport()
	r.Filters = []Filter{{Field: "status", Operator: "matches_regex", Value: ".*"}}

	_, err := testCompiler().Compile(r)
	if err == nil {
		t.Fatal("expected error for unknown operator, got nil")
	}
	if !strings.Contains(err.Error(), "matches_regex") {
		t.Errorf("error %q should name the operator", err)
	}
}

func TestCompileUnresolvedFilterFieldDefaultsToFirstTable(t *testing.T) {
	r := ordersCustomersReport()
	r.Filters = []Filter{{Field: "region", Operator: OperatorEquals, Value: "EU"}}

	compiled, err := testCompiler().Compile(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(compiled.SQL, "orders.region = :param_0") {
		t.Errorf("SQL %q should qualify unknown column with first table", compiled.SQL)
	}
}

func TestCompileGroupBy(t *testing.T) {
	r := ordersCustomersReport()
	r.Fields = []FieldRef{{Table: "customers", Name: "name"}}
	r.CalculatedFields = []CalculatedField{
		{Name: "order_total", Label: "Total", Expression: "SUM(orders.total)"},
		{Name: "region_key", Expression: "UPPER(customers.name)"},
	}

	compiled, err := testCompiler().Compile(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := ` GROUP BY customers.name, "region_key"`
	if !strings.Contains(compiled.SQL, want) {
		t.Errorf("SQL %q missing group clause %q", compiled.SQL, want)
	}
	if !strings.Contains(compiled.SQL, `(SUM(orders.total)) AS "Total"`) {
		t.Errorf("SQL %q missing aggregate select", compiled.SQL)
	}
}

func TestCompileCalculatedFieldParenthesized(t *testing.T) {
	r := ordersCustomersReport()
	r.CalculatedFields = []CalculatedField{
		{Name: "margin", Label: "Margin", Expression: "orders.total - orders.cost"},
	}

	compiled, err := testCompiler().Compile(r)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	want := `(orders.total - orders.cost) AS "Margin"`
	if !strings.Contains(compiled.SQL, want) {
		t.Errorf("SQL %q missing parenthesized expression %q", compiled.SQL, want)
	}
}

func TestCompileNoGroupByWithoutAggregates(t *testing.T) {
	r := ordersCustomersReport()
	r.CalculatedFields = []CalculatedField{
		{Name: "upper_name", Expression: "UPPER(customers.name)"},
	}

	compiled, err := testCompiler().Compile(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(compiled.SQL, "GROUP BY") {
		t.Errorf("SQL %q should have no GROUP BY", compiled.SQL)
	}
}

func TestCompileCTEPrefix(t *testing.T) {
	r := ordersCustomersReport()
	r.CTEDefinitions = []CTEDefinition{
		{Name: "recent", Query: "SELECT * FROM orders WHERE created_at > now() - interval '7 days'"},
		{Name: "big", Query: "SELECT * FROM orders WHERE total > 1000"},
	}

	compiled, err := testCompiler().Compile(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(compiled.SQL, "WITH recent AS (") {
		t.Errorf("SQL %q should start with the CTE clause", compiled.SQL)
	}
	if !strings.Contains(compiled.SQL, "), big AS (") {
		t.Errorf("SQL %q should chain both CTEs", compiled.SQL)
	}
}

func TestCompileEmptyTableRefs(t *testing.T) {
	compiled, err := testCompiler().Compile(&Report{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !compiled.Empty() {
		t.Errorf("expected empty query, got %q", compiled.SQL)
	}
}

func TestCompileCrossSourceUsesFirstSource(t *testing.T) {
	r := ordersCustomersReport()
	r.TableRefs[1].DataSourceID = "ds2"

	compiled, err := testCompiler().Compile(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(compiled.SQL, "customers") && strings.Contains(compiled.SQL, "JOIN") {
		t.Errorf("SQL %q should not join a table from another data source", compiled.SQL)
	}
	if !strings.Contains(compiled.SQL, "FROM orders") {
		t.Errorf("SQL %q should query the first data source's table", compiled.SQL)
	}
}

func TestCompileAlwaysLimits(t *testing.T) {
	compiled, err := testCompiler().Compile(ordersCustomersReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(compiled.SQL, " LIMIT 1000") {
		t.Errorf("SQL %q must end with the row limit", compiled.SQL)
	}
}

func TestIsAggregateExpression(t *testing.T) {
	tests := []struct {
		expr string
		want bool
	}{
		{"SUM(total)", true},
		{"sum(total)", true},
		{"COUNT(*)", true},
		{"AVG(price) * 2", true},
		{"MIN(created_at)", true},
		{"MAX(created_at)", true},
		{"UPPER(name)", false},
		{"total * 1.2", false},
		{"summary_col", false},
	}

	for _, tt := range tests {
		if got := isAggregateExpression(tt.expr); got != tt.want {
			t.Errorf("isAggregateExpression(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}
