package report

import (
	"testing"
)

func validReport() *Report {
	return &Report{
		Name: "Orders Overview",
		TableRefs: []TableRef{
			{DataSourceID: "ds1", TableName: "orders", Columns: []ColumnRef{{Name: "id"}}},
		},
		Fields: []FieldRef{{Table: "orders", Name: "id"}},
	}
}

func TestReportValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *Report)
		wantErr bool
	}{
		{
			name:   "valid report",
			mutate: func(r *Report) {},
		},
		{
			name:    "short name",
			mutate:  func(r *Report) { r.Name = "ab" },
			wantErr: true,
		},
		{
			name:    "no table refs",
			mutate:  func(r *Report) { r.TableRefs = nil },
			wantErr: true,
		},
		{
			name: "no fields at all",
			mutate: func(r *Report) {
				r.Fields = nil
				r.CalculatedFields = nil
			},
			wantErr: true,
		},
		{
			name: "calculated field alone is enough",
			mutate: func(r *Report) {
				r.Fields = nil
				r.CalculatedFields = []CalculatedField{{Name: "total", Expression: "SUM(orders.total)"}}
			},
		},
		{
			name:    "table name with sql injection",
			mutate:  func(r *Report) { r.TableRefs[0].TableName = "orders; DROP TABLE users" },
			wantErr: true,
		},
		{
			name:    "column name with quote",
			mutate:  func(r *Report) { r.TableRefs[0].Columns = []ColumnRef{{Name: `id"`}} },
			wantErr: true,
		},
		{
			name:    "table ref without data source",
			mutate:  func(r *Report) { r.TableRefs[0].DataSourceID = "" },
			wantErr: true,
		},
		{
			name:    "field name with spaces",
			mutate:  func(r *Report) { r.Fields[0].Name = "order id" },
			wantErr: true,
		},
		{
			name: "calculated field without expression",
			mutate: func(r *Report) {
				r.CalculatedFields = []CalculatedField{{Name: "total", Expression: "  "}}
			},
			wantErr: true,
		},
		{
			name: "cte with invalid name",
			mutate: func(r *Report) {
				r.CTEDefinitions = []CTEDefinition{{Name: "recent-orders", Query: "SELECT 1"}}
			},
			wantErr: true,
		},
		{
			name: "unknown filter operator",
			mutate: func(r *Report) {
				r.Filters = []Filter{{Field: "status", Operator: "between"}}
			},
			wantErr: true,
		},
		{
			name: "relationship with bad column",
			mutate: func(r *Report) {
				r.Relationships = []Relationship{{
					SourceTable: "orders", TargetTable: "customers", SourceColumn: "1; --",
				}}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validReport()
			tt.mutate(r)
			err := r.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFileExtension(t *testing.T) {
	tests := []struct {
		format ReportFormat
		want   string
	}{
		{FormatPDF, "pdf"},
		{FormatExcel, "xlsx"},
		{FormatCSV, "csv"},
		{FormatPowerPoint, "pdf"},
		{ReportFormat("unknown"), "pdf"},
	}

	for _, tt := range tests {
		if got := tt.format.FileExtension(); got != tt.want {
			t.Errorf("FileExtension(%s) = %q, want %q", tt.format, got, tt.want)
		}
	}
}
