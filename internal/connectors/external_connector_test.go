package connectors

import (
	"reflect"
	"testing"
)

func TestRebindNamedParams(t *testing.T) {
	tests := []struct {
		name      string
		dbType    string
		query     string
		params    map[string]interface{}
		wantQuery string
		wantArgs  []interface{}
		wantErr   bool
	}{
		{
			name:      "postgres positional numbering",
			dbType:    "postgresql",
			query:     "SELECT * FROM orders WHERE status = :param_0 AND total > :param_1",
			params:    map[string]interface{}{"param_0": "shipped", "param_1": 100},
			wantQuery: "SELECT * FROM orders WHERE status = $1 AND total > $2",
			wantArgs:  []interface{}{"shipped", 100},
		},
		{
			name:      "mysql question marks",
			dbType:    "mysql",
			query:     "SELECT * FROM orders WHERE status = :param_0 AND total > :param_1",
			params:    map[string]interface{}{"param_0": "shipped", "param_1": 100},
			wantQuery: "SELECT * FROM orders WHERE status = ? AND total > ?",
			wantArgs:  []interface{}{"shipped", 100},
		},
		{
			name:      "same parameter used twice binds twice",
			dbType:    "postgresql",
			query:     "SELECT * FROM t WHERE a = :p OR b = :p",
			params:    map[string]interface{}{"p": 7},
			wantQuery: "SELECT * FROM t WHERE a = $1 OR b = $2",
			wantArgs:  []interface{}{7, 7},
		},
		{
			name:      "postgres cast operator untouched",
			dbType:    "postgresql",
			query:     "SELECT created_at::date FROM orders WHERE status = :param_0",
			params:    map[string]interface{}{"param_0": "shipped"},
			wantQuery: "SELECT created_at::date FROM orders WHERE status = $1",
			wantArgs:  []interface{}{"shipped"},
		},
		{
			name:      "colon inside string literal untouched",
			dbType:    "postgresql",
			query:     "SELECT ':param_0' AS note FROM orders WHERE status = :param_0",
			params:    map[string]interface{}{"param_0": "shipped"},
			wantQuery: "SELECT ':param_0' AS note FROM orders WHERE status = $1",
			wantArgs:  []interface{}{"shipped"},
		},
		{
			name:      "no parameters",
			dbType:    "postgresql",
			query:     "SELECT 1",
			params:    map[string]interface{}{},
			wantQuery: "SELECT 1",
		},
		{
			name:    "missing parameter value",
			dbType:  "postgresql",
			query:   "SELECT * FROM orders WHERE status = :param_0",
			params:  map[string]interface{}{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &ExternalDBConnector{dbType: tt.dbType}
			gotQuery, gotArgs, err := c.rebindNamedParams(tt.query, tt.params)
			if (err != nil) != tt.wantErr {
				t.Fatalf("rebindNamedParams() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if gotQuery != tt.wantQuery {
				t.Errorf("query = %q, want %q", gotQuery, tt.wantQuery)
			}
			if len(tt.wantArgs) > 0 && !reflect.DeepEqual(gotArgs, tt.wantArgs) {
				t.Errorf("args = %v, want %v", gotArgs, tt.wantArgs)
			}
		})
	}
}

func TestBuildConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		dbType  string
		config  map[string]interface{}
		want    string
		wantErr bool
	}{
		{
			name:   "postgres defaults port",
			dbType: "postgresql",
			config: map[string]interface{}{
				"host": "db.internal", "database": "sales", "username": "reporter", "password": "s3cret",
			},
			want: "host=db.internal port=5432 user=reporter password=s3cret dbname=sales sslmode=disable",
		},
		{
			name:   "mysql with explicit port",
			dbType: "mysql",
			config: map[string]interface{}{
				"host": "db.internal", "port": 3307, "database": "sales", "username": "reporter", "password": "s3cret",
			},
			want: "reporter:s3cret@tcp(db.internal:3307)/sales?parseTime=true",
		},
		{
			name:    "missing host",
			dbType:  "postgresql",
			config:  map[string]interface{}{"database": "sales", "username": "reporter"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &ExternalDBConnector{dbType: tt.dbType}
			got, err := c.buildConnectionString(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("buildConnectionString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
