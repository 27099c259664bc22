package distribution

import (
	"testing"
	"time"

	common_models "go-reports/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRenderTemplate(t *testing.T) {
	generatedAt := time.Date(2026, 8, 29, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		tmpl string
		want string
	}{
		{
			name: "all placeholders",
			tmpl: "{report_name} for {date} ({row_count} rows)",
			want: "Monthly Sales for 2026-08-29 (42 rows)",
		},
		{
			name: "no placeholders passes through",
			tmpl: "Your report is ready",
			want: "Your report is ready",
		},
		{
			name: "empty stays empty",
			tmpl: "",
			want: "",
		},
		{
			name: "repeated placeholder",
			tmpl: "{report_name} / {report_name}",
			want: "Monthly Sales / Monthly Sales",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderTemplate(tt.tmpl, "Monthly Sales", generatedAt, 42)
			if got != tt.want {
				t.Errorf("RenderTemplate(%q) = %q, want %q", tt.tmpl, got, tt.want)
			}
		})
	}
}

func TestDistributionValidate(t *testing.T) {
	reportID := primitive.NewObjectID()

	tests := []struct {
		name    string
		dist    Distribution
		wantErr bool
	}{
		{
			name: "valid enabled config",
			dist: Distribution{
				ReportID:   reportID,
				IsEnabled:  true,
				Recipients: []common_models.Recipient{{Name: "Ops", Email: "ops@example.com"}},
			},
		},
		{
			name: "disabled config may have no recipients",
			dist: Distribution{ReportID: reportID},
		},
		{
			name:    "missing report id",
			dist:    Distribution{IsEnabled: false},
			wantErr: true,
		},
		{
			name:    "enabled without recipients",
			dist:    Distribution{ReportID: reportID, IsEnabled: true},
			wantErr: true,
		},
		{
			name: "malformed recipient email",
			dist: Distribution{
				ReportID:   reportID,
				Recipients: []common_models.Recipient{{Email: "not-an-address"}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.dist.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
