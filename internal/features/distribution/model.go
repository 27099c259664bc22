package distribution

import (
	"fmt"
	"strings"
	"time"

	common_models "go-reports/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Distribution is the email delivery configuration for one report. There is
// at most one per report; saving again replaces the previous settings.
type Distribution struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ReportID primitive.ObjectID `json:"report_id" bson:"report_id"`

	IsEnabled bool `json:"is_enabled" bson:"is_enabled"`

	// Templates support {report_name}, {date} and {row_count} placeholders
	SubjectTemplate string `json:"subject_template" bson:"subject_template"`
	BodyTemplate    string `json:"body_template" bson:"body_template"`

	Recipients []common_models.Recipient `json:"recipients" bson:"recipients"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

func (d *Distribution) Validate() error {
	if d.ReportID.IsZero() {
		return fmt.Errorf("distribution requires a report_id")
	}
	if d.IsEnabled && len(d.Recipients) == 0 {
		return fmt.Errorf("enabled distribution requires at least one recipient")
	}
	for _, r := range d.Recipients {
		if !strings.Contains(r.Email, "@") {
			return fmt.Errorf("invalid recipient email %q", r.Email)
		}
	}
	return nil
}

// RenderTemplate fills the placeholder values into a subject or body template
func RenderTemplate(tmpl, reportName string, generatedAt time.Time, rowCount int) string {
	if tmpl == "" {
		return tmpl
	}
	return strings.NewReplacer(
		"{report_name}", reportName,
		"{date}", generatedAt.Format("2006-01-02"),
		"{row_count}", fmt.Sprintf("%d", rowCount),
	).Replace(tmpl)
}
