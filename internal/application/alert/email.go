package alert

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/lifeconnect/lifeconnect-api/internal/domain"
)

var priorityLabels = map[int]string{
	0: "Low",
	1: "Medium",
	2: "High",
	3: "Critical",
}

var alertTypeColors = map[string]string{
	domain.AlertTypeInfo:    "#17a2b8",
	domain.AlertTypeWarning: "#ffc107",
	domain.AlertTypeError:   "#dc3545",
	domain.AlertTypeSuccess: "#28a745",
}

var emailTmpl = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2>LifeConnect Alert System</h2>
    <p>Dear {{.Name}},</p>
    <p>
      <span style="padding: 4px 8px; border-radius: 4px; color: white; background: {{.Color}}; font-size: 12px; text-transform: uppercase;">{{.Type}}</span>
      &nbsp;Priority: <strong>{{.Priority}}</strong>
    </p>
    <h3>{{.Title}}</h3>
    <div style="background: #f9f9f9; padding: 15px; border-left: 4px solid {{.Color}};">{{.Message}}</div>
    {{if .Expires}}<p><strong>Expires:</strong> {{.Expires}}</p>{{end}}
    <hr>
    <p style="font-size: 13px; color: #666;">
      This is an automated message from the LifeConnect system. Please do not reply to this email.
    </p>
  </div>
</body>
</html>
`))

type emailData struct {
	Name     string
	Type     string
	Priority string
	Title    string
	Message  string
	Color    string
	Expires  string
}

func emailSubject(a *domain.Alert) string {
	return fmt.Sprintf("[%s] %s", strings.ToUpper(a.Type), a.Title)
}

func renderAlertEmail(rcpt domain.Recipient, a *domain.Alert) (string, error) {
	data := emailData{
		Name:     rcpt.Name,
		Type:     a.Type,
		Priority: priorityLabels[a.Priority],
		Title:    a.Title,
		Message:  a.Message,
		Color:    alertTypeColors[a.Type],
	}
	if data.Color == "" {
		data.Color = "#6c757d"
	}
	if a.ExpiresAt != nil {
		data.Expires = a.ExpiresAt.Format(time.RFC1123)
	}
	var b strings.Builder
	if err := emailTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render alert email: %w", err)
	}
	return b.String(), nil
}
