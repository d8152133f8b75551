package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"counsel/pkg/model"
	"counsel/pkg/sanitizer"
)

const confirmationSubject = "Booking Confirmation - Career Counselling"

var confirmationTemplate = template.Must(template.New("confirmation").Funcs(template.FuncMap{
	"label": func(s string) string { return strings.ToUpper(strings.ReplaceAll(s, "_", " ")) },
	"date":  func(t time.Time) string { return t.UTC().Format("Monday, January 2, 2006") },
	"clock": func(t time.Time) string { return t.UTC().Format("15:04 UTC") },
	"lines": func(s string) []string { return strings.Split(s, "\n") },
}).Parse(`<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #e2e8f0; border-radius: 12px;">
  <h1 style="color: #0f172a; font-size: 28px; text-align: center;">Booking Confirmed!</h1>
  <p style="color: #475569; font-size: 16px;">Hello {{.StudentName}},</p>
  <p style="color: #475569; font-size: 16px;">Your counselling session{{if .SessionTitle}} <strong>{{.SessionTitle}}</strong>{{end}}{{if .ExpertName}} with <strong style="color: #0f172a;">{{.ExpertName}}</strong>{{end}} has been {{if eq .Status "pending"}}requested{{else}}booked{{end}}.</p>
  <table style="width: 100%; border-collapse: collapse; margin: 25px 0;">
    <tr><td style="padding: 8px 0; color: #64748b;">SESSION TYPE</td><td style="text-align: right; font-weight: 600;">{{label .SessionType}}</td></tr>
    <tr><td style="padding: 8px 0; color: #64748b;">DATE</td><td style="text-align: right; font-weight: 600;">{{date .ScheduledAt}}</td></tr>
    <tr><td style="padding: 8px 0; color: #64748b;">TIME</td><td style="text-align: right; font-weight: 600;">{{clock .ScheduledAt}}</td></tr>
    <tr><td style="padding: 8px 0; color: #64748b;">DURATION</td><td style="text-align: right; font-weight: 600;">{{.Duration}} minutes</td></tr>
  </table>
  {{- if .Notes}}
  <p style="color: #475569; font-size: 14px;"><strong>Notes:</strong>{{range lines .Notes}}<br>{{.}}{{end}}</p>
  {{- end}}
  <p style="color: #92400e; font-size: 14px; background-color: #fffbeb; padding: 15px;"><strong>Reminder:</strong> Please ensure you have a stable internet connection and join the meeting 5 minutes early.</p>
  <p style="color: #64748b; font-size: 14px; text-align: center;">Best regards,<br><strong>The Career Counselling Team</strong></p>
</div>
`))

type confirmationData struct {
	StudentName  string
	ExpertName   string
	SessionTitle string
	SessionType  string
	Status       string
	ScheduledAt  time.Time
	Duration     int
	Notes        string
}

// RenderConfirmation builds the booking confirmation email for the student.
// Event text is stripped of markup before it is escaped into the template.
func RenderConfirmation(event *model.BookingEvent) (Email, error) {
	name := sanitizer.SanitizeText(event.StudentName)
	if name == "" {
		name = "there"
	}

	data := confirmationData{
		StudentName:  name,
		ExpertName:   sanitizer.SanitizeText(event.ExpertName),
		SessionTitle: sanitizer.SanitizeText(event.SessionTitle),
		SessionType:  sanitizer.SanitizeText(event.SessionType),
		Status:       string(event.Status),
		ScheduledAt:  event.ScheduledAt,
		Duration:     event.Duration,
		Notes:        sanitizer.SanitizeMultiline(event.Notes),
	}

	var buf bytes.Buffer
	if err := confirmationTemplate.Execute(&buf, data); err != nil {
		return Email{}, fmt.Errorf("failed to render confirmation: %w", err)
	}

	return Email{
		To:      event.StudentEmail,
		Subject: confirmationSubject,
		HTML:    buf.String(),
	}, nil
}
