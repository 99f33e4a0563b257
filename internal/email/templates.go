package email

import (
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/victorbash400/canary/internal/model"
	"github.com/victorbash400/canary/internal/prefs"
)

const (
	maxUrgentArticles  = 2
	maxRegularArticles = 4
)

type digestData struct {
	Username    string
	Urgent      []*model.Article
	Regular     []*model.Article
	FrontendURL string
}

var digestHTML = htmltemplate.Must(htmltemplate.New("digest").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; color: #1a1a1a;">
  <h1 style="color: #f59e0b;">🐤 Canary</h1>
  <p>Hi {{.Username}}, here's what's happening with your topics:</p>
  {{if .Urgent}}
  <h2 style="color: #dc2626;">🚨 Urgent</h2>
  {{range .Urgent}}
  <div style="border-left: 4px solid #dc2626; padding: 8px 12px; margin-bottom: 12px;">
    <h3 style="margin: 0 0 4px;"><a href="{{.URL}}" style="color: #1a1a1a;">{{.Title}}</a></h3>
    <p style="margin: 0;">{{.Summary}}</p>
    <small>{{.Category}} · relevance {{.RelevanceScore}}</small>
  </div>
  {{end}}
  {{end}}
  {{if .Regular}}
  <h2>📰 Your updates</h2>
  {{range .Regular}}
  <div style="border-left: 4px solid #f59e0b; padding: 8px 12px; margin-bottom: 12px;">
    <h3 style="margin: 0 0 4px;"><a href="{{.URL}}" style="color: #1a1a1a;">{{.Title}}</a></h3>
    <p style="margin: 0;">{{.Summary}}</p>
    <small>{{.Category}} · relevance {{.RelevanceScore}}</small>
  </div>
  {{end}}
  {{end}}
  <p><a href="{{.FrontendURL}}">Open Canary</a> to adjust your topics and email settings.</p>
</body>
</html>`))

var digestText = texttemplate.Must(texttemplate.New("digest").Parse(`Hi {{.Username}}, here's what's happening with your topics:
{{if .Urgent}}
URGENT
{{range .Urgent}}- {{.Title}} ({{.URL}})
  {{.Summary}}
{{end}}{{end}}{{if .Regular}}
YOUR UPDATES
{{range .Regular}}- {{.Title}} ({{.URL}})
  {{.Summary}}
{{end}}{{end}}
Open {{.FrontendURL}} to adjust your topics and email settings.
`))

// BuildDigest renders the digest email for a set of already-filtered,
// already-sorted articles. Urgent items are capped at 2 and regular at 4.
func BuildDigest(to, username string, articles []*model.Article, frontendURL string) (Message, error) {
	data := digestData{Username: username, FrontendURL: frontendURL}
	for _, a := range articles {
		if a.Urgency == model.UrgencyHigh && len(data.Urgent) < maxUrgentArticles {
			data.Urgent = append(data.Urgent, a)
		} else if a.Urgency != model.UrgencyHigh && len(data.Regular) < maxRegularArticles {
			data.Regular = append(data.Regular, a)
		}
	}

	var html, text strings.Builder
	if err := digestHTML.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render digest html: %w", err)
	}
	if err := digestText.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render digest text: %w", err)
	}
	return Message{
		To:      to,
		Subject: digestSubject(len(data.Urgent), len(data.Urgent)+len(data.Regular)),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

func digestSubject(urgent, total int) string {
	if urgent > 0 {
		return fmt.Sprintf("🚨 %d Urgent %s from Canary", urgent, plural(urgent, "Update", "Updates"))
	}
	return fmt.Sprintf("📰 %d News %s from Canary", total, plural(total, "Update", "Updates"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// BuildWelcome renders the email sent right after registration.
func BuildWelcome(to, username, frontendURL string) Message {
	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; color: #1a1a1a;">
  <h1 style="color: #f59e0b;">🐤 Welcome to Canary, %s!</h1>
  <p>Canary watches the news for you. Tell it what to track in chat, for example:</p>
  <ul>
    <li>"Track Tesla stock and AI regulation"</li>
    <li>"Email me daily with urgent news only"</li>
  </ul>
  <p><a href="%s">Start a conversation</a> to set up your first topics.</p>
</body>
</html>`, htmltemplate.HTMLEscapeString(username), frontendURL)

	text := fmt.Sprintf(`Welcome to Canary, %s!

Canary watches the news for you. Tell it what to track in chat, for example:
- "Track Tesla stock and AI regulation"
- "Email me daily with urgent news only"

Start at %s
`, username, frontendURL)

	return Message{To: to, Subject: "🐤 Welcome to Canary", HTML: html, Text: text}
}

// BuildPreferenceConfirmation renders the email sent after chat changed a
// user's tracking or email settings.
func BuildPreferenceConfirmation(to, username string, changes []string, p model.Preferences, frontendURL string) Message {
	var items strings.Builder
	for _, c := range changes {
		items.WriteString("<li>" + htmltemplate.HTMLEscapeString(c) + "</li>\n")
	}

	tracking := "nothing yet"
	if len(p.MonitoringTopics) > 0 {
		tracking = strings.Join(p.MonitoringTopics, ", ")
	}
	emailLine := "off"
	if p.EmailNotifications {
		emailLine = prefs.DescribeFrequency(p.EmailFrequencyHours)
	}

	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; color: #1a1a1a;">
  <h1 style="color: #f59e0b;">🐤 Canary settings updated</h1>
  <p>Hi %s, your settings changed:</p>
  <ul>%s</ul>
  <p>📈 Tracking: %s<br>📧 Email: %s</p>
  <p><a href="%s">Open Canary</a> to review.</p>
</body>
</html>`, htmltemplate.HTMLEscapeString(username), items.String(),
		htmltemplate.HTMLEscapeString(tracking), htmltemplate.HTMLEscapeString(emailLine), frontendURL)

	text := fmt.Sprintf(`Hi %s, your Canary settings changed:

%s

Tracking: %s
Email: %s

Review at %s
`, username, strings.Join(changes, "\n"), tracking, emailLine, frontendURL)

	return Message{To: to, Subject: "🐤 Your Canary settings were updated", HTML: html, Text: text}
}
