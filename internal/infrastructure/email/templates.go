package email

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"
	_ "time/tzdata"
)

var london = func() *time.Location {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		return time.UTC
	}
	return loc
}()

type documentsView struct {
	DocumentsEmail
	Greeting string
	Start    string
	End      string
	Expiry   string

	// RetrieveURL is the self-service page on the public site
	RetrieveURL string
}

var textBody = texttemplate.Must(texttemplate.New("text").Parse(`{{.Greeting}}

{{if .Resend}}As requested, here are your policy documents again.{{else}}Thank you for buying temporary cover with us. Your policy is confirmed.{{end}}

Policy number: {{.PolicyNumber}}
Vehicle: {{.Registration}}
Cover starts: {{.Start}}
Cover ends: {{.End}}

Your Certificate of Motor Insurance and Statement of Fact are attached.
{{range .Attachments}}
{{.FileName}}: {{.URL}}{{end}}
{{if .Expiry}}
These download links expire in {{.Expiry}}.{{end}}
{{if .RetrieveURL}}
You can get your documents again at any time from {{.RetrieveURL}}
{{end}}
Please check your Statement of Fact and tell us straight away if anything is wrong.
`))

var htmlBody = htmltemplate.Must(htmltemplate.New("html").Parse(`<!DOCTYPE html>
<html lang="en-GB"><body style="font-family:Arial,sans-serif;color:#1a1a1a;line-height:1.5">
<p>{{.Greeting}}</p>
<p>{{if .Resend}}As requested, here are your policy documents again.{{else}}Thank you for buying temporary cover with us. Your policy is confirmed.{{end}}</p>
<table cellpadding="4" style="border-collapse:collapse">
<tr><td><strong>Policy number</strong></td><td>{{.PolicyNumber}}</td></tr>
<tr><td><strong>Vehicle</strong></td><td>{{.Registration}}</td></tr>
<tr><td><strong>Cover starts</strong></td><td>{{.Start}}</td></tr>
<tr><td><strong>Cover ends</strong></td><td>{{.End}}</td></tr>
</table>
<p>Your Certificate of Motor Insurance and Statement of Fact are attached. You can also download them here:</p>
<ul>{{range .Attachments}}<li><a href="{{.URL}}">{{.FileName}}</a></li>{{end}}</ul>
{{if .Expiry}}<p style="font-size:12px;color:#555">These links expire in {{.Expiry}}.</p>{{end}}
{{if .RetrieveURL}}<p>You can get your documents again at any time from <a href="{{.RetrieveURL}}">our website</a>.</p>{{end}}
<p>Please check your Statement of Fact and tell us straight away if anything is wrong.</p>
</body></html>`))

// retrievePath is the public site page that calls the retrieval API
const retrievePath = "/retrieve"

func renderDocumentsEmail(msg DocumentsEmail, siteURL string) (subject, text, html string, err error) {
	view := documentsView{
		DocumentsEmail: msg,
		Greeting:       "Hello,",
		Start:          formatWhen(msg.StartAt),
		End:            formatWhen(msg.EndAt),
		Expiry:         formatExpiry(msg.LinkExpiry),
	}
	if siteURL = strings.TrimRight(siteURL, "/"); siteURL != "" {
		view.RetrieveURL = siteURL + retrievePath
	}
	if name := strings.TrimSpace(msg.Name); name != "" {
		view.Greeting = fmt.Sprintf("Hi %s,", strings.Fields(name)[0])
	}

	var tb, hb bytes.Buffer
	if err := textBody.Execute(&tb, view); err != nil {
		return "", "", "", fmt.Errorf("render email text: %w", err)
	}
	if err := htmlBody.Execute(&hb, view); err != nil {
		return "", "", "", fmt.Errorf("render email html: %w", err)
	}

	subject = fmt.Sprintf("Your temporary car insurance documents - %s", msg.PolicyNumber)
	if msg.Resend {
		subject = fmt.Sprintf("Your policy documents (resent) - %s", msg.PolicyNumber)
	}
	return subject, tb.String(), hb.String(), nil
}

func formatWhen(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(london).Format("15:04 Mon 2 Jan 2006")
}

func formatExpiry(d time.Duration) string {
	switch {
	case d <= 0:
		return ""
	case d%(24*time.Hour) == 0:
		days := int(d / (24 * time.Hour))
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	default:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
}
