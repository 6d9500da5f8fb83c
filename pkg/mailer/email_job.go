package mailer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oksasatya/go-ems-backend/pkg/mailer/templates"
)

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Either Template (+Data) or Subject with Text/HTML must be set.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // e.g. "welcome"
	Data     map[string]any `json:"data,omitempty"`
}

// Message is a rendered email ready for delivery.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// ErrEmptyJob is returned for jobs that carry neither a template nor content.
var ErrEmptyJob = errors.New("email job has no template or content")

// Build renders the job into a Message.
func (j EmailJob) Build() (Message, error) {
	if strings.TrimSpace(j.To) == "" {
		return Message{}, errors.New("email job has no recipient")
	}
	if j.Template == "" {
		if j.Subject == "" || (j.Text == "" && j.HTML == "") {
			return Message{}, ErrEmptyJob
		}
		return Message{To: j.To, Subject: j.Subject, Text: j.Text, HTML: j.HTML}, nil
	}

	data := j.Data
	if data == nil {
		data = map[string]any{}
	}
	if v, ok := data["Email"]; !ok || fmt.Sprintf("%v", v) == "" {
		data["Email"] = j.To
	}
	subject, text, html, err := templates.Render(j.Template, data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: j.To, Subject: strings.TrimSpace(subject), Text: text, HTML: html}, nil
}
