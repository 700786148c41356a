package core

import (
	"net/mail"
)

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain content

		// Category groups messages at the provider (e.g. "receipt"), Ref names the record a message is about.
		Category string
		Ref      string

		TextContent string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) Render() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return m.TextContent != "" }

// LogExtras returns what identifies m in error reports.
func (m *EmailMessage) LogExtras() map[string]interface{} {
	to := make([]string, 0, len(m.To))
	for _, addr := range m.To {
		to = append(to, addr.Address)
	}
	return map[string]interface{}{"to": to, "category": m.Category, "ref": m.Ref}
}
