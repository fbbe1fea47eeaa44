package common

// EmailSender is the outbound mail contract. The worker sends low stock
// alerts through it; production deployments plug in a real provider.
type EmailSender interface {
	Send(to, subject, html string) error
}

// Email is one captured message.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// InMemoryEmail collects messages for assertions in tests.
type InMemoryEmail struct {
	Outbox []Email
}

func (m *InMemoryEmail) Send(to, subject, html string) error {
	if m == nil {
		return nil
	}
	m.Outbox = append(m.Outbox, Email{To: to, Subject: subject, HTML: html})
	return nil
}

// NopEmailSender drops every message. The default until SMTP is configured.
type NopEmailSender struct{}

func (NopEmailSender) Send(string, string, string) error { return nil }
