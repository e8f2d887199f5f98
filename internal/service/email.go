package service

import (
	"fmt"
	"net/smtp"

	"github.com/sirupsen/logrus"
)

type EmailService interface{ Send(to, subject, body string) error }

type SMTPConfig struct {
	Host, Port, From string
}

type smtpEmail struct{ cfg SMTPConfig }

type logEmail struct{ log logrus.FieldLogger }

// NewEmailService returns an SMTP sender, or a sender that only logs when no
// SMTP host is configured.
func NewEmailService(cfg SMTPConfig, log logrus.FieldLogger) EmailService {
	if cfg.Host == "" {
		return &logEmail{log: log}
	}
	return &smtpEmail{cfg: cfg}
}

func (s *smtpEmail) Send(to, subject, body string) error {
	addr := s.cfg.Host + ":" + s.cfg.Port

	msg := "From: " + s.cfg.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n" +
		body

	// no auth: the relay is expected on a private network (MailHog in dev)
	return smtp.SendMail(addr, nil, s.cfg.From, []string{to}, []byte(msg))
}

func (s *logEmail) Send(to, subject, _ string) error {
	s.log.WithFields(logrus.Fields{"to": to, "subject": subject}).Debug("smtp not configured, email skipped")
	return nil
}

// Notifier sends the marketplace's transactional mails. Every send is
// best-effort: failures are logged and never returned.
type Notifier struct {
	email EmailService
	log   logrus.FieldLogger
}

func NewNotifier(email EmailService, log logrus.FieldLogger) *Notifier {
	return &Notifier{email: email, log: log}
}

func (n *Notifier) send(to, subject, body string) {
	if n == nil || to == "" {
		return
	}
	if err := n.email.Send(to, subject, body); err != nil {
		n.log.WithError(err).WithField("to", to).Warn("email send failed")
	}
}

func (n *Notifier) ApplicationApproved(to, username string) {
	n.send(to, "Your farmer application was approved",
		fmt.Sprintf("Hello %s,\n\nYour farmer application has been approved. You can now log in and list your products.\n", username))
}

func (n *Notifier) ApplicationDenied(to, username, reason string) {
	n.send(to, "Your farmer application was denied",
		fmt.Sprintf("Hello %s,\n\nYour farmer application was denied.\nReason: %s\n", username, reason))
}

func (n *Notifier) OrderPlaced(to string, orderID uint, total string) {
	n.send(to, "Order confirmation",
		fmt.Sprintf("Thanks! Your order #%d total %s received.", orderID, total))
}
