package mail

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/mediavault/internal/logging"
)

// Notifier renders account e-mails and hands them to a Sender. Delivery
// failures are logged and swallowed; callers never learn about them.
type Notifier struct {
	sender    Sender
	baseURL   string
	verifyTTL time.Duration
	resetTTL  time.Duration
	log       logging.Logger
}

func NewNotifier(sender Sender, baseURL string, verifyTTL, resetTTL time.Duration, log logging.Logger) *Notifier {
	return &Notifier{
		sender:    sender,
		baseURL:   strings.TrimRight(baseURL, "/"),
		verifyTTL: verifyTTL,
		resetTTL:  resetTTL,
		log:       log,
	}
}

// SendVerification mails the e-mail verification link.
func (n *Notifier) SendVerification(ctx context.Context, to, username, token string) {
	link := n.baseURL + "/auth/verify-email?token=" + url.QueryEscape(token)
	html, text, err := render(verifyHTML, verifyText, templateData{Username: username, Link: link, TTL: n.verifyTTL.String()})
	if err != nil {
		n.log.Error(ctx, "render verification mail", "error", err)
		return
	}
	n.send(ctx, Message{To: to, Subject: "Confirm your MediaVault e-mail", HTML: html, Text: text})
}

// SendPasswordReset mails the password reset link.
func (n *Notifier) SendPasswordReset(ctx context.Context, to, username, token string) {
	link := n.baseURL + "/auth/password-reset/confirm?token=" + url.QueryEscape(token)
	html, text, err := render(resetHTML, resetText, templateData{Username: username, Link: link, TTL: n.resetTTL.String()})
	if err != nil {
		n.log.Error(ctx, "render reset mail", "error", err)
		return
	}
	n.send(ctx, Message{To: to, Subject: "Reset your MediaVault password", HTML: html, Text: text})
}

func (n *Notifier) send(ctx context.Context, msg Message) {
	if err := n.sender.Send(ctx, msg); err != nil {
		n.log.Warn(ctx, "mail delivery failed", "to", msg.To, "subject", msg.Subject, "error", err)
		return
	}
	n.log.Debug(ctx, "mail sent", "to", msg.To, "subject", msg.Subject)
}

// LogSender writes messages to the log instead of sending them. Used when
// no SMTP host is configured.
type LogSender struct {
	Log logging.Logger
}

func (s LogSender) Send(ctx context.Context, msg Message) error {
	s.Log.Info(ctx, "mail (not sent)", "to", msg.To, "subject", msg.Subject, "body", msg.Text)
	return nil
}
