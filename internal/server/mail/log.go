package mail

import (
	"context"

	"github.com/distrischool/authservice/internal/logging"
)

// LogSender stands in for SMTP when mail is disabled. It logs the recipient
// and the action link so local flows can be completed by hand. Sensitive
// bodies are never written.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(logger logging.Logger) *LogSender {
	return &LogSender{logger: logger.With("module", "mail_disabled")}
}

func (s *LogSender) Send(ctx context.Context, m Message) error {
	if m.Sensitive {
		s.logger.Warn(ctx, "email disabled, message suppressed", "to", m.To, "subject", m.Subject)
		return nil
	}
	s.logger.Warn(ctx, "email disabled", "to", m.To, "subject", m.Subject, "link", m.Link)
	return nil
}
