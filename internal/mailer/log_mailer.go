package mailer

import "log/slog"

// LogMailer renders the message and logs it instead of sending. Used when SMTP is not configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(recipient, templateFile string, data any) error {
	subject, plainBody, _, err := render(templateFile, data)
	if err != nil {
		return err
	}

	m.logger.Info("email", "recipient", recipient, "subject", subject, "body", plainBody)

	return nil
}
