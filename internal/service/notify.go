package service

import (
	"context"

	"carrental/internal/logger"
)

// Mailer delivers one email with a plain and an HTML body.
type Mailer interface {
	Send(ctx context.Context, toEmail, toName, subject, plain, html string) error
}

// SMSSender delivers one text message to an E.164 number.
type SMSSender interface {
	Send(ctx context.Context, toNumber, body string) error
}

// logMailer stands in when no email provider is configured.
type logMailer struct{ log logger.ILogger }

func NewLogMailer(log logger.ILogger) Mailer { return logMailer{log: log} }

func (m logMailer) Send(_ context.Context, toEmail, _, subject, _, _ string) error {
	m.log.Info("email not sent, provider disabled", logger.String("to", toEmail), logger.String("subject", subject))
	return nil
}

type logSMS struct{ log logger.ILogger }

func NewLogSMS(log logger.ILogger) SMSSender { return logSMS{log: log} }

func (m logSMS) Send(_ context.Context, toNumber, _ string) error {
	m.log.Info("sms not sent, provider disabled", logger.String("to", toNumber))
	return nil
}
