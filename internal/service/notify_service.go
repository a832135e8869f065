package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"carrental/internal/config"
	"carrental/internal/logger"
)

type SendGridMailer struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	log       logger.ILogger
}

func NewSendGridMailer(cfg config.SendGridConfig, log logger.ILogger) *SendGridMailer {
	return &SendGridMailer{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		log:       log,
	}
}

func (m *SendGridMailer) Send(ctx context.Context, toEmailAddress, toName, subject, plainTextContent, htmlContent string) error {
	from := mail.NewEmail(m.fromName, m.fromEmail)
	to := mail.NewEmail(toName, toEmailAddress)
	message := mail.NewSingleEmail(from, subject, to, plainTextContent, htmlContent)

	response, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send to %s: %w", toEmailAddress, err)
	}
	if response.StatusCode >= 200 && response.StatusCode < 300 {
		m.log.Info("email sent",
			logger.String("to", toEmailAddress),
			logger.String("subject", subject),
			logger.Int("status", response.StatusCode))
		return nil
	}
	return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
}

type TwilioSMS struct {
	client     *twilio.RestClient
	fromNumber string
	log        logger.ILogger
}

func NewTwilioSMS(cfg config.TwilioConfig, log logger.ILogger) *TwilioSMS {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username:   cfg.AccountSID,
		Password:   cfg.AuthToken,
		AccountSid: cfg.AccountSID,
	})
	return &TwilioSMS{client: client, fromNumber: cfg.FromNumber, log: log}
}

func (s *TwilioSMS) Send(_ context.Context, toNumber, messageBody string) error {
	if !strings.HasPrefix(toNumber, "+") {
		return fmt.Errorf("phone number %q is not in E.164 format", toNumber)
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(toNumber)
	params.SetFrom(s.fromNumber)
	params.SetBody(messageBody)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio send to %s: %w", toNumber, err)
	}
	if resp != nil && resp.Sid != nil {
		s.log.Info("sms sent", logger.String("to", toNumber), logger.String("sid", *resp.Sid))
	}
	return nil
}
