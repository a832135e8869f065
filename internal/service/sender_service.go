package service

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"carrental/internal/db"
	"carrental/internal/entities"
	"carrental/internal/logger"
)

//go:embed templates/booking_email.html
var templatesFS embed.FS

var bookingEmailTmpl = template.Must(template.ParseFS(templatesFS, "templates/booking_email.html"))

// Notifier tells customers about things that happened to their account or bookings.
type Notifier interface {
	BookingStatusChanged(b db.Booking)
	PasswordReset(email, name, link string)
}

const sendTimeout = 15 * time.Second

type SenderService struct {
	appName string
	mailer  Mailer
	sms     SMSSender
	log     logger.ILogger
}

func NewSenderService(appName string, mailer Mailer, sms SMSSender, log logger.ILogger) *SenderService {
	return &SenderService{appName: appName, mailer: mailer, sms: sms, log: log}
}

func statusLabel(status string) string {
	switch status {
	case db.BookingConfirmed:
		return "approved"
	case db.BookingCancelled:
		return "cancelled"
	case db.BookingActive:
		return "active"
	case db.BookingCompleted:
		return "completed"
	}
	return status
}

// BookingStatusChanged emails and texts the customer in the background.
func (s *SenderService) BookingStatusChanged(b db.Booking) {
	if b.User == nil || b.User.Email == "" {
		s.log.Warning("booking has no contact details, skipping notification", logger.String("booking", b.ID))
		return
	}

	label := statusLabel(b.Status)
	data := entities.BookingEmailData{
		AppName:            s.appName,
		UserName:           b.User.FullName,
		BookingID:          b.ID,
		StartDateFormatted: b.StartDate.Format("02 Jan 2006"),
		EndDateFormatted:   b.EndDate.Format("02 Jan 2006"),
		TotalPrice:         fmt.Sprintf("₹%.2f", b.TotalPrice),
		Status:             label,
		CurrentYear:        time.Now().Year(),
	}
	if b.Car != nil {
		data.CarName = b.Car.Brand + " " + b.Car.Model
	}
	if b.CancellationReason != nil {
		data.Reason = *b.CancellationReason
	}

	subject := fmt.Sprintf("Your %s booking is %s", s.appName, label)
	plain := fmt.Sprintf("Hello %s,\n\nYour booking %s for %s (%s to %s) is %s.\n",
		data.UserName, data.BookingID, data.CarName, data.StartDateFormatted, data.EndDateFormatted, label)
	if data.Reason != "" {
		plain += "Reason: " + data.Reason + "\n"
	}
	plain += fmt.Sprintf("\nThank you for choosing %s.", s.appName)

	var html bytes.Buffer
	if err := bookingEmailTmpl.Execute(&html, data); err != nil {
		s.log.Error("render booking email", logger.String("booking", b.ID), logger.Error(err))
	}

	toEmail, toName, phone := b.User.Email, b.User.FullName, b.User.Phone
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := s.mailer.Send(ctx, toEmail, toName, subject, plain, html.String()); err != nil {
			s.log.Error("booking email failed", logger.String("booking", data.BookingID), logger.Error(err))
		}
		if phone == "" {
			return
		}
		msg := fmt.Sprintf("%s: booking %s is %s. Pick-up %s.", s.appName, data.BookingID, label, b.StartDate.Format("02/01"))
		if err := s.sms.Send(ctx, phone, msg); err != nil {
			s.log.Error("booking sms failed", logger.String("booking", data.BookingID), logger.Error(err))
		}
	}()
}

func (s *SenderService) PasswordReset(email, name, link string) {
	subject := fmt.Sprintf("Reset your %s password", s.appName)
	plain := fmt.Sprintf("Hello %s,\n\nUse the link below to choose a new password. It expires in one hour.\n\n%s\n", name, link)
	html := fmt.Sprintf(`<p>Hello %s,</p><p><a href="%s">Choose a new password</a>. The link expires in one hour.</p>`,
		template.HTMLEscapeString(name), template.HTMLEscapeString(link))

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := s.mailer.Send(ctx, email, name, subject, plain, html); err != nil {
			s.log.Error("password reset email failed", logger.String("to", email), logger.Error(err))
		}
	}()
}
