package mailer

import (
	"fmt"
	"html"
	"strings"

	"atomics-registration-be/internal/entity"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendRegistrationReceived(reg *entity.Registration) error
	SendPaymentConfirmation(reg *entity.Registration) error
	SendAcademyWelcome(reg *entity.Registration) error
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailService struct {
	dialer      sender
	senderEmail string
	senderName  string
}

func NewEmailService(host string, port int, username, password, senderEmail, senderName string) IEmailService {
	return &emailService{
		dialer:      gomail.NewDialer(host, port, username, password),
		senderEmail: senderEmail,
		senderName:  senderName,
	}
}

func (s *emailService) newMessage(to, subject, body string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	return m
}

func (s *emailService) send(m *gomail.Message) error {
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send %q to %v: %w", m.GetHeader("Subject"), m.GetHeader("To"), err)
	}
	return nil
}

func (s *emailService) SendRegistrationReceived(reg *entity.Registration) error {
	return s.send(s.newMessage(reg.Email, "Registration received", registrationReceivedBody(reg)))
}

func registrationReceivedBody(reg *entity.Registration) string {
	var details string
	switch reg.Kind {
	case entity.KindTournament:
		if t := reg.Tournament; t != nil {
			details = row("Tournament", t.Tournament) + row("Dates", t.CupDates) + row("Timings", t.Timings) +
				row("Location", t.Location) + row("Trial", firstNonEmpty(t.TrialDateLabel, t.TrialDate))
		}
	case entity.KindAcademy:
		if a := reg.Academy; a != nil {
			details = row("Teams", strings.Join(a.SelectedTeams, ", ")) +
				row("Start date", a.StartDate.Format("2 January 2006"))
		}
	}

	return fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Thanks for registering with Atomics!</h2>
			<p>We have received the %s registration for <strong>%s</strong> (%s).</p>
			<table style="border-collapse: collapse;">%s%s</table>
			<p>Reference: %s</p>
		</div>
	`, reg.Kind, html.EscapeString(reg.FullName()), html.EscapeString(reg.AgeGroup),
		details, row("Amount due", fmt.Sprintf("%.2f", reg.PaymentAmount)), reg.Id)
}

func (s *emailService) SendPaymentConfirmation(reg *entity.Registration) error {
	paidOn := "-"
	if reg.PaymentDate != nil {
		paidOn = reg.PaymentDate.Format("2 January 2006 15:04 MST")
	}

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Payment received</h2>
			<p>Your payment for <strong>%s</strong> has been confirmed.</p>
			<table style="border-collapse: collapse;">%s%s%s</table>
			<p>See you on the pitch!</p>
		</div>
	`, html.EscapeString(reg.FullName()),
		row("Amount", fmt.Sprintf("%.2f", reg.PaymentAmount)),
		row("Paid on", paidOn),
		row("Payment reference", reg.PaymentRef()))

	return s.send(s.newMessage(reg.Email, "Payment confirmed", body))
}

func (s *emailService) SendAcademyWelcome(reg *entity.Registration) error {
	if reg.Academy == nil {
		return fmt.Errorf("registration %s has no academy details", reg.Id)
	}
	a := reg.Academy

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Welcome to the Atomics Academy, %s!</h2>
			<p>Dear %s, your place has been approved.</p>
			<table style="border-collapse: collapse;">%s%s%s</table>
			<p>Please arrive 15 minutes early for the first session.</p>
		</div>
	`, html.EscapeString(reg.PlayerFirstName), html.EscapeString(a.ParentName),
		row("Start date", a.StartDate.Format("2 January 2006")),
		row("Group", a.AssignedGroup),
		row("Coach", a.AssignedCoach))

	return s.send(s.newMessage(reg.Email, "Welcome to the Atomics Academy", body))
}

func row(label, value string) string {
	if value == "" {
		return ""
	}
	return fmt.Sprintf(`<tr><td style="padding: 4px 12px 4px 0;"><strong>%s</strong></td><td>%s</td></tr>`,
		html.EscapeString(label), html.EscapeString(value))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type nopEmailService struct{}

// NewNopEmailService is used when SMTP is not configured.
func NewNopEmailService() IEmailService {
	return nopEmailService{}
}

func (nopEmailService) SendRegistrationReceived(*entity.Registration) error { return nil }
func (nopEmailService) SendPaymentConfirmation(*entity.Registration) error  { return nil }
func (nopEmailService) SendAcademyWelcome(*entity.Registration) error       { return nil }
