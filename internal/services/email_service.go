package services

import (
	"fmt"
	"log"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/example/velora/internal/models"
)

// EmailService notifies customers about cancellation decisions over SMTP.
type EmailService struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewEmailService constructs an EmailService. With an empty host the service
// logs instead of sending.
func NewEmailService(host string, port int, username, password, from string) *EmailService {
	return &EmailService{host: host, port: port, username: username, password: password, from: from}
}

// NotifyDecision emails the customer the outcome of their cancellation
// request, including the frozen refund figures on approval.
func (s *EmailService) NotifyDecision(req *models.CancellationRequest, order *models.Order, user *models.User) error {
	if user == nil || user.Email == "" {
		log.Printf("[Email] no address for request %s, skipping", req.ID)
		return nil
	}
	if s.host == "" {
		log.Printf("[Email] SMTP not configured, skipping decision mail for request %s", req.ID)
		return nil
	}

	subject := fmt.Sprintf("Your cancellation request for order %s", order.OrderNumber)
	body := s.decisionBody(req, order, user)

	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return err
	}
	if err := msg.To(user.Email); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	client, err := mail.NewClient(s.host,
		mail.WithPort(s.port),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(s.username),
		mail.WithPassword(s.password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}

	log.Printf("[Email] sending decision mail for request %s to %s", req.ID, user.Email)
	return client.DialAndSend(msg)
}

func (s *EmailService) decisionBody(req *models.CancellationRequest, order *models.Order, user *models.User) string {
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = "customer"
	}

	var b strings.Builder
	b.WriteString(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: auto;">`)
	b.WriteString(fmt.Sprintf("<h2>Order %s</h2>", order.OrderNumber))
	b.WriteString(fmt.Sprintf("<p>Hello %s,</p>", name))

	switch req.Status {
	case models.CancellationStatusApproved, models.CancellationStatusProcessed:
		b.WriteString("<p>Your cancellation request has been <b>approved</b>.</p>")
		b.WriteString(fmt.Sprintf("<p>Refund: <b>%.2f %s</b> (%.0f%% of the cancelled value)</p>",
			req.RefundAmount, order.Currency, req.RefundPercentage))
		b.WriteString("<p>The refund will be issued to your original payment method.</p>")
	case models.CancellationStatusRejected:
		b.WriteString("<p>Your cancellation request has been <b>declined</b>.</p>")
		if req.AdminNotes != "" {
			b.WriteString(fmt.Sprintf("<p>Reason: %s</p>", req.AdminNotes))
		}
	}

	b.WriteString("</div>")
	return b.String()
}
