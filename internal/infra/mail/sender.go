package mail

import (
	"bytes"
	"fmt"
	"text/template"

	"gopkg.in/gomail.v2"

	"github.com/liguemed/membership-core/internal/usecase"
)

var decisionTemplate = template.Must(template.New("decision").Parse(
	`Hello,

the payment of {{.Amount}} for your lead {{.LeadName}} was marked as "{{.Status}}".

Reviewer note:
{{.Note}}

You can resubmit the attempt after addressing the note:
{{.Link}}
`))

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

func NewEmailSender(host string, port int, user, password, from string) *EmailSender {
	return &EmailSender{Host: host, Port: port, User: user, Password: password, From: from}
}

func (s *EmailSender) SendPaymentDecision(notice usecase.DecisionNotice) error {
	data := struct {
		LeadName string
		Amount   string
		Status   string
		Note     string
		Link     string
	}{
		LeadName: notice.LeadName,
		Amount:   formatAmount(notice.AmountCents, notice.Currency),
		Status:   notice.Status,
		Note:     notice.Note,
		Link:     notice.Link,
	}

	var body bytes.Buffer
	if err := decisionTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("rendering decision mail: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", notice.Email)
	m.SetHeader("Subject", fmt.Sprintf("Payment for %s: %s", notice.LeadName, notice.Status))
	m.SetBody("text/plain", body.String())

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("sending decision mail: %w", err)
	}
	return nil
}

func formatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, currency)
}
