package mail

import (
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"
)

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       string
}

func NewEmailSender(host string, port int, user, password, from, to string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		To:       to,
	}
}

// SendQuarantineAlert avisa a operação quando um run deixou jobs em
// quarentena. O last_error de cada job já está no banco; aqui vai só o
// resumo pra alguém acordar e olhar.
func (s *EmailSender) SendQuarantineAlert(quarantined int, lastErrors []string) error {
	var body strings.Builder

	fmt.Fprintf(&body, "O sync do funil deixou %d job(s) em quarentena (status=failed).\n\n", quarantined)
	body.WriteString("Últimos erros:\n")
	for _, e := range lastErrors {
		fmt.Fprintf(&body, "  - %s\n", e)
	}
	body.WriteString("\nJobs em failed não são retentados. Consulte a tabela brevo_sync_outbox.\n")

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", s.To)
	m.SetHeader("Subject", fmt.Sprintf("⚠️ Funnel sync: %d job(s) em quarentena", quarantined))
	m.SetBody("text/plain", body.String())

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("erro ao enviar email SMTP: %w", err)
	}

	return nil
}
