package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
)

// Sender delivers HTML mail through the configured SMTP relay. Port 465
// gets implicit TLS; anything else goes through smtp.SendMail (STARTTLS
// when the server offers it).
type Sender struct {
	host string
	port string
	user string
	pass string
}

func NewSender(host, port, user, pass string) *Sender {
	return &Sender{host: host, port: port, user: user, pass: pass}
}

func (s *Sender) Send(_ context.Context, to, subject, html string) error {
	if s.user == "" {
		return fmt.Errorf("smtp is not configured")
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", s.user))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.WriteString(html)

	addr := s.host + ":" + s.port
	auth := smtp.PlainAuth("", s.user, s.pass, s.host)

	if s.port != "465" {
		return smtp.SendMail(addr, auth, s.user, []string{to}, []byte(msg.String()))
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.host})
	if err != nil {
		return err
	}
	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return err
	}
	if err := client.Mail(s.user); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(msg.String())); err != nil {
		return err
	}
	return w.Close()
}
