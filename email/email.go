package email

import (
	"fmt"
	"net/smtp"
	"os"
)

type EmailService struct {
	host     string
	port     string
	user     string
	password string
	from     string
}

func NewEmailService() *EmailService {
	return &EmailService{
		host:     os.Getenv("SMTP_HOST"),
		port:     os.Getenv("SMTP_PORT"),
		user:     os.Getenv("SMTP_USER"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     os.Getenv("SMTP_FROM"),
	}
}

func (e *EmailService) SendVerificationEmail(to, confirmURL string) error {
	subject := "Please confirm your subscription"
	body := fmt.Sprintf(`Hello!

Thank you for subscribing to the newsletter.

To confirm your subscription and start receiving newsletters, click the link below:

%s

If you did not subscribe, you can safely ignore this email.
`, confirmURL)

	return e.send(to, subject, "text/plain; charset=utf-8", body)
}

func (e *EmailService) SendNewsletter(to, subject, htmlBody string) error {
	return e.send(to, subject, "text/html; charset=utf-8", htmlBody)
}

func (e *EmailService) send(to, subject, contentType, body string) error {
	message := buildMessage(e.from, to, subject, contentType, body)

	auth := smtp.PlainAuth("", e.user, e.password, e.host)
	addr := fmt.Sprintf("%s:%s", e.host, e.port)

	if err := smtp.SendMail(addr, auth, e.from, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("error sending email: %v", err)
	}

	return nil
}

func buildMessage(from, to, subject, contentType, body string) string {
	return fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: %s\r\n"+
		"\r\n"+
		"%s\r\n", from, to, subject, contentType, body)
}
