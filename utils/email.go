package utils

import (
	"os"
	"strconv"

	"gopkg.in/gomail.v2"
)

// SendEmail delivers a plain-text message through the SMTP account from the
// environment. Returns an error the caller is expected to log, not surface.
func SendEmail(to, subject, body string) error {
	host := os.Getenv("SMTP_HOST")
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASS")
	port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		port = 465
	}

	m := gomail.NewMessage()
	m.SetHeader("From", user)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(host, port, user, pass)
	return d.DialAndSend(m)
}

// EmailConfigured reports whether the SMTP account is set up at all.
func EmailConfigured() bool {
	return os.Getenv("SMTP_HOST") != "" && os.Getenv("SMTP_USER") != ""
}
