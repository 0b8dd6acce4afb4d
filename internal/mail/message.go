package mail

import (
	gomail "github.com/go-mail/mail"
)

// BuildMessage assembles one RFC 5322 message for a single recipient.
// When both bodies are present the result is multipart/alternative
// (text first, HTML preferred by capable clients).
func BuildMessage(fromName, fromAddr, to, subject, htmlBody, textBody string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", fromAddr, fromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)

	if textBody != "" {
		m.SetBody("text/plain", textBody)
	}
	if htmlBody != "" {
		if textBody == "" {
			m.SetBody("text/html", htmlBody)
		} else {
			m.AddAlternative("text/html", htmlBody)
		}
	}
	return m
}
