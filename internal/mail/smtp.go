package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/smtp"

	"go.uber.org/zap"

	"github.com/ciepi/portal-service/internal/config"
	"github.com/ciepi/portal-service/internal/domain"
)

var subjectByPurpose = map[domain.TokenPurpose]string{
	domain.PurposeRegistration: "Confirma tu inscripcion - CIEPI",
	domain.PurposeRecovery:     "Recupera tu cuenta - CIEPI",
	domain.PurposeEmailChange:  "Confirma tu nuevo correo - CIEPI",
}

var verificationTemplate = template.Must(template.New("verification").Parse(`
<p>Hola {{.FirstName}} {{.LastName}},</p>
<p>Para continuar, confirma tu direccion de correo haciendo clic en el siguiente enlace:</p>
<p><a href="{{.VerificationURL}}">{{.VerificationURL}}</a></p>
<p>El enlace vence en {{.TTLMinutes}} minutos.</p>
<p>Si no solicitaste este correo, puedes ignorarlo.</p>
`))

// SMTPNotifier sends verification mail through a configured SMTP relay.
type SMTPNotifier struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
}

// NewSMTPNotifier constructs the notifier.
func NewSMTPNotifier(cfg config.SMTPConfig, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, logger: logger}
}

// SendEmailVerification composes and sends the confirmation message.
func (n *SMTPNotifier) SendEmailVerification(_ context.Context, v Verification) error {
	var body bytes.Buffer
	if err := verificationTemplate.Execute(&body, v); err != nil {
		return fmt.Errorf("render verification email: %w", err)
	}

	subject, ok := subjectByPurpose[v.Purpose]
	if !ok {
		subject = "Verificacion de correo - CIEPI"
	}

	message := BuildMessage(n.cfg.FromName, n.cfg.FromEmail, v.Address, subject, body.String())
	if err := n.send(v.Address, message); err != nil {
		n.logger.Warn("verification email dispatch failed",
			zap.String("to", v.Address),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// BuildMessage assembles an RFC 822 style HTML message.
func BuildMessage(fromName, fromEmail, to, subject, htmlBody string) []byte {
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", fromName, fromEmail)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)
	msg.WriteString("\r\n")
	return msg.Bytes()
}

func (n *SMTPNotifier) send(to string, message []byte) error {
	addr := fmt.Sprintf("%s:%s", n.cfg.Host, n.cfg.Port)

	var client *smtp.Client
	var err error

	if n.cfg.Port == "465" {
		tlsConfig := &tls.Config{ServerName: n.cfg.Host}
		conn, dialErr := tls.Dial("tcp", addr, tlsConfig)
		if dialErr != nil {
			return dialErr
		}
		client, err = smtp.NewClient(conn, n.cfg.Host)
		if err != nil {
			return err
		}
	} else {
		client, err = smtp.Dial(addr)
		if err != nil {
			return err
		}
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err = client.StartTLS(&tls.Config{ServerName: n.cfg.Host}); err != nil {
				return err
			}
		}
	}
	defer client.Close()

	if n.cfg.Username != "" {
		authMech := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
		if err = client.Auth(authMech); err != nil {
			return err
		}
	}

	if err = client.Mail(n.cfg.FromEmail); err != nil {
		return err
	}
	if err = client.Rcpt(to); err != nil {
		return err
	}

	writer, err := client.Data()
	if err != nil {
		return err
	}
	if _, err = writer.Write(message); err != nil {
		return err
	}
	if err = writer.Close(); err != nil {
		return err
	}
	return client.Quit()
}
