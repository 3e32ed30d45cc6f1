package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/databunker/pricewatch/internal/pricing"
)

// SMTPSink sends plain-text price alerts through an SMTP relay.
type SMTPSink struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	Recipients []string
}

func (s *SMTPSink) Send(ctx context.Context, subject string, changes []Change, summary []pricing.CompetitorRow) error {
	if len(s.Recipients) == 0 {
		return fmt.Errorf("no recipients configured")
	}

	var body strings.Builder
	fmt.Fprintf(&body, "From: %s\r\n", s.From)
	fmt.Fprintf(&body, "To: %s\r\n", strings.Join(s.Recipients, ", "))
	fmt.Fprintf(&body, "Subject: %s\r\n", subject)
	body.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")

	if len(changes) > 0 {
		body.WriteString("Cambios de precio detectados:\n\n")
		for _, c := range changes {
			fmt.Fprintf(&body, "  [%s] %s (UPC %s): %s -> %s (%s%%)\n",
				c.Canal, c.Item, c.UPC, c.LastPrice, c.FinalPrice, c.ChangePct)
		}
	} else {
		body.WriteString("Sin cambios de precio sobre el umbral configurado.\n")
	}

	if len(summary) > 0 {
		body.WriteString("\nResumen de precios monitoreados:\n\n")
		currentCanal := ""
		for _, row := range summary {
			if row.Canal != currentCanal {
				currentCanal = row.Canal
				fmt.Fprintf(&body, "%s:\n", currentCanal)
			}
			fmt.Fprintf(&body, "  %s (UPC %s): %s\n", row.Item, row.UPC, row.FinalPrice)
		}
	}

	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, s.From, s.Recipients, []byte(body.String()))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send alert email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
