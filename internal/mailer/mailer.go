package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pagecorner/bookstore/internal/models"
)

// Mailer delivers best-effort notifications. A failed send is logged by the
// caller and never fails the surrounding operation.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

type SMTPMailer struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	msg := strings.Join([]string{
		"From: " + m.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
		"",
		htmlBody,
	}, "\r\n")

	addr := m.Host + ":" + m.Port
	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}
	if err := smtp.SendMail(addr, auth, m.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", to, err)
	}
	return nil
}

type InvoiceLine struct {
	Title    string
	Quantity int
	Price    decimal.Decimal
}

// Invoice renders the order confirmation body. The order id doubles as the
// claim code members show at pickup.
func Invoice(order *models.Order, lines []InvoiceLine) string {
	var b strings.Builder
	b.WriteString("<div style='font-family: Arial, sans-serif; padding: 20px;'>")
	b.WriteString("<h1>Thank You for Your Order!</h1>")
	fmt.Fprintf(&b, "<p>Your claim code is: <strong>%s</strong></p>", order.ID)
	b.WriteString("<h2>Order Details</h2>")
	b.WriteString("<table style='width: 100%; border-collapse: collapse;'>")
	b.WriteString("<tr><th>Book Title</th><th>Quantity</th><th>Price</th><th>Total</th></tr>")
	for _, l := range lines {
		lineTotal := l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%d</td><td>%s</td><td>%s</td></tr>",
			l.Title, l.Quantity, l.Price.StringFixed(2), lineTotal.StringFixed(2))
	}
	b.WriteString("</table>")
	fmt.Fprintf(&b, "<h3>Total Amount: %s</h3>", order.TotalPrice.StringFixed(2))
	b.WriteString("<p>Thank you for trusting us!</p>")
	b.WriteString("</div>")
	return b.String()
}
