package services

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"github.com/openeire/openeire-api/app/configs"
	"github.com/openeire/openeire-api/app/models"
	"github.com/openeire/openeire-api/app/utils/format"
	"github.com/rs/zerolog/log"
)

type OrderNotifier interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order) error
}

type Mailer struct {
	config configs.MailConfig
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailer(cfg configs.MailConfig) *Mailer {
	return &Mailer{
		config: cfg,
		send:   smtp.SendMail,
	}
}

func (m *Mailer) SendHTMLEmail(to, subject, htmlBody string) error {
	if m.config.Host == "" {
		log.Warn().Str("to", to).Str("subject", subject).Msg("Mailer: smtp host not configured, email not sent")
		return nil
	}

	headers := []string{
		"From: " + m.config.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
	}
	msg := strings.Join(headers, "\r\n") + "\r\n\r\n" + htmlBody

	var auth smtp.Auth
	if m.config.Username != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	addr := fmt.Sprintf("%s:%s", m.config.Host, m.config.Port)

	if err := m.send(addr, auth, m.config.From, []string{to}, []byte(msg)); err != nil {
		log.Error().Err(err).Str("to", to).Msg("Mailer: failed to send html email")
		return fmt.Errorf("failed to send html email: %w", err)
	}

	return nil
}

// SendOrderConfirmation mails the order summary to the order's email address.
func (m *Mailer) SendOrderConfirmation(_ context.Context, order *models.Order) error {
	subject := fmt.Sprintf("OpenEire Studios order confirmation %s", order.OrderNumber)
	return m.SendHTMLEmail(order.Email, subject, BuildOrderConfirmationBody(order))
}

func BuildOrderConfirmationBody(order *models.Order) string {
	var rows strings.Builder
	for _, item := range order.Items {
		title := item.ProductTitle
		if license, ok := item.Options["license"].(string); ok && license != "" {
			title = fmt.Sprintf("%s (%s)", title, strings.ToUpper(license))
		}
		fmt.Fprintf(&rows, `
                    <tr>
                        <td>%s</td>
                        <td>%d</td>
                        <td>%s</td>
                        <td>%s</td>
                    </tr>`,
			html.EscapeString(title), item.Quantity, format.FormatEuro(item.UnitPrice), format.FormatEuro(item.ItemTotal))
	}

	return fmt.Sprintf(`
        <!DOCTYPE html>
        <html>
        <head>
            <meta charset="utf-8">
            <title>Order Confirmation</title>
            <style>
                body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
                .container { max-width: 600px; margin: 20px auto; padding: 20px; border: 1px solid #ddd; border-radius: 5px; }
                .header { background-color: #f8f8f8; padding: 10px 0; text-align: center; border-bottom: 1px solid #ddd; }
                table { width: 100%%; border-collapse: collapse; }
                td, th { padding: 6px; border-bottom: 1px solid #eee; text-align: left; }
                .footer { font-size: 0.8em; color: #777; text-align: center; margin-top: 20px; border-top: 1px solid #ddd; padding-top: 10px; }
            </style>
        </head>
        <body>
            <div class="container">
                <div class="header">
                    <h2>Thank you for your order, %s</h2>
                </div>
                <p>Order number: <strong>%s</strong></p>
                <p>Order date: %s</p>
                <table>
                    <tr><th>Item</th><th>Qty</th><th>Price</th><th>Total</th></tr>%s
                </table>
                <p>Order total: %s</p>
                <p>Delivery: %s</p>
                <p><strong>Grand total: %s</strong></p>
                <p>Digital downloads are available from your account. Printed items ship to the address you provided.</p>
                <div class="footer">
                    <p>&copy; OpenEire Studios</p>
                </div>
            </div>
        </body>
        </html>
    `,
		html.EscapeString(order.FullName),
		html.EscapeString(order.OrderNumber),
		order.Date.Format("02 Jan 2006"),
		rows.String(),
		format.FormatEuro(order.OrderTotal),
		format.FormatEuro(order.DeliveryCost),
		format.FormatEuro(order.TotalPrice),
	)
}
