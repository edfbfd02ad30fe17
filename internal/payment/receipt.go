package payment

import (
	"bytes"
	"context"
	"html/template"
	"strings"
	"time"

	"rent-reminder/internal/duedate"
	"rent-reminder/internal/logging"
	"rent-reminder/internal/mailer"
	"rent-reminder/internal/model"
	"rent-reminder/internal/money"
)

var receiptLayout = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html lang="fr">
<body style="margin:0; padding:32px 16px; font-family:Arial, sans-serif; background-color:#f7fafc;">
  <div style="max-width:640px; margin:0 auto; background:#ffffff; border-radius:12px; padding:32px; color:#1a202c;">
    <h1 style="margin:0 0 16px 0; color:#0284c7; font-size:24px;">Paiement confirmé</h1>
    <p>Bonjour {{.Tenant}},</p>
    <p>Nous avons bien reçu votre paiement pour <strong>{{.Property}}</strong>.</p>
    <p style="font-size:28px; font-weight:800;">{{.Amount}}</p>
    <table style="width:100%; border:1px solid #e2e8f0; border-radius:10px; font-size:14px;">
      <tr><td>Période</td><td><strong>{{.Months}} mois</strong></td></tr>
      <tr><td>Échéance</td><td><strong>{{.DueDate}}</strong></td></tr>
      <tr><td>Date de paiement</td><td><strong>{{.PaidOn}}</strong></td></tr>
    </table>
    {{if .URL}}<p style="text-align:center;"><a href="{{.URL}}" style="display:inline-block; padding:14px 32px; background:#4f46e5; color:#ffffff; text-decoration:none; border-radius:8px; font-weight:700;">Accéder au tableau de bord</a></p>{{end}}
    <p style="color:#718096; font-size:13px;">Si vous n'êtes pas à l'origine de ce paiement, contactez-nous.</p>
  </div>
</body>
</html>`))

// ReceiptNotifier mails a receipt when the provider confirms a payment.
type ReceiptNotifier struct {
	mail   mailer.Mailer
	appURL string
	now    func() time.Time
	logger logging.Logger
}

func NewReceiptNotifier(mail mailer.Mailer, appURL string, logger logging.Logger) *ReceiptNotifier {
	return &ReceiptNotifier{mail: mail, appURL: appURL, now: time.Now, logger: logger}
}

// Receipt builds the receipt mail for c. ok is false when nobody can receive it.
func (n *ReceiptNotifier) Receipt(c Completed) (msg mailer.Message, ok bool) {
	meta := c.Metadata
	to := strings.TrimSpace(meta[model.MetaTenantEmail])
	if to == "" {
		to = strings.TrimSpace(c.Email)
	}
	if to == "" {
		return mailer.Message{}, false
	}

	tenant := valueOr(meta[model.MetaTenantName], "Locataire")
	property := valueOr(meta[model.MetaPropertyName], "votre logement")
	paidOn := duedate.FormatISO(n.now())
	due := valueOr(meta[model.MetaDueDate], paidOn)
	months := valueOr(meta[model.MetaPaymentMonths], "1")
	amount := money.Format(c.Amount)

	text := "Bonjour " + tenant + ",\n\n" +
		"Nous vous confirmons la réception de votre paiement de " + amount + " pour " + property + ".\n\n" +
		"Détails du paiement :\n" +
		"- Montant : " + amount + "\n" +
		"- Période : " + months + " mois\n" +
		"- Date d'échéance : " + due + "\n" +
		"- Date de paiement : " + paidOn + "\n\n" +
		"Merci pour votre paiement."

	var html bytes.Buffer
	if err := receiptLayout.Execute(&html, map[string]string{
		"Tenant":   tenant,
		"Property": property,
		"Amount":   amount,
		"Months":   months,
		"DueDate":  due,
		"PaidOn":   paidOn,
		"URL":      n.appURL,
	}); err != nil {
		html.Reset()
	}

	return mailer.Message{
		To:      to,
		Subject: "Facture - Paiement reçu pour " + property,
		Text:    text,
		HTML:    html.String(),
	}, true
}

// Notify sends the receipt. Failures are logged only: the provider must get
// its acknowledgement regardless.
func (n *ReceiptNotifier) Notify(ctx context.Context, c Completed) {
	msg, ok := n.Receipt(c)
	if !ok {
		n.logger.WithField("session_id", c.SessionID).Warn("Completed checkout without recipient, no receipt sent")
		return
	}
	if err := n.mail.Send(ctx, msg); err != nil {
		n.logger.WithError(err).WithField("session_id", c.SessionID).Error("Failed to send payment receipt")
		return
	}
	n.logger.WithField("session_id", c.SessionID).Info("Payment receipt sent")
}

func valueOr(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}
