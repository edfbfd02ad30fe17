package reminder

import (
	"bytes"
	"html/template"
	"strings"

	"rent-reminder/internal/duedate"
	"rent-reminder/internal/mailer"
	"rent-reminder/internal/money"
	"rent-reminder/internal/render"
)

var htmlLayout = template.Must(template.New("reminder").Parse(`<div style="font-family:Arial, sans-serif; color:#0f172a; line-height:1.6;">
  <h2 style="color:#0ea5e9; margin-bottom:8px;">Rappel de paiement</h2>
  <p>{{range $i, $line := .Lines}}{{if $i}}<br>{{end}}{{$line}}{{end}}</p>
  <p style="font-size:16px; font-weight:600; color:#0b5ed7;">Montant : {{.Amount}}</p>
  {{if .PayURL}}<p><a href="{{.PayURL}}" style="display:inline-block;padding:12px 20px;background:#0ea5e9;color:#fff;text-decoration:none;border-radius:999px;font-weight:700;">Payer en ligne</a></p>{{end}}
  <p style="font-size:12px; color:#6b7280;">Si vous avez déjà payé, ignorez ce message.</p>
</div>`))

// Bindings returns the placeholder values for one tenant.
func Bindings(name, amount, property, date string) map[string]string {
	first := strings.TrimSpace(name)
	if i := strings.IndexByte(first, ' '); i >= 0 {
		first = first[:i]
	}
	return map[string]string{
		"locataire": name,
		"prenom":    first,
		"montant":   amount,
		"logement":  property,
		"date":      date,
	}
}

func Subject(date string) string {
	return "Rappel de paiement - échéance du " + date
}

func compose(tmpl string, tg target, appURL string) mailer.Message {
	amount := money.Format(tg.amount)
	date := duedate.FormatDisplay(tg.due)
	body := render.Render(tmpl, Bindings(tg.name, amount, tg.property, date))

	payURL := ""
	if appURL != "" {
		payURL = strings.TrimRight(appURL, "/") + "/dashbord/paiements"
	}

	text := body + "\n\nMontant dû : " + amount + "\n"
	if payURL != "" {
		text += payURL + "\n"
	}

	var html bytes.Buffer
	data := struct {
		Lines  []string
		Amount string
		PayURL string
	}{strings.Split(strings.TrimRight(body, "\n"), "\n"), amount, payURL}
	if err := htmlLayout.Execute(&html, data); err != nil {
		html.Reset()
	}

	return mailer.Message{
		To:      tg.email,
		Subject: Subject(date),
		Text:    text,
		HTML:    html.String(),
	}
}
