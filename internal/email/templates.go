package email

import (
	"bytes"
	"fmt"
	"html/template"
)

const (
	KindWelcome             = "welcome"
	KindPaymentConfirmation = "payment_confirmation"
	KindConsultation        = "consultation_confirmation"
	KindAdminAlert          = "admin_alert"
	KindContact             = "contact"
	KindAdminDirect         = "admin_direct"
)

const layout = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background: #000; padding: 20px; text-align: center;"><h1 style="color: #FFD900; margin: 0;">Smart-Win</h1></div>
  <div style="padding: 30px; background: #fff;">{{template "body" .}}
    <p style="color: #666; font-size: 14px;">{{.Support}}</p>
  </div>
</div>`

type copyText struct {
	Subject string
	Heading string
	Lines   []string
	Button  string
	Support string
}

// Localized copy; unknown locales fall back to English.
var (
	welcomeCopy = map[string]copyText{
		"en": {"Welcome to Smart-Win", "Welcome, %s!", []string{"Thank you for registering with Smart-Win. Your account has been created successfully.", "To unlock your premium dashboard, please complete your payment of %s."}, "Go to Dashboard", "If you have any questions, contact us at %s"},
		"es": {"Bienvenido a Smart-Win", "¡Bienvenido, %s!", []string{"Gracias por registrarte en Smart-Win. Tu cuenta ha sido creada exitosamente.", "Para desbloquear tu panel premium, completa tu pago de %s."}, "Ir al Panel", "Si tienes preguntas, contáctanos en %s"},
		"fr": {"Bienvenue chez Smart-Win", "Bienvenue, %s!", []string{"Merci de vous être inscrit sur Smart-Win. Votre compte a été créé avec succès.", "Pour déverrouiller votre tableau de bord premium, veuillez effectuer votre paiement de %s."}, "Aller au Tableau", "Pour toute question, contactez-nous à %s"},
	}
	confirmationCopy = map[string]copyText{
		"en": {"Payment Confirmed - Dashboard Unlocked", "Payment Confirmed, %s!", []string{"Your payment of %s has been successfully processed.", "Your premium dashboard is now unlocked."}, "Access Dashboard", "For support, email us at %s"},
		"es": {"Pago Confirmado - Panel Desbloqueado", "¡Pago confirmado, %s!", []string{"Tu pago de %s se ha procesado correctamente.", "Tu panel premium ya está desbloqueado."}, "Acceder al Panel", "Para soporte, escríbenos a %s"},
		"fr": {"Paiement Confirmé - Tableau Débloqué", "Paiement confirmé, %s!", []string{"Votre paiement de %s a été traité avec succès.", "Votre tableau de bord premium est maintenant débloqué."}, "Accéder au Tableau", "Pour le support, écrivez-nous à %s"},
	}
)

var pageTmpl = template.Must(template.Must(template.New("page").Parse(layout)).New("body").Parse(
	`<h2 style="color: #000;">{{.Heading}}</h2>{{range .Lines}}<p>{{.}}</p>{{end}}{{if .Button}}
    <a href="{{.Link}}" style="display: inline-block; background: #FF181A; color: #fff; padding: 12px 24px; text-decoration: none; border-radius: 5px; margin: 20px 0;">{{.Button}}</a>{{end}}`))

type page struct {
	Heading string
	Lines   []string
	Button  string
	Link    string
	Support string
}

// Templates renders transactional messages.
type Templates struct {
	appURL       string
	supportEmail string
}

func NewTemplates(appURL, supportEmail string) *Templates {
	return &Templates{appURL: appURL, supportEmail: supportEmail}
}

func pick(m map[string]copyText, locale string) copyText {
	if c, ok := m[locale]; ok {
		return c
	}
	return m["en"]
}

func FormatAmount(amount float64, currency string) string {
	if currency == "USD" {
		return fmt.Sprintf("$%.2f", amount)
	}
	return fmt.Sprintf("%.2f %s", amount, currency)
}

func (t *Templates) render(to, subject string, p page) (Message, error) {
	var buf bytes.Buffer
	if err := pageTmpl.ExecuteTemplate(&buf, "page", p); err != nil {
		return Message{}, fmt.Errorf("render %q: %w", subject, err)
	}
	return Message{To: to, Subject: subject, HTML: buf.String()}, nil
}

func (t *Templates) Welcome(to, name, locale string, price float64, currency string) (Message, error) {
	c := pick(welcomeCopy, locale)
	return t.render(to, c.Subject, page{
		Heading: fmt.Sprintf(c.Heading, name),
		Lines:   []string{c.Lines[0], fmt.Sprintf(c.Lines[1], FormatAmount(price, currency))},
		Button:  c.Button,
		Link:    t.appURL + "/dashboard",
		Support: fmt.Sprintf(c.Support, t.supportEmail),
	})
}

func (t *Templates) PaymentConfirmation(to, name, locale string, amount float64, currency string) (Message, error) {
	c := pick(confirmationCopy, locale)
	return t.render(to, c.Subject, page{
		Heading: fmt.Sprintf(c.Heading, name),
		Lines:   []string{fmt.Sprintf(c.Lines[0], FormatAmount(amount, currency)), c.Lines[1]},
		Button:  c.Button,
		Link:    t.appURL + "/dashboard",
		Support: fmt.Sprintf(c.Support, t.supportEmail),
	})
}

func (t *Templates) ConsultationConfirmation(to string, amount float64, currency string) (Message, error) {
	return t.render(to, "Consultation Payment Received - Smart-Win", page{
		Heading: "Payment Received!",
		Lines: []string{
			fmt.Sprintf("Thank you for your %s consultation payment.", FormatAmount(amount, currency)),
			"Our team will contact you within 24-48 hours via email.",
			"The consultation fee is non-refundable.",
		},
		Button:  "View Dashboard",
		Link:    t.appURL + "/dashboard",
		Support: "For support, email us at " + t.supportEmail,
	})
}

func (t *Templates) AdminConsultationAlert(to, userEmail string, userID int, amount float64, currency, method string) (Message, error) {
	return t.render(to, fmt.Sprintf("New Consultation Request - %s", FormatAmount(amount, currency)), page{
		Heading: "New Consultation Payment",
		Lines: []string{
			"Email: " + userEmail,
			fmt.Sprintf("User ID: %d", userID),
			"Amount: " + FormatAmount(amount, currency),
			"Method: " + method,
		},
		Button: "Email Client",
		Link:   "mailto:" + userEmail + "?subject=Smart-Win%20Consultation",
	})
}

func (t *Templates) AdminPaymentAlert(to, userEmail string, userID int, amount float64, currency, trackingID string) (Message, error) {
	return t.render(to, fmt.Sprintf("Payment Completed - %s", FormatAmount(amount, currency)), page{
		Heading: "Gateway Payment Completed",
		Lines: []string{
			"Email: " + userEmail,
			fmt.Sprintf("User ID: %d", userID),
			"Amount: " + FormatAmount(amount, currency),
			"Tracking ID: " + trackingID,
		},
		Button: "Open Admin Panel",
		Link:   t.appURL + "/admin",
	})
}

func (t *Templates) ContactMessage(to, fromEmail, subject, body string) (Message, error) {
	return t.render(to, "Contact: "+subject, page{
		Heading: "New Contact Message",
		Lines:   []string{"From: " + fromEmail, "Subject: " + subject, body},
	})
}
