package clinic

import (
	"net/url"
	"strings"
	"unicode"
)

const (
	whatsAppMessage = "Hola! Encontré su clínica en la página de Ares Paraguay y me interesa obtener más información sobre tratamientos disponibles.\n\n" +
		"¿Podrían brindarme más detalles sobre los tratamientos que ofrecen?\n\n¡Gracias!"
	emailSubjectPrefix = "Consulta sobre tratamientos - "
	emailBody          = "Estimados,\n\nMe interesa obtener más información sobre los tratamientos disponibles en su clínica.\n\nQuedo atento a su respuesta.\n\nSaludos cordiales."
)

// Contact holds the one-tap contact links for a clinic. Empty links mean
// the clinic has no value for that channel.
type Contact struct {
	WhatsApp   string `json:"whatsapp,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	Directions string `json:"directions"`
	MapSearch  string `json:"mapSearch"`
}

// ContactLinks builds every contact link for c.
func ContactLinks(c Clinic) Contact {
	return Contact{
		WhatsApp:   WhatsAppURL(c.WhatsApp, whatsAppMessage),
		Phone:      PhoneURL(c.Phone),
		Email:      EmailURL(c.Email, emailSubjectPrefix+c.Name, emailBody),
		Directions: DirectionsURL(c),
		MapSearch:  MapSearchURL(c.Address),
	}
}

// WhatsAppURL returns a wa.me link for the digits of number.
func WhatsAppURL(number, message string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, number)
	if digits == "" {
		return ""
	}
	u := "https://wa.me/" + digits
	if message != "" {
		u += "?text=" + url.QueryEscape(message)
	}
	return u
}

// PhoneURL returns a tel: link.
func PhoneURL(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	return "tel:" + strings.ReplaceAll(phone, " ", "")
}

// EmailURL returns a mailto: link with subject and body.
func EmailURL(address, subject, body string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return ""
	}
	q := url.Values{}
	q.Set("subject", subject)
	q.Set("body", body)
	// mailto clients expect %20, not '+'.
	return "mailto:" + address + "?" + strings.ReplaceAll(q.Encode(), "+", "%20")
}

// DirectionsURL prefers the clinic's own maps link and otherwise routes to
// its address.
func DirectionsURL(c Clinic) string {
	if strings.TrimSpace(c.MapsURL) != "" {
		return c.MapsURL
	}
	return "https://www.google.com/maps/dir/?api=1&destination=" + url.QueryEscape(c.Address)
}

// MapSearchURL is the address search link used when no maps link exists.
func MapSearchURL(address string) string {
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(address)
}
