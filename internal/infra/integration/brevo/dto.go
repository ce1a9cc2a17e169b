package brevo

// Contact é o payload do upsert em POST /contacts.
// updateEnabled=true faz a Brevo atualizar o contato se o email já existir.
type Contact struct {
	Email         string         `json:"email"`
	UpdateEnabled bool           `json:"updateEnabled"`
	ListIDs       []int64        `json:"listIds,omitempty"`
	Attributes    map[string]any `json:"attributes,omitempty"`
}

// Nomes dos atributos customizados que mantemos na Brevo
const (
	AttrFunnelType             = "FUNNEL_TYPE"
	AttrCertificatePurchased   = "CERTIFICATE_PURCHASED"
	AttrCertificatePurchasedAt = "CERTIFICATE_PURCHASED_AT"
)

type contactResponse struct {
	ID int64 `json:"id"`
}
