package domain

// CompanyInfo identifies the issuing company on rendered and encoded
// documents. The zero value is never used directly; defaults come from
// configuration and may be overridden per-invoice by a Branding object.
type CompanyInfo struct {
	Name      string
	Address   string
	Siret     string
	VATNumber string
	RCS       string
	Capital   string
	Email     string
	Phone     string

	LogoBase64     string
	LogoMimeType   string
	PrimaryColor   string
	SecondaryColor string
	ShowLogo       bool
	LogoPosition   string
	HeaderText     string
	FooterText     string
	LegalMentions  string
	PaymentTerms   string
	IBAN           string
	BIC            string
	BankName       string
}

// Branding is an optional per-invoice override of the default company info.
// Every field is optional; empty fields fall back to the defaults.
type Branding struct {
	CompanyName      string `json:"companyName,omitempty"`
	CompanyAddress   string `json:"companyAddress,omitempty"`
	CompanySiret     string `json:"companySiret,omitempty"`
	CompanyVATNumber string `json:"companyVatNumber,omitempty"`
	CompanyRCS       string `json:"companyRcs,omitempty"`
	CompanyCapital   string `json:"companyCapital,omitempty"`
	CompanyEmail     string `json:"companyEmail,omitempty"`
	CompanyPhone     string `json:"companyPhone,omitempty"`

	LogoBase64     string `json:"logoBase64,omitempty"`
	LogoMimeType   string `json:"logoMimeType,omitempty"`
	PrimaryColor   string `json:"primaryColor,omitempty"`
	SecondaryColor string `json:"secondaryColor,omitempty"`
	ShowLogo       *bool  `json:"showLogo,omitempty"`
	LogoPosition   string `json:"logoPosition,omitempty"`
	HeaderText     string `json:"headerText,omitempty"`
	FooterText     string `json:"footerText,omitempty"`
	LegalMentions  string `json:"legalMentions,omitempty"`
	PaymentTerms   string `json:"paymentTerms,omitempty"`
	IBAN           string `json:"iban,omitempty"`
	BIC            string `json:"bic,omitempty"`
	BankName       string `json:"bankName,omitempty"`
}

// MergeBranding overlays a branding object on the default company info,
// field by field. Non-empty override fields win; a nil branding returns the
// defaults unchanged.
func MergeBranding(defaults CompanyInfo, b *Branding) CompanyInfo {
	if b == nil {
		return defaults
	}

	merged := defaults
	override := func(dst *string, val string) {
		if val != "" {
			*dst = val
		}
	}

	override(&merged.Name, b.CompanyName)
	override(&merged.Address, b.CompanyAddress)
	override(&merged.Siret, b.CompanySiret)
	override(&merged.VATNumber, b.CompanyVATNumber)
	override(&merged.RCS, b.CompanyRCS)
	override(&merged.Capital, b.CompanyCapital)
	override(&merged.Email, b.CompanyEmail)
	override(&merged.Phone, b.CompanyPhone)

	override(&merged.LogoBase64, b.LogoBase64)
	override(&merged.LogoMimeType, b.LogoMimeType)
	override(&merged.PrimaryColor, b.PrimaryColor)
	override(&merged.SecondaryColor, b.SecondaryColor)
	override(&merged.LogoPosition, b.LogoPosition)
	override(&merged.HeaderText, b.HeaderText)
	override(&merged.FooterText, b.FooterText)
	override(&merged.LegalMentions, b.LegalMentions)
	override(&merged.PaymentTerms, b.PaymentTerms)
	override(&merged.IBAN, b.IBAN)
	override(&merged.BIC, b.BIC)
	override(&merged.BankName, b.BankName)

	if b.ShowLogo != nil {
		merged.ShowLogo = *b.ShowLogo
	}
	return merged
}
