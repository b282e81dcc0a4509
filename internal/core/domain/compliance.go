package domain

// ComplianceResult is the outcome of checking an invoice against the
// mandatory-field and mandatory-mention rules of the legal regime.
// Errors block the operation; warnings are returned alongside a successful
// result and never block on their own.
type ComplianceResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}
