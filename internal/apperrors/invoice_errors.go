package apperrors

import "fmt"

// ComplianceError is returned when an invoice fails legal compliance checks.
// Errors block the operation; warnings are informational and do not.
type ComplianceError struct {
	Errors   []string
	Warnings []string
}

func (e *ComplianceError) Error() string {
	return fmt.Sprintf("invoice is not compliant: %d error(s), %d warning(s)", len(e.Errors), len(e.Warnings))
}

func (e *ComplianceError) Unwrap() error {
	return ErrValidation
}

// LockedError is returned on an attempt to mutate an invoice in an immutable
// status. It names the invoice and its current status so the caller can
// report exactly what is locked.
type LockedError struct {
	InvoiceNumber string
	Status        string
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("invoice %s is locked: status %s forbids modification", e.InvoiceNumber, e.Status)
}
