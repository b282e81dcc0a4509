package services

import (
	portsrepo "github.com/facturio/invoice-engine/internal/core/ports/repositories"
	portssvc "github.com/facturio/invoice-engine/internal/core/ports/services"
	"github.com/facturio/invoice-engine/internal/pdf"
	"github.com/facturio/invoice-engine/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly
// initialized dependencies.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, publisher portssvc.EventPublisher) *portssvc.ServiceContainer {
	numberGen := NewNumberGeneratorService(repos.InvoiceRepo, cfg.InvoiceYearReset)
	compliance := NewComplianceService()
	renderer := pdf.NewRenderer(cfg.PDFStoragePath, cfg.Company)

	return &portssvc.ServiceContainer{
		Invoice: NewInvoiceService(
			repos.InvoiceRepo,
			numberGen,
			compliance,
			renderer,
			publisher,
			cfg.InvoicePrefix,
			cfg.CreditNotePrefix,
		),
	}
}
