package config

import (
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/facturio/invoice-engine/internal/core/domain"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL  string
	Port         string
	IsProduction bool

	// Numbering
	InvoicePrefix    string
	CreditNotePrefix string
	InvoiceYearReset bool

	// Documents
	PDFStoragePath string

	// Events
	KafkaBrokers []string
	KafkaTopic   string

	// Rate limiting, ulule/limiter format (e.g. "100-M")
	RateLimit string

	// Issuer identity printed on documents and embedded in the CII payload.
	Company domain.CompanyInfo
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("INVOICE_PREFIX", "INV")
	viper.SetDefault("CREDIT_NOTE_PREFIX", "AV")
	viper.SetDefault("INVOICE_YEAR_RESET", true)
	viper.SetDefault("PDF_STORAGE_PATH", "./storage/pdfs")
	viper.SetDefault("KAFKA_BROKERS", "")
	viper.SetDefault("KAFKA_TOPIC", "invoicing.invoice.created")
	viper.SetDefault("RATE_LIMIT", "100-M")
	viper.SetDefault("COMPANY_NAME", "")
	viper.SetDefault("COMPANY_ADDRESS", "")
	viper.SetDefault("COMPANY_SIRET", "")
	viper.SetDefault("COMPANY_VAT_NUMBER", "")
	viper.SetDefault("COMPANY_RCS", "")
	viper.SetDefault("COMPANY_CAPITAL", "")
	viper.SetDefault("COMPANY_EMAIL", "")
	viper.SetDefault("COMPANY_PHONE", "")
	viper.SetDefault("COMPANY_IBAN", "")
	viper.SetDefault("COMPANY_BIC", "")
	viper.SetDefault("COMPANY_BANK_NAME", "")
	viper.SetDefault("COMPANY_PRIMARY_COLOR", "#2563eb")
	viper.SetDefault("COMPANY_SHOW_LOGO", true)

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")

	cfg.InvoicePrefix = viper.GetString("INVOICE_PREFIX")
	cfg.CreditNotePrefix = viper.GetString("CREDIT_NOTE_PREFIX")
	cfg.InvoiceYearReset = viper.GetBool("INVOICE_YEAR_RESET")

	cfg.PDFStoragePath = viper.GetString("PDF_STORAGE_PATH")

	brokers := viper.GetString("KAFKA_BROKERS")
	if brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	} else {
		log.Println("Warning: KAFKA_BROKERS not set. Invoice events will not be published.")
	}
	cfg.KafkaTopic = viper.GetString("KAFKA_TOPIC")

	cfg.RateLimit = viper.GetString("RATE_LIMIT")

	cfg.Company = domain.CompanyInfo{
		Name:         viper.GetString("COMPANY_NAME"),
		Address:      viper.GetString("COMPANY_ADDRESS"),
		Siret:        viper.GetString("COMPANY_SIRET"),
		VATNumber:    viper.GetString("COMPANY_VAT_NUMBER"),
		RCS:          viper.GetString("COMPANY_RCS"),
		Capital:      viper.GetString("COMPANY_CAPITAL"),
		Email:        viper.GetString("COMPANY_EMAIL"),
		Phone:        viper.GetString("COMPANY_PHONE"),
		IBAN:         viper.GetString("COMPANY_IBAN"),
		BIC:          viper.GetString("COMPANY_BIC"),
		BankName:     viper.GetString("COMPANY_BANK_NAME"),
		PrimaryColor: viper.GetString("COMPANY_PRIMARY_COLOR"),
		ShowLogo:     viper.GetBool("COMPANY_SHOW_LOGO"),
	}
	if cfg.Company.Name == "" {
		log.Println("Warning: COMPANY_NAME not set. Issuer block on documents will be incomplete.")
	}

	return cfg, nil
}
