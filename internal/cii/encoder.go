// Package cii encodes invoices into the UN/CEFACT Cross Industry Invoice
// structure (EN 16931, Factur-X BASIC profile). The output is deterministic:
// encoding the same invoice state twice yields identical bytes.
package cii

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/facturio/invoice-engine/internal/core/domain"
	"github.com/facturio/invoice-engine/internal/utils/amounts"
)

const (
	guidelineID = "urn:factur-x.eu:1p0:basic"

	// UNTDID 1001 document type codes.
	TypeCodeInvoice    = "380"
	TypeCodeCreditNote = "381"

	dateFormat102 = "20060102"
	currencyEUR   = "EUR"

	// UNTDID 4461: credit transfer.
	paymentMeansTransfer = "30"

	defaultUnitCode = "C62"
)

// unitCodes maps French unit labels to UN/ECE Recommendation 20 codes.
var unitCodes = map[string]string{
	"pièce": "C62",
	"heure": "HUR",
	"jour":  "DAY",
	"kg":    "KGM",
	"litre": "LTR",
	"mètre": "MTR",
	"m²":    "MTK",
	"m³":    "MTQ",
}

// UnitCode returns the UN/ECE code for a free-text unit label, falling back
// to C62 (unit) when the label is unknown.
func UnitCode(unit string) string {
	if code, ok := unitCodes[strings.ToLower(unit)]; ok {
		return code
	}
	return defaultUnitCode
}

// DateTimeString is a udt:DateTimeString with format qualifier 102 (CCYYMMDD).
type DateTimeString struct {
	Format string `xml:"format,attr"`
	Value  string `xml:",chardata"`
}

type IssueDateTime struct {
	DateTimeString DateTimeString `xml:"udt:DateTimeString"`
}

type DocumentContextParameter struct {
	ID string `xml:"ram:ID"`
}

type ExchangedDocumentContext struct {
	GuidelineParameter DocumentContextParameter `xml:"ram:GuidelineSpecifiedDocumentContextParameter"`
}

type IncludedNote struct {
	Content string `xml:"ram:Content"`
}

type ExchangedDocument struct {
	ID            string        `xml:"ram:ID"`
	TypeCode      string        `xml:"ram:TypeCode"`
	IssueDateTime IssueDateTime `xml:"ram:IssueDateTime"`
	IncludedNote  IncludedNote  `xml:"ram:IncludedNote"`
}

type LineDocument struct {
	LineID string `xml:"ram:LineID"`
}

type TradeProduct struct {
	Name string `xml:"ram:Name"`
}

type TradePrice struct {
	ChargeAmount string `xml:"ram:ChargeAmount"`
}

type LineTradeAgreement struct {
	NetPrice TradePrice `xml:"ram:NetPriceProductTradePrice"`
}

type BilledQuantity struct {
	UnitCode string `xml:"unitCode,attr"`
	Value    string `xml:",chardata"`
}

type LineTradeDelivery struct {
	BilledQuantity BilledQuantity `xml:"ram:BilledQuantity"`
}

type LineTradeTax struct {
	TypeCode              string `xml:"ram:TypeCode"`
	CategoryCode          string `xml:"ram:CategoryCode"`
	RateApplicablePercent string `xml:"ram:RateApplicablePercent"`
}

type LineMonetarySummation struct {
	LineTotalAmount string `xml:"ram:LineTotalAmount"`
}

type LineTradeSettlement struct {
	ApplicableTradeTax LineTradeTax          `xml:"ram:ApplicableTradeTax"`
	MonetarySummation  LineMonetarySummation `xml:"ram:SpecifiedTradeSettlementLineMonetarySummation"`
}

type TradeLineItem struct {
	LineDocument    LineDocument        `xml:"ram:AssociatedDocumentLineDocument"`
	Product         TradeProduct        `xml:"ram:SpecifiedTradeProduct"`
	TradeAgreement  LineTradeAgreement  `xml:"ram:SpecifiedLineTradeAgreement"`
	TradeDelivery   LineTradeDelivery   `xml:"ram:SpecifiedLineTradeDelivery"`
	TradeSettlement LineTradeSettlement `xml:"ram:SpecifiedLineTradeSettlement"`
}

type SchemeID struct {
	SchemeID string `xml:"schemeID,attr"`
	Value    string `xml:",chardata"`
}

type LegalOrganization struct {
	ID SchemeID `xml:"ram:ID"`
}

type PostalTradeAddress struct {
	LineOne   string `xml:"ram:LineOne"`
	CountryID string `xml:"ram:CountryID"`
}

type TaxRegistration struct {
	ID SchemeID `xml:"ram:ID"`
}

type SellerTradeParty struct {
	Name              string             `xml:"ram:Name"`
	LegalOrganization LegalOrganization  `xml:"ram:SpecifiedLegalOrganization"`
	PostalAddress     PostalTradeAddress `xml:"ram:PostalTradeAddress"`
	TaxRegistration   TaxRegistration    `xml:"ram:SpecifiedTaxRegistration"`
}

type BuyerTradeParty struct {
	Name            string             `xml:"ram:Name"`
	PostalAddress   PostalTradeAddress `xml:"ram:PostalTradeAddress"`
	TaxRegistration *TaxRegistration   `xml:"ram:SpecifiedTaxRegistration,omitempty"`
}

type HeaderTradeAgreement struct {
	Seller SellerTradeParty `xml:"ram:SellerTradeParty"`
	Buyer  BuyerTradeParty  `xml:"ram:BuyerTradeParty"`
}

type DeliveryEvent struct {
	OccurrenceDateTime IssueDateTime `xml:"ram:OccurrenceDateTime"`
}

type HeaderTradeDelivery struct {
	ActualDeliveryEvent DeliveryEvent `xml:"ram:ActualDeliverySupplyChainEvent"`
}

type PaymentMeans struct {
	TypeCode    string `xml:"ram:TypeCode"`
	Information string `xml:"ram:Information"`
}

type HeaderTradeTax struct {
	CalculatedAmount      string `xml:"ram:CalculatedAmount"`
	TypeCode              string `xml:"ram:TypeCode"`
	BasisAmount           string `xml:"ram:BasisAmount"`
	CategoryCode          string `xml:"ram:CategoryCode"`
	RateApplicablePercent string `xml:"ram:RateApplicablePercent"`
}

type PaymentTerms struct {
	Description     string        `xml:"ram:Description"`
	DueDateDateTime IssueDateTime `xml:"ram:DueDateDateTime"`
}

type CurrencyAmount struct {
	CurrencyID string `xml:"currencyID,attr"`
	Value      string `xml:",chardata"`
}

type HeaderMonetarySummation struct {
	LineTotalAmount     string         `xml:"ram:LineTotalAmount"`
	TaxBasisTotalAmount string         `xml:"ram:TaxBasisTotalAmount"`
	TaxTotalAmount      CurrencyAmount `xml:"ram:TaxTotalAmount"`
	GrandTotalAmount    string         `xml:"ram:GrandTotalAmount"`
	DuePayableAmount    string         `xml:"ram:DuePayableAmount"`
}

type HeaderTradeSettlement struct {
	PaymentReference    string                  `xml:"ram:PaymentReference"`
	InvoiceCurrencyCode string                  `xml:"ram:InvoiceCurrencyCode"`
	PaymentMeans        PaymentMeans            `xml:"ram:SpecifiedTradeSettlementPaymentMeans"`
	ApplicableTradeTax  []HeaderTradeTax        `xml:"ram:ApplicableTradeTax"`
	PaymentTerms        PaymentTerms            `xml:"ram:SpecifiedTradePaymentTerms"`
	MonetarySummation   HeaderMonetarySummation `xml:"ram:SpecifiedTradeSettlementHeaderMonetarySummation"`
}

type SupplyChainTradeTransaction struct {
	LineItems       []TradeLineItem       `xml:"ram:IncludedSupplyChainTradeLineItem"`
	TradeAgreement  HeaderTradeAgreement  `xml:"ram:ApplicableHeaderTradeAgreement"`
	TradeDelivery   HeaderTradeDelivery   `xml:"ram:ApplicableHeaderTradeDelivery"`
	TradeSettlement HeaderTradeSettlement `xml:"ram:ApplicableHeaderTradeSettlement"`
}

// CrossIndustryInvoice is the root of the CII envelope.
type CrossIndustryInvoice struct {
	XMLName  xml.Name `xml:"rsm:CrossIndustryInvoice"`
	XmlnsRSM string   `xml:"xmlns:rsm,attr"`
	XmlnsQDT string   `xml:"xmlns:qdt,attr"`
	XmlnsRAM string   `xml:"xmlns:ram,attr"`
	XmlnsXS  string   `xml:"xmlns:xs,attr"`
	XmlnsUDT string   `xml:"xmlns:udt,attr"`

	Context     ExchangedDocumentContext    `xml:"rsm:ExchangedDocumentContext"`
	Header      ExchangedDocument           `xml:"rsm:ExchangedDocument"`
	Transaction SupplyChainTradeTransaction `xml:"rsm:SupplyChainTradeTransaction"`
}

// Encode serializes the invoice into a Factur-X CII XML document.
func Encode(invoice domain.Invoice, seller domain.CompanyInfo) ([]byte, error) {
	doc := build(invoice, seller)

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal CII document: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// TypeCode returns the UNTDID 1001 code for the invoice.
func TypeCode(invoice domain.Invoice) string {
	if invoice.Status == domain.StatusCreditNote {
		return TypeCodeCreditNote
	}
	return TypeCodeInvoice
}

func build(invoice domain.Invoice, seller domain.CompanyInfo) CrossIndustryInvoice {
	note := invoice.Notes
	if note == "" {
		note = "Facture"
	}

	lines := make([]TradeLineItem, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		lines = append(lines, TradeLineItem{
			LineDocument: LineDocument{LineID: fmt.Sprintf("%d", item.LineNumber)},
			Product:      TradeProduct{Name: item.Description},
			TradeAgreement: LineTradeAgreement{
				NetPrice: TradePrice{ChargeAmount: item.UnitPriceHT.StringFixed(2)},
			},
			TradeDelivery: LineTradeDelivery{
				BilledQuantity: BilledQuantity{
					UnitCode: UnitCode(item.Unit),
					Value:    item.Quantity.String(),
				},
			},
			TradeSettlement: LineTradeSettlement{
				ApplicableTradeTax: LineTradeTax{
					TypeCode:              "VAT",
					CategoryCode:          "S",
					RateApplicablePercent: item.VATRate.StringFixed(2),
				},
				MonetarySummation: LineMonetarySummation{
					LineTotalAmount: item.TotalHT.StringFixed(2),
				},
			},
		})
	}

	buckets := amounts.GroupByVATRate(invoice.Items)
	taxes := make([]HeaderTradeTax, 0, len(buckets))
	for _, b := range buckets {
		taxes = append(taxes, HeaderTradeTax{
			CalculatedAmount:      b.Tax.StringFixed(2),
			TypeCode:              "VAT",
			BasisAmount:           b.Basis.StringFixed(2),
			CategoryCode:          "S",
			RateApplicablePercent: b.Rate.StringFixed(2),
		})
	}

	buyer := BuyerTradeParty{
		Name: invoice.CustomerName,
		PostalAddress: PostalTradeAddress{
			LineOne:   invoice.CustomerAddress,
			CountryID: "FR",
		},
	}
	if invoice.CustomerVATNumber != "" {
		buyer.TaxRegistration = &TaxRegistration{
			ID: SchemeID{SchemeID: "VA", Value: invoice.CustomerVATNumber},
		}
	}

	date102 := func(value string) IssueDateTime {
		return IssueDateTime{DateTimeString: DateTimeString{Format: "102", Value: value}}
	}

	return CrossIndustryInvoice{
		XmlnsRSM: "urn:un:unece:uncefact:data:standard:CrossIndustryInvoice:100",
		XmlnsQDT: "urn:un:unece:uncefact:data:standard:QualifiedDataType:100",
		XmlnsRAM: "urn:un:unece:uncefact:data:standard:ReusableAggregateBusinessInformationEntity:100",
		XmlnsXS:  "http://www.w3.org/2001/XMLSchema",
		XmlnsUDT: "urn:un:unece:uncefact:data:standard:UnqualifiedDataType:100",
		Context: ExchangedDocumentContext{
			GuidelineParameter: DocumentContextParameter{ID: guidelineID},
		},
		Header: ExchangedDocument{
			ID:            invoice.InvoiceNumber,
			TypeCode:      TypeCode(invoice),
			IssueDateTime: date102(invoice.IssueDate.Format(dateFormat102)),
			IncludedNote:  IncludedNote{Content: note},
		},
		Transaction: SupplyChainTradeTransaction{
			LineItems: lines,
			TradeAgreement: HeaderTradeAgreement{
				Seller: SellerTradeParty{
					Name: seller.Name,
					LegalOrganization: LegalOrganization{
						ID: SchemeID{SchemeID: "SIRET", Value: seller.Siret},
					},
					PostalAddress: PostalTradeAddress{
						LineOne:   seller.Address,
						CountryID: "FR",
					},
					TaxRegistration: TaxRegistration{
						ID: SchemeID{SchemeID: "VA", Value: seller.VATNumber},
					},
				},
				Buyer: buyer,
			},
			TradeDelivery: HeaderTradeDelivery{
				ActualDeliveryEvent: DeliveryEvent{
					OccurrenceDateTime: date102(invoice.DeliveryDate.Format(dateFormat102)),
				},
			},
			TradeSettlement: HeaderTradeSettlement{
				PaymentReference:    invoice.InvoiceNumber,
				InvoiceCurrencyCode: currencyEUR,
				PaymentMeans: PaymentMeans{
					TypeCode:    paymentMeansTransfer,
					Information: fmt.Sprintf("Paiement à %d jours", invoice.PaymentTermsDays),
				},
				ApplicableTradeTax: taxes,
				PaymentTerms: PaymentTerms{
					Description: fmt.Sprintf(
						"Paiement à %d jours. Pénalités de retard: %s%%. Indemnité de recouvrement: %s€.",
						invoice.PaymentTermsDays,
						invoice.LatePaymentInterestRate.String(),
						invoice.RecoveryIndemnity.String(),
					),
					DueDateDateTime: date102(invoice.DueDate.Format(dateFormat102)),
				},
				MonetarySummation: HeaderMonetarySummation{
					LineTotalAmount:     invoice.TotalHT.StringFixed(2),
					TaxBasisTotalAmount: invoice.TotalHT.StringFixed(2),
					TaxTotalAmount: CurrencyAmount{
						CurrencyID: currencyEUR,
						Value:      invoice.TotalTVA.StringFixed(2),
					},
					GrandTotalAmount: invoice.TotalTTC.StringFixed(2),
					DuePayableAmount: invoice.TotalTTC.StringFixed(2),
				},
			},
		},
	}
}
