package sunat

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	pkgsunat "github.com/jhoicas/Facturacion-api/pkg/sunat"
)

// Namespaces oficiales UBL 2.1 (R.S. 097-2012/SUNAT, Anexo 9).
const (
	// Namespace por defecto (UBL Invoice)
	NsInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	// Namespace por defecto (UBL CreditNote, notas de crédito tipo 07)
	NsCreditNote = "urn:oasis:names:specification:ubl:schema:xsd:CreditNote-2"
	// Common Aggregate Components
	NsCac = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	// Common Basic Components
	NsCbc = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
	// Extension Components
	NsExt = "urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"
	// XML Digital Signature
	NsDs = "http://www.w3.org/2000/09/xmldsig#"

	// URI del catálogo 01 para el atributo listURI de InvoiceTypeCode
	catalogo01URI = "urn:pe:gob:sunat:cpe:see:gem:catalogos:catalogo01"
)

// XMLBuilderService construye el XML UBL 2.1 del comprobante (sin firma).
type XMLBuilderService struct{}

// NewXMLBuilderService crea el servicio.
func NewXMLBuilderService() *XMLBuilderService {
	return &XMLBuilderService{}
}

// Build genera el []byte del comprobante según UBL 2.1. Facturas y boletas se
// serializan como Invoice; las notas de crédito (tipo 07) como CreditNote.
func (s *XMLBuilderService) Build(ctx *DocumentBuildContext) ([]byte, error) {
	if ctx == nil || ctx.Document == nil {
		return nil, fmt.Errorf("sunat: falta el documento en el contexto")
	}
	if len(ctx.Lines) == 0 {
		return nil, fmt.Errorf("sunat: el comprobante %s no tiene líneas", ctx.Document.FullNumber())
	}
	if ctx.Document.DocType == pkgsunat.DocTypeNotaCredito {
		return s.buildCreditNote(ctx)
	}
	return s.buildInvoice(ctx)
}

// buildInvoice serializa facturas (01) y boletas de venta (03).
func (s *XMLBuilderService) buildInvoice(ctx *DocumentBuildContext) ([]byte, error) {
	doc := ctx.Document
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	root := xml.StartElement{
		Name: xml.Name{Local: "Invoice"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "xmlns"}, Value: NsInvoice},
			{Name: xml.Name{Local: "xmlns:cac"}, Value: NsCac},
			{Name: xml.Name{Local: "xmlns:cbc"}, Value: NsCbc},
			{Name: xml.Name{Local: "xmlns:ds"}, Value: NsDs},
			{Name: xml.Name{Local: "xmlns:ext"}, Value: NsExt},
		},
	}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}

	// ---- CRÍTICO: ext:UBLExtensions siempre como primer hijo del comprobante.
	// El ExtensionContent queda vacío; el firmador inyecta ahí <ds:Signature>.
	s.writeUBLExtensions(enc)

	writeCbc(enc, "UBLVersionID", "2.1")
	writeCbc(enc, "CustomizationID", "2.0")
	writeCbc(enc, "ID", doc.FullNumber())
	writeCbc(enc, "IssueDate", doc.IssueDate.Format("2006-01-02"))
	writeCbc(enc, "IssueTime", doc.IssueDate.Format("15:04:05"))
	s.writeInvoiceTypeCode(enc, doc.DocType)
	writeCbc(enc, "DocumentCurrencyCode", doc.Currency)
	writeCbc(enc, "LineCountNumeric", strconv.Itoa(len(ctx.Lines)))

	s.writeSignatureInfo(enc, ctx)
	s.writeSupplierParty(enc, ctx)
	s.writeCustomerParty(enc, doc)
	s.writeTaxTotal(enc, doc, ctx.Lines)
	s.writeLegalMonetaryTotal(enc, doc)
	for _, line := range ctx.Lines {
		s.writeLine(enc, "InvoiceLine", "InvoicedQuantity", doc.Currency, line)
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// buildCreditNote serializa notas de crédito (07). El orden de los elementos
// sigue el esquema UBL CreditNote-2.1: DiscrepancyResponse y BillingReference
// van después de LineCountNumeric y antes de cac:Signature.
func (s *XMLBuilderService) buildCreditNote(ctx *DocumentBuildContext) ([]byte, error) {
	doc := ctx.Document
	if doc.ReferencedNumber == "" || doc.CreditNoteType == "" {
		return nil, fmt.Errorf("sunat: la nota de crédito %s no referencia comprobante o motivo", doc.FullNumber())
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	root := xml.StartElement{
		Name: xml.Name{Local: "CreditNote"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "xmlns"}, Value: NsCreditNote},
			{Name: xml.Name{Local: "xmlns:cac"}, Value: NsCac},
			{Name: xml.Name{Local: "xmlns:cbc"}, Value: NsCbc},
			{Name: xml.Name{Local: "xmlns:ds"}, Value: NsDs},
			{Name: xml.Name{Local: "xmlns:ext"}, Value: NsExt},
		},
	}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}

	s.writeUBLExtensions(enc)

	writeCbc(enc, "UBLVersionID", "2.1")
	writeCbc(enc, "CustomizationID", "2.0")
	writeCbc(enc, "ID", doc.FullNumber())
	writeCbc(enc, "IssueDate", doc.IssueDate.Format("2006-01-02"))
	writeCbc(enc, "IssueTime", doc.IssueDate.Format("15:04:05"))
	writeCbc(enc, "DocumentCurrencyCode", doc.Currency)
	writeCbc(enc, "LineCountNumeric", strconv.Itoa(len(ctx.Lines)))

	s.writeDiscrepancyResponse(enc, doc)
	s.writeBillingReference(enc, doc)
	s.writeSignatureInfo(enc, ctx)
	s.writeSupplierParty(enc, ctx)
	s.writeCustomerParty(enc, doc)
	s.writeTaxTotal(enc, doc, ctx.Lines)
	s.writeLegalMonetaryTotal(enc, doc)
	for _, line := range ctx.Lines {
		s.writeLine(enc, "CreditNoteLine", "CreditedQuantity", doc.Currency, line)
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ── escritores de secciones ───────────────────────────────────────────────────

// writeUBLExtensions escribe ext:UBLExtensions con un único ExtensionContent
// vacío como primer hijo del comprobante (requerido por el firmador).
func (s *XMLBuilderService) writeUBLExtensions(enc *xml.Encoder) {
	writeStart(enc, "ext:UBLExtensions")
	writeStart(enc, "ext:UBLExtension")
	writeStart(enc, "ext:ExtensionContent")
	writeEnd(enc, "ext:ExtensionContent")
	writeEnd(enc, "ext:UBLExtension")
	writeEnd(enc, "ext:UBLExtensions")
}

func (s *XMLBuilderService) writeInvoiceTypeCode(enc *xml.Encoder, code string) {
	name := xml.Name{Local: "cbc:InvoiceTypeCode"}
	_ = enc.EncodeToken(xml.StartElement{
		Name: name,
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "listAgencyName"}, Value: "PE:SUNAT"},
			{Name: xml.Name{Local: "listName"}, Value: "Tipo de Documento"},
			{Name: xml.Name{Local: "listURI"}, Value: catalogo01URI},
		},
	})
	_ = enc.EncodeToken(xml.CharData(code))
	_ = enc.EncodeToken(xml.EndElement{Name: name})
}

func (s *XMLBuilderService) writeDiscrepancyResponse(enc *xml.Encoder, doc *entity.Document) {
	writeStart(enc, "cac:DiscrepancyResponse")
	writeCbc(enc, "ReferenceID", doc.ReferencedNumber)
	writeCbc(enc, "ResponseCode", doc.CreditNoteType)
	if desc := pkgsunat.CreditNoteTypeDescription(doc.CreditNoteType); desc != "" {
		writeCbc(enc, "Description", desc)
	}
	writeEnd(enc, "cac:DiscrepancyResponse")
}

func (s *XMLBuilderService) writeBillingReference(enc *xml.Encoder, doc *entity.Document) {
	writeStart(enc, "cac:BillingReference")
	writeStart(enc, "cac:InvoiceDocumentReference")
	writeCbc(enc, "ID", doc.ReferencedNumber)
	writeCbc(enc, "DocumentTypeCode", docTypeForNumber(doc.ReferencedNumber))
	writeEnd(enc, "cac:InvoiceDocumentReference")
	writeEnd(enc, "cac:BillingReference")
}

// writeSignatureInfo escribe el bloque cac:Signature con los datos del
// firmante. La URI apunta al Id del ds:Signature que inyecta el firmador.
func (s *XMLBuilderService) writeSignatureInfo(enc *xml.Encoder, ctx *DocumentBuildContext) {
	issuer := ctx.Document.Issuer
	writeStart(enc, "cac:Signature")
	writeCbc(enc, "ID", issuer.IdentityNumber)
	writeStart(enc, "cac:SignatoryParty")
	writeStart(enc, "cac:PartyIdentification")
	writeCbc(enc, "ID", issuer.IdentityNumber)
	writeEnd(enc, "cac:PartyIdentification")
	writeStart(enc, "cac:PartyName")
	writeCbc(enc, "Name", issuer.Name)
	writeEnd(enc, "cac:PartyName")
	writeEnd(enc, "cac:SignatoryParty")
	writeStart(enc, "cac:DigitalSignatureAttachment")
	writeStart(enc, "cac:ExternalReference")
	writeCbc(enc, "URI", "#SignatureSP")
	writeEnd(enc, "cac:ExternalReference")
	writeEnd(enc, "cac:DigitalSignatureAttachment")
	writeEnd(enc, "cac:Signature")
}

func (s *XMLBuilderService) writeSupplierParty(enc *xml.Encoder, ctx *DocumentBuildContext) {
	issuer := ctx.Document.Issuer
	writeStart(enc, "cac:AccountingSupplierParty")
	writeStart(enc, "cac:Party")

	// Identificación fiscal (RUC, schemeID 6)
	writeStart(enc, "cac:PartyIdentification")
	writeCbcWithAttr(enc, "ID", issuer.IdentityNumber, "schemeID", pkgsunat.IdentityTypeRUC)
	writeEnd(enc, "cac:PartyIdentification")

	if ctx.Tenant != nil && ctx.Tenant.NombreComercial != "" {
		writeStart(enc, "cac:PartyName")
		writeCbc(enc, "Name", ctx.Tenant.NombreComercial)
		writeEnd(enc, "cac:PartyName")
	}

	writeStart(enc, "cac:PartyLegalEntity")
	writeCbc(enc, "RegistrationName", issuer.Name)
	writeStart(enc, "cac:RegistrationAddress")
	if ctx.Tenant != nil && ctx.Tenant.Ubigeo != "" {
		writeCbc(enc, "ID", ctx.Tenant.Ubigeo)
	}
	if issuer.Address != "" {
		writeStart(enc, "cac:AddressLine")
		writeCbc(enc, "Line", issuer.Address)
		writeEnd(enc, "cac:AddressLine")
	}
	writeEnd(enc, "cac:RegistrationAddress")
	writeEnd(enc, "cac:PartyLegalEntity")

	writeEnd(enc, "cac:Party")
	writeEnd(enc, "cac:AccountingSupplierParty")
}

func (s *XMLBuilderService) writeCustomerParty(enc *xml.Encoder, doc *entity.Document) {
	customer := doc.Customer
	writeStart(enc, "cac:AccountingCustomerParty")
	writeStart(enc, "cac:Party")

	writeStart(enc, "cac:PartyIdentification")
	writeCbcWithAttr(enc, "ID", customer.IdentityNumber, "schemeID", customer.IdentityType)
	writeEnd(enc, "cac:PartyIdentification")

	writeStart(enc, "cac:PartyLegalEntity")
	writeCbc(enc, "RegistrationName", customer.Name)
	if customer.Address != "" {
		writeStart(enc, "cac:RegistrationAddress")
		writeStart(enc, "cac:AddressLine")
		writeCbc(enc, "Line", customer.Address)
		writeEnd(enc, "cac:AddressLine")
		writeEnd(enc, "cac:RegistrationAddress")
	}
	writeEnd(enc, "cac:PartyLegalEntity")

	writeEnd(enc, "cac:Party")
	writeEnd(enc, "cac:AccountingCustomerParty")
}

// writeTaxTotal agrupa las líneas por esquema tributario (IGV, EXO, INA, EXP)
// y escribe un cac:TaxSubtotal por cada esquema presente, en orden de aparición.
func (s *XMLBuilderService) writeTaxTotal(enc *xml.Encoder, doc *entity.Document, lines []*entity.DocumentLine) {
	type schemeTotal struct {
		scheme  pkgsunat.TaxScheme
		taxable decimal.Decimal
		tax     decimal.Decimal
	}
	var order []string
	bySch := make(map[string]*schemeTotal)
	for _, line := range lines {
		sch := pkgsunat.TaxSchemeForAfectacion(line.AfectacionIGV)
		st, ok := bySch[sch.ID]
		if !ok {
			st = &schemeTotal{scheme: sch}
			bySch[sch.ID] = st
			order = append(order, sch.ID)
		}
		st.taxable = st.taxable.Add(line.Subtotal)
		st.tax = st.tax.Add(line.IGV)
	}

	writeStart(enc, "cac:TaxTotal")
	writeCbcAmount(enc, "TaxAmount", formatDecimal(doc.TaxTotal), doc.Currency)
	for _, id := range order {
		st := bySch[id]
		writeStart(enc, "cac:TaxSubtotal")
		writeCbcAmount(enc, "TaxableAmount", formatDecimal(st.taxable), doc.Currency)
		writeCbcAmount(enc, "TaxAmount", formatDecimal(st.tax), doc.Currency)
		writeStart(enc, "cac:TaxCategory")
		s.writeTaxScheme(enc, st.scheme)
		writeEnd(enc, "cac:TaxCategory")
		writeEnd(enc, "cac:TaxSubtotal")
	}
	writeEnd(enc, "cac:TaxTotal")
}

func (s *XMLBuilderService) writeTaxScheme(enc *xml.Encoder, scheme pkgsunat.TaxScheme) {
	writeStart(enc, "cac:TaxScheme")
	writeCbc(enc, "ID", scheme.ID)
	writeCbc(enc, "Name", scheme.Name)
	writeCbc(enc, "TaxTypeCode", scheme.Type)
	writeEnd(enc, "cac:TaxScheme")
}

func (s *XMLBuilderService) writeLegalMonetaryTotal(enc *xml.Encoder, doc *entity.Document) {
	writeStart(enc, "cac:LegalMonetaryTotal")
	writeCbcAmount(enc, "LineExtensionAmount", formatDecimal(doc.Subtotal), doc.Currency)
	writeCbcAmount(enc, "TaxInclusiveAmount", formatDecimal(doc.GrandTotal), doc.Currency)
	writeCbcAmount(enc, "PayableAmount", formatDecimal(doc.GrandTotal), doc.Currency)
	writeEnd(enc, "cac:LegalMonetaryTotal")
}

// writeLine escribe una línea de Invoice o CreditNote. lineLocal y qtyLocal
// cambian entre ambos esquemas (InvoiceLine/InvoicedQuantity vs
// CreditNoteLine/CreditedQuantity); el resto de la estructura es idéntica.
func (s *XMLBuilderService) writeLine(enc *xml.Encoder, lineLocal, qtyLocal, currency string, line *entity.DocumentLine) {
	unitCode := line.UnitCode
	if unitCode == "" {
		unitCode = pkgsunat.UnitUnidad
	}
	writeStart(enc, "cac:"+lineLocal)
	writeCbc(enc, "ID", strconv.Itoa(line.Position))
	writeCbcWithAttr(enc, qtyLocal, formatDecimal(line.Quantity), "unitCode", unitCode)
	writeCbcAmount(enc, "LineExtensionAmount", formatDecimal(line.Subtotal), currency)

	// cac:PricingReference — precio unitario con IGV (Catálogo 16, código 01)
	refPrice := line.UnitPrice
	if line.IGVRate.IsPositive() {
		refPrice = line.UnitPrice.Mul(decimal.NewFromInt(1).Add(line.IGVRate))
	}
	writeStart(enc, "cac:PricingReference")
	writeStart(enc, "cac:AlternativeConditionPrice")
	writeCbcAmount(enc, "PriceAmount", formatDecimal(refPrice), currency)
	writeCbc(enc, "PriceTypeCode", "01")
	writeEnd(enc, "cac:AlternativeConditionPrice")
	writeEnd(enc, "cac:PricingReference")

	// cac:TaxTotal de la línea
	writeStart(enc, "cac:TaxTotal")
	writeCbcAmount(enc, "TaxAmount", formatDecimal(line.IGV), currency)
	writeStart(enc, "cac:TaxSubtotal")
	writeCbcAmount(enc, "TaxableAmount", formatDecimal(line.Subtotal), currency)
	writeCbcAmount(enc, "TaxAmount", formatDecimal(line.IGV), currency)
	writeStart(enc, "cac:TaxCategory")
	writeCbc(enc, "Percent", formatDecimal(line.IGVRate.Mul(decimal.NewFromInt(100))))
	writeCbc(enc, "TaxExemptionReasonCode", line.AfectacionIGV)
	s.writeTaxScheme(enc, pkgsunat.TaxSchemeForAfectacion(line.AfectacionIGV))
	writeEnd(enc, "cac:TaxCategory")
	writeEnd(enc, "cac:TaxSubtotal")
	writeEnd(enc, "cac:TaxTotal")

	writeStart(enc, "cac:Item")
	writeCbc(enc, "Description", line.Description)
	writeEnd(enc, "cac:Item")

	// cac:Price — valor unitario sin IGV
	writeStart(enc, "cac:Price")
	writeCbcAmount(enc, "PriceAmount", formatDecimal(line.UnitPrice), currency)
	writeEnd(enc, "cac:Price")

	writeEnd(enc, "cac:"+lineLocal)
}

// ── helpers de bajo nivel ─────────────────────────────────────────────────────

func writeStart(enc *xml.Encoder, local string) {
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: local}})
}

func writeEnd(enc *xml.Encoder, local string) {
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: local}})
}

func writeCbc(enc *xml.Encoder, local, value string) {
	name := xml.Name{Local: "cbc:" + local}
	_ = enc.EncodeToken(xml.StartElement{Name: name})
	_ = enc.EncodeToken(xml.CharData(value))
	_ = enc.EncodeToken(xml.EndElement{Name: name})
}

func writeCbcAmount(enc *xml.Encoder, local, value, currency string) {
	name := xml.Name{Local: "cbc:" + local}
	attr := []xml.Attr{}
	if currency != "" {
		attr = append(attr, xml.Attr{Name: xml.Name{Local: "currencyID"}, Value: currency})
	}
	_ = enc.EncodeToken(xml.StartElement{Name: name, Attr: attr})
	_ = enc.EncodeToken(xml.CharData(value))
	_ = enc.EncodeToken(xml.EndElement{Name: name})
}

func writeCbcWithAttr(enc *xml.Encoder, local, value, attrLocal, attrValue string) {
	name := xml.Name{Local: "cbc:" + local}
	_ = enc.EncodeToken(xml.StartElement{
		Name: name,
		Attr: []xml.Attr{{Name: xml.Name{Local: attrLocal}, Value: attrValue}},
	})
	_ = enc.EncodeToken(xml.CharData(value))
	_ = enc.EncodeToken(xml.EndElement{Name: name})
}

func formatDecimal(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

// docTypeForNumber infiere el tipo del comprobante referenciado a partir de la
// letra de su serie (F → factura, B → boleta).
func docTypeForNumber(number string) string {
	if strings.HasPrefix(number, "B") {
		return pkgsunat.DocTypeBoleta
	}
	return pkgsunat.DocTypeFactura
}
