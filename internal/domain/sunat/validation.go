// Package sunat contiene validaciones de dominio para facturación electrónica
// SUNAT (Perú), según el Anexo 8 de la R.S. 097-2012/SUNAT. Utiliza catálogos
// y reglas de pkg/sunat.
package sunat

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/pkg/sunat"

	"github.com/shopspring/decimal"
)

// ErrInvalidDocument agrupa errores de validación de comprobante.
var ErrInvalidDocument = errors.New("comprobante inválido para SUNAT")

var seriesPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{3}$`)

// ValidateDocument valida el comprobante y sus líneas según las reglas del
// Anexo 8. Aplica la regla de identidad por tipo: boleta exige DNI del
// adquiriente; factura y nota de crédito exigen RUC con dígito verificador
// válido. Comprueba que los totales coincidan con la suma de las líneas.
func ValidateDocument(doc *entity.Document, lines []*entity.DocumentLine) error {
	if doc == nil {
		return fmt.Errorf("%w: comprobante nulo", ErrInvalidDocument)
	}
	var errs []error

	if !sunat.ValidDocumentTypeCodes[doc.DocType] {
		errs = append(errs, domain.NewValidationError("doc_type", fmt.Sprintf("tipo de comprobante desconocido %q", doc.DocType)))
	}
	if !seriesPattern.MatchString(doc.Series) {
		errs = append(errs, domain.NewValidationError("series", fmt.Sprintf("serie %q no cumple el formato (letra + 3 alfanuméricos)", doc.Series)))
	} else if err := validateSeriesForType(doc.DocType, doc.Series); err != nil {
		errs = append(errs, err)
	}
	if !sunat.ValidCurrencyCodes[doc.Currency] {
		errs = append(errs, domain.NewValidationError("currency", fmt.Sprintf("moneda %q no admitida", doc.Currency)))
	}
	if doc.IssueDate.IsZero() {
		errs = append(errs, domain.NewValidationError("issue_date", "fecha de emisión obligatoria"))
	}

	if err := sunat.ValidateRUC(doc.Issuer.IdentityNumber); err != nil {
		errs = append(errs, domain.NewValidationError("issuer.identity_number", err.Error()))
	}
	errs = append(errs, validateCustomerIdentity(doc)...)
	errs = append(errs, validateCreditNoteFields(doc)...)

	// Totales coherentes con las líneas.
	if len(lines) == 0 {
		errs = append(errs, domain.NewValidationError("lines", "el comprobante debe tener al menos una línea"))
	} else {
		var sumSubtotal, sumIGV decimal.Decimal
		for i, l := range lines {
			errs = append(errs, validateLine(i, l)...)
			sumSubtotal = sumSubtotal.Add(l.Subtotal)
			sumIGV = sumIGV.Add(l.IGV)
		}
		if !doc.Subtotal.Equal(sumSubtotal.Round(2)) {
			errs = append(errs, domain.NewValidationError("subtotal", fmt.Sprintf("subtotal (%s) no coincide con la suma de las líneas (%s)", doc.Subtotal.String(), sumSubtotal.Round(2).String())))
		}
		if !doc.TaxTotal.Equal(sumIGV.Round(2)) {
			errs = append(errs, domain.NewValidationError("tax_total", fmt.Sprintf("IGV total (%s) no coincide con la suma de las líneas (%s)", doc.TaxTotal.String(), sumIGV.Round(2).String())))
		}
		expectedGrand := sumSubtotal.Add(sumIGV).Round(2)
		if !doc.GrandTotal.Equal(expectedGrand) {
			errs = append(errs, domain.NewValidationError("grand_total", fmt.Sprintf("importe total (%s) no coincide con subtotal + IGV (%s)", doc.GrandTotal.String(), expectedGrand.String())))
		}
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidDocument}, errs...)...)
	}
	return nil
}

// validateCustomerIdentity aplica la regla de identidad del adquiriente según
// el tipo de comprobante (Catálogos 01 y 06).
func validateCustomerIdentity(doc *entity.Document) []error {
	var errs []error
	c := doc.Customer
	if c.Name == "" {
		errs = append(errs, domain.NewValidationError("customer.name", "nombre o razón social del adquiriente obligatorio"))
	}
	switch doc.DocType {
	case sunat.DocTypeBoleta:
		if c.IdentityType != sunat.IdentityTypeDNI {
			errs = append(errs, domain.NewValidationError("customer.identity_type", fmt.Sprintf("la boleta exige DNI (tipo %s), se recibió tipo %q", sunat.IdentityTypeDNI, c.IdentityType)))
		}
		if err := sunat.ValidateDNI(c.IdentityNumber); err != nil {
			errs = append(errs, domain.NewValidationError("customer.identity_number", err.Error()))
		}
	case sunat.DocTypeFactura, sunat.DocTypeNotaCredito:
		if c.IdentityType != sunat.IdentityTypeRUC {
			errs = append(errs, domain.NewValidationError("customer.identity_type", fmt.Sprintf("el comprobante %s exige RUC (tipo %s), se recibió tipo %q", doc.DocType, sunat.IdentityTypeRUC, c.IdentityType)))
		}
		if err := sunat.ValidateRUC(c.IdentityNumber); err != nil {
			errs = append(errs, domain.NewValidationError("customer.identity_number", err.Error()))
		}
	}
	return errs
}

// validateCreditNoteFields exige referencia y motivo solo para notas de crédito.
func validateCreditNoteFields(doc *entity.Document) []error {
	if doc.DocType != sunat.DocTypeNotaCredito {
		var errs []error
		if doc.ReferencedNumber != "" {
			errs = append(errs, domain.NewValidationError("referenced_number", "solo una nota de crédito referencia otro comprobante"))
		}
		if doc.CreditNoteType != "" {
			errs = append(errs, domain.NewValidationError("credit_note_type", "motivo de nota de crédito solo aplica al tipo 07"))
		}
		return errs
	}
	var errs []error
	if doc.ReferencedNumber == "" {
		errs = append(errs, domain.NewValidationError("referenced_number", "la nota de crédito debe referenciar el comprobante afectado"))
	}
	if !sunat.ValidCreditNoteTypeCodes[doc.CreditNoteType] {
		errs = append(errs, domain.NewValidationError("credit_note_type", fmt.Sprintf("motivo %q fuera del Catálogo 09", doc.CreditNoteType)))
	}
	return errs
}

func validateLine(i int, l *entity.DocumentLine) []error {
	var errs []error
	field := func(name string) string { return fmt.Sprintf("lines[%d].%s", i, name) }
	if l.Description == "" {
		errs = append(errs, domain.NewValidationError(field("description"), "descripción obligatoria"))
	}
	if !l.Quantity.IsPositive() {
		errs = append(errs, domain.NewValidationError(field("quantity"), "la cantidad debe ser mayor que cero"))
	}
	if !l.UnitPrice.IsPositive() {
		errs = append(errs, domain.NewValidationError(field("unit_price"), "el valor unitario debe ser mayor que cero"))
	}
	if !sunat.ValidAfectacionIGVCodes[l.AfectacionIGV] {
		errs = append(errs, domain.NewValidationError(field("afectacion_igv"), fmt.Sprintf("código %q fuera del Catálogo 07", l.AfectacionIGV)))
	}
	if l.UnitCode != "" && !sunat.ValidMeasurementUnitCodes[l.UnitCode] {
		errs = append(errs, domain.NewValidationError(field("unit_code"), fmt.Sprintf("unidad de medida %q no admitida", l.UnitCode)))
	}
	return errs
}

// validateSeriesForType exige que la letra de la serie corresponda al tipo:
// F para facturas, B para boletas; las notas de crédito heredan la letra del
// comprobante que modifican.
func validateSeriesForType(docType, series string) error {
	switch docType {
	case sunat.DocTypeFactura:
		if series[0] != 'F' {
			return domain.NewValidationError("series", fmt.Sprintf("la serie de una factura empieza con F, se recibió %q", series))
		}
	case sunat.DocTypeBoleta:
		if series[0] != 'B' {
			return domain.NewValidationError("series", fmt.Sprintf("la serie de una boleta empieza con B, se recibió %q", series))
		}
	case sunat.DocTypeNotaCredito:
		if series[0] != 'F' && series[0] != 'B' {
			return domain.NewValidationError("series", fmt.Sprintf("la serie de una nota de crédito empieza con F o B, se recibió %q", series))
		}
	}
	return nil
}

