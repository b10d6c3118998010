// Package sunat contiene catálogos y validaciones alineados al Anexo 8 de la
// R.S. 097-2012/SUNAT (Factura Electrónica, Perú) y sus modificatorias.
package sunat

import "github.com/shopspring/decimal"

// =============================================================================
// Catálogo 01 - Tipo de Comprobante de Pago (Anexo 8 - 54)
// Identifica el tipo de documento electrónico que se emite.
// =============================================================================

const (
	DocTypeFactura     = "01" // Factura
	DocTypeBoleta      = "03" // Boleta de venta
	DocTypeNotaCredito = "07" // Nota de crédito
	DocTypeNotaDebito  = "08" // Nota de débito
)

// ValidDocumentTypeCodes contiene los tipos de comprobante que el sistema emite.
var ValidDocumentTypeCodes = map[string]bool{
	DocTypeFactura:     true,
	DocTypeBoleta:      true,
	DocTypeNotaCredito: true,
}

// =============================================================================
// Catálogo 06 - Tipo de Documento de Identidad (Anexo 8 - 59)
// =============================================================================

const (
	IdentityTypeSinRUC      = "0" // Doc. trib. no domiciliado sin RUC
	IdentityTypeDNI         = "1" // DNI
	IdentityTypeExtranjeria = "4" // Carnet de extranjería
	IdentityTypeRUC         = "6" // RUC
	IdentityTypePasaporte   = "7" // Pasaporte
)

// ValidIdentityTypeCodes contiene los tipos de documento de identidad válidos (SUNAT).
var ValidIdentityTypeCodes = map[string]bool{
	IdentityTypeSinRUC:      true,
	IdentityTypeDNI:         true,
	IdentityTypeExtranjeria: true,
	IdentityTypeRUC:         true,
	IdentityTypePasaporte:   true,
}

// =============================================================================
// Catálogo 07 - Tipo de Afectación del IGV (Anexo 8 - 60)
// Solo los códigos de operación onerosa de uso general; las gratuitas (11-17,
// 21, 31-37) no se emiten desde este sistema.
// =============================================================================

const (
	AfectacionGravado     = "10" // Gravado - Operación Onerosa
	AfectacionExonerado   = "20" // Exonerado - Operación Onerosa
	AfectacionInafecto    = "30" // Inafecto - Operación Onerosa
	AfectacionExportacion = "40" // Exportación de Bienes o Servicios
)

// ValidAfectacionIGVCodes contiene los códigos de afectación del IGV admitidos por línea.
var ValidAfectacionIGVCodes = map[string]bool{
	AfectacionGravado:     true,
	AfectacionExonerado:   true,
	AfectacionInafecto:    true,
	AfectacionExportacion: true,
}

// =============================================================================
// Catálogo 05 - Tipos de Tributo (Anexo 8 - 58)
// Cada afectación del IGV se declara bajo un esquema tributario UBL distinto.
// =============================================================================

const (
	TributoIGV = "1000" // IGV - Impuesto General a las Ventas
	TributoEXO = "9997" // EXO - Exonerado del IGV
	TributoINA = "9998" // INA - Inafecto del IGV
	TributoEXP = "9996" // EXP - Exportación
)

// TaxScheme describe el esquema tributario UBL (cac:TaxScheme) de un tributo.
type TaxScheme struct {
	ID   string // Catálogo 05
	Name string // Nombre corto SUNAT
	Type string // Código internacional (UN/ECE 5153)
}

// IGVRate es la tasa vigente del IGV (16% de IGV + 2% de IPM).
var IGVRate = decimal.NewFromFloat(0.18)

// IGVRateFor devuelve la tasa de IGV que corresponde a un código de afectación
// del Catálogo 07: la tasa vigente para operaciones gravadas, cero para
// exoneradas, inafectas y exportación.
func IGVRateFor(afectacion string) decimal.Decimal {
	if afectacion == AfectacionGravado {
		return IGVRate
	}
	return decimal.Zero
}

// TaxSchemeForAfectacion resuelve el esquema tributario que corresponde a un
// código de afectación del IGV (Catálogo 07). Para códigos desconocidos
// devuelve el esquema IGV; la validación de catálogo ocurre antes.
func TaxSchemeForAfectacion(code string) TaxScheme {
	switch code {
	case AfectacionExonerado:
		return TaxScheme{ID: TributoEXO, Name: "EXO", Type: "VAT"}
	case AfectacionInafecto:
		return TaxScheme{ID: TributoINA, Name: "INA", Type: "FRE"}
	case AfectacionExportacion:
		return TaxScheme{ID: TributoEXP, Name: "EXP", Type: "FRE"}
	default:
		return TaxScheme{ID: TributoIGV, Name: "IGV", Type: "VAT"}
	}
}

// =============================================================================
// Catálogo 02 - Monedas (ISO 4217, Anexo 8 - 55)
// =============================================================================

const (
	CurrencyPEN = "PEN" // Sol
	CurrencyUSD = "USD" // Dólar americano
)

// ValidCurrencyCodes contiene las monedas de emisión admitidas.
var ValidCurrencyCodes = map[string]bool{
	CurrencyPEN: true,
	CurrencyUSD: true,
}

// =============================================================================
// Catálogo 09 - Tipo de Nota de Crédito (Anexo 8 - 62)
// =============================================================================

const (
	CreditNoteAnulacion         = "01" // Anulación de la operación
	CreditNoteAnulacionErrorRUC = "02" // Anulación por error en el RUC
	CreditNoteCorreccion        = "03" // Corrección por error en la descripción
	CreditNoteDevolucionTotal   = "06" // Devolución total
	CreditNoteDevolucionItem    = "07" // Devolución por ítem
)

// ValidCreditNoteTypeCodes contiene los motivos de nota de crédito admitidos.
var ValidCreditNoteTypeCodes = map[string]bool{
	CreditNoteAnulacion:         true,
	CreditNoteAnulacionErrorRUC: true,
	CreditNoteCorreccion:        true,
	CreditNoteDevolucionTotal:   true,
	CreditNoteDevolucionItem:    true,
}

// CreditNoteTypeDescription devuelve la descripción oficial del motivo para el
// cbc:Description del DiscrepancyResponse. Vacío si el código no está en el catálogo.
func CreditNoteTypeDescription(code string) string {
	switch code {
	case CreditNoteAnulacion:
		return "Anulación de la operación"
	case CreditNoteAnulacionErrorRUC:
		return "Anulación por error en el RUC"
	case CreditNoteCorreccion:
		return "Corrección por error en la descripción"
	case CreditNoteDevolucionTotal:
		return "Devolución total"
	case CreditNoteDevolucionItem:
		return "Devolución por ítem"
	default:
		return ""
	}
}

// =============================================================================
// Catálogo 03 - Unidades de Medida (UN/ECE rec 20, Anexo 8 - 56) - uso frecuente
// =============================================================================

const (
	UnitUnidad    = "NIU" // Unidad (bienes)
	UnitServicio  = "ZZ"  // Unidad (servicios)
	UnitKilogramo = "KGM" // Kilogramo
	UnitLitro     = "LTR" // Litro
	UnitMetro     = "MTR" // Metro
	UnitDocena    = "DZN" // Docena
	UnitHora      = "HUR" // Hora
	UnitDia       = "DAY" // Día
)

// ValidMeasurementUnitCodes códigos de unidad de medida válidos (uso común en facturación).
var ValidMeasurementUnitCodes = map[string]bool{
	UnitUnidad: true, UnitServicio: true, UnitKilogramo: true, UnitLitro: true,
	UnitMetro: true, UnitDocena: true, UnitHora: true, UnitDia: true,
}
