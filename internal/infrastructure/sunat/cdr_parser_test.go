package sunat_test

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/jhoicas/Facturacion-api/internal/infrastructure/sunat"
)

type entradaZip struct {
	nombre    string
	contenido []byte
}

// zipConEntradas arma un ZIP en memoria con las entradas dadas, en orden.
func zipConEntradas(t *testing.T, entradas ...entradaZip) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entradas {
		fw, err := zw.Create(e.nombre)
		require.NoError(t, err)
		_, err = fw.Write(e.contenido)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// zipCDR empaqueta un único XML de constancia, como los R-*.zip de SUNAT.
func zipCDR(t *testing.T, nombre, xmlCDR string) []byte {
	t.Helper()
	return zipConEntradas(t, entradaZip{nombre, []byte(xmlCDR)})
}

// cdrXML arma un ApplicationResponse UBL mínimo como los que devuelve el
// billService, con prefijos de namespace reales.
func cdrXML(encoding, code, description string, notes ...string) string {
	var sb bytes.Buffer
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="%s"?>`+"\n", encoding)
	sb.WriteString(`<ar:ApplicationResponse xmlns:ar="urn:oasis:names:specification:ubl:schema:xsd:ApplicationResponse-2"` +
		` xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"` +
		` xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">` + "\n")
	sb.WriteString("  <cbc:ResponseDate>2026-01-15</cbc:ResponseDate>\n")
	for _, n := range notes {
		fmt.Fprintf(&sb, "  <cbc:Note>%s</cbc:Note>\n", n)
	}
	sb.WriteString("  <cac:DocumentResponse>\n    <cac:Response>\n")
	sb.WriteString("      <cbc:ReferenceID>F001-00000001</cbc:ReferenceID>\n")
	if code != "" {
		fmt.Fprintf(&sb, "      <cbc:ResponseCode>%s</cbc:ResponseCode>\n", code)
	}
	fmt.Fprintf(&sb, "      <cbc:Description>%s</cbc:Description>\n", description)
	sb.WriteString("    </cac:Response>\n  </cac:DocumentResponse>\n</ar:ApplicationResponse>\n")
	return sb.String()
}

// ────────────────────────── casos felices ────────────────────────────────────

func TestParseCDR_Aceptado(t *testing.T) {
	xmlCDR := cdrXML("UTF-8", "0",
		"La Factura numero F001-00000001, ha sido aceptada",
		"  La Factura numero F001-00000001, ha sido aceptada  ", // con relleno
		"   ") // solo espacios: se descarta
	zipBytes := zipCDR(t, "R-20600055519-01-F001-00000001.xml", xmlCDR)

	receipt, err := sunat.ParseCDR(zipBytes)
	require.NoError(t, err)

	assert.Equal(t, "0", receipt.Code)
	assert.Equal(t, "La Factura numero F001-00000001, ha sido aceptada", receipt.Message)
	assert.Equal(t, []string{"La Factura numero F001-00000001, ha sido aceptada"}, receipt.Notes,
		"las notas llegan sin relleno y sin entradas vacías")
	assert.WithinDuration(t, time.Now(), receipt.ReceivedAt, time.Minute)
}

func TestParseCDR_RechazoEnLatin1(t *testing.T) {
	// SUNAT suele declarar ISO-8859-1; los acentos llegan en bytes latin-1 y
	// deben salir como UTF-8 válido.
	xmlUTF8 := cdrXML("ISO-8859-1", "2335", "El número de serie F001 no está autorizado al señor contribuyente")
	latin1, err := charmap.ISO8859_1.NewEncoder().String(xmlUTF8)
	require.NoError(t, err)

	receipt, err := sunat.ParseCDR(zipCDR(t, "R-20600055519-01-F001-00000001.xml", latin1))
	require.NoError(t, err)

	assert.Equal(t, "2335", receipt.Code)
	assert.Equal(t, "El número de serie F001 no está autorizado al señor contribuyente", receipt.Message)
}

func TestParseCDR_ToleraDirectoriosYExtensionMayuscula(t *testing.T) {
	zipBytes := zipConEntradas(t,
		entradaZip{nombre: "adjuntos/"},
		entradaZip{nombre: "R-20600055519-01-F001-00000001.XML", contenido: []byte(cdrXML("UTF-8", "0", "Aceptada"))},
	)

	receipt, err := sunat.ParseCDR(zipBytes)
	require.NoError(t, err)
	assert.Equal(t, "0", receipt.Code)
}

// ────────────────────────── entradas inválidas ───────────────────────────────

func TestParseCDR_ZipCorrupto(t *testing.T) {
	_, err := sunat.ParseCDR([]byte("esto no es un zip"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "abrir ZIP")
}

func TestParseCDR_ZipSinXML(t *testing.T) {
	zipBytes := zipConEntradas(t, entradaZip{nombre: "LEEME.txt", contenido: []byte("sin constancia")})

	_, err := sunat.ParseCDR(zipBytes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no contiene ningún XML")
}

func TestParseCDR_XMLMalformado(t *testing.T) {
	_, err := sunat.ParseCDR(zipCDR(t, "R-x.xml", "<ApplicationResponse><sin-cerrar>"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsear ApplicationResponse")
}

func TestParseCDR_SinResponseCode(t *testing.T) {
	_, err := sunat.ParseCDR(zipCDR(t, "R-x.xml", cdrXML("UTF-8", "", "Descripción sin código")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sin ResponseCode")
}
