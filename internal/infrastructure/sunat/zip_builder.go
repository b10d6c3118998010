package sunat

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zip"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// CompressXMLToZip empaqueta el XML firmado en un archivo ZIP en memoria.
// SUNAT exige que el ZIP contenga un único archivo XML cuyo nombre coincide
// con el del ZIP. Devuelve los bytes listos para enviar al billService.
func CompressXMLToZip(xmlBytes []byte, xmlFilename string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	fw, err := zw.Create(xmlFilename)
	if err != nil {
		return nil, fmt.Errorf("zip: crear entrada %s: %w", xmlFilename, err)
	}
	if _, err := fw.Write(xmlBytes); err != nil {
		return nil, fmt.Errorf("zip: escribir XML: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: cerrar archivo: %w", err)
	}
	return buf.Bytes(), nil
}

// SUNATFilenames genera los nombres de archivo del XML interno y del ZIP.
// Formato: {RUC}-{tipo}-{serie}-{número a 8 dígitos}
// Ejemplo: 20600055519-01-F001-00000001
func SUNATFilenames(tenantRUC string, doc *entity.Document) (xmlName, zipName string) {
	base := fmt.Sprintf("%s-%s-%s", tenantRUC, doc.DocType, doc.FullNumber())
	return base + ".xml", base + ".zip"
}
