package sunat

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"golang.org/x/text/encoding/charmap"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// cdrApplicationResponse mapea los campos que interesan del ApplicationResponse
// UBL que viene dentro del ZIP del CDR. Los tags ignoran prefijos de namespace.
type cdrApplicationResponse struct {
	XMLName      xml.Name `xml:"ApplicationResponse"`
	ResponseDate string   `xml:"ResponseDate"`
	Notes        []string `xml:"Note"`
	ReferenceID  string   `xml:"DocumentResponse>Response>ReferenceID"`
	ResponseCode string   `xml:"DocumentResponse>Response>ResponseCode"`
	Description  string   `xml:"DocumentResponse>Response>Description"`
}

// ParseCDR desempaqueta el ZIP de la constancia de recepción (R-*.zip), parsea
// el ApplicationResponse y devuelve el Receipt con código, mensaje y notas.
// Los CDR de SUNAT suelen venir codificados en ISO-8859-1.
func ParseCDR(zipBytes []byte) (*entity.Receipt, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return nil, fmt.Errorf("cdr: abrir ZIP: %w", err)
	}

	var xmlFile *zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(f.Name), ".xml") {
			xmlFile = f
			break
		}
	}
	if xmlFile == nil {
		return nil, fmt.Errorf("cdr: el ZIP no contiene ningún XML")
	}

	rc, err := xmlFile.Open()
	if err != nil {
		return nil, fmt.Errorf("cdr: abrir %s: %w", xmlFile.Name, err)
	}
	defer rc.Close()

	dec := xml.NewDecoder(io.LimitReader(rc, 4<<20))
	dec.CharsetReader = charsetReader

	var ar cdrApplicationResponse
	if err := dec.Decode(&ar); err != nil {
		return nil, fmt.Errorf("cdr: parsear ApplicationResponse: %w", err)
	}
	if ar.ResponseCode == "" {
		return nil, fmt.Errorf("cdr: ApplicationResponse sin ResponseCode")
	}

	notes := make([]string, 0, len(ar.Notes))
	for _, n := range ar.Notes {
		if n = strings.TrimSpace(n); n != "" {
			notes = append(notes, n)
		}
	}

	return &entity.Receipt{
		Code:       strings.TrimSpace(ar.ResponseCode),
		Message:    strings.TrimSpace(ar.Description),
		Notes:      notes,
		ReceivedAt: time.Now(),
	}, nil
}

// charsetReader resuelve las codificaciones declaradas por los CDR de SUNAT.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "", "utf-8":
		return input, nil
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	}
	return nil, fmt.Errorf("charset no soportado: %s", charset)
}
