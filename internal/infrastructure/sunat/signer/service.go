// Servicio de firma digital XML-DSig enveloped para comprobantes SUNAT.
// Inyecta <ds:Signature> en el <ext:ExtensionContent> vacío del comprobante.

package signer

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	pkgsunat "github.com/jhoicas/Facturacion-api/pkg/sunat"
)

// DigitalSignatureService implementa la firma enveloped e inyecta el nodo en el XML.
type DigitalSignatureService struct{}

// NewDigitalSignatureService crea el servicio.
func NewDigitalSignatureService() *DigitalSignatureService {
	return &DigitalSignatureService{}
}

// Sign implementa pkg/sunat.Signer. Calcula el digest C14N del documento,
// firma el SignedInfo con RSA-SHA256 e inyecta ds:Signature en el
// ExtensionContent vacío. El resto del documento no se altera: dos
// comprobantes distintos producen SignatureValue distintos porque el digest
// del documento forma parte del SignedInfo firmado.
func (s *DigitalSignatureService) Sign(xmlBytes []byte, cert tls.Certificate) ([]byte, error) {
	if len(bytes.TrimSpace(xmlBytes)) == 0 {
		return nil, &domain.CertificateError{Kind: domain.CertMalformedInput, Detail: "XML vacío"}
	}
	priv, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("sunat: el certificado debe incluir llave privada RSA")
	}
	x509Cert, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("sunat: parsear certificado: %w", err)
	}

	// Parse estructural: valida el XML de entrada y localiza el placeholder.
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, &domain.CertificateError{Kind: domain.CertMalformedInput, Detail: err.Error()}
	}
	placeholder, err := findSignaturePlaceholder(doc)
	if err != nil {
		return nil, err
	}

	// 1) Digest del documento completo (C14N). Reference URI="" + transform enveloped.
	canonicalDoc, err := canonicalizeXML(xmlBytes)
	if err != nil {
		return nil, &domain.CertificateError{Kind: domain.CertMalformedInput, Detail: "canonicalizar documento: " + err.Error()}
	}
	docDigest := sha256.Sum256(canonicalDoc)
	docDigestB64 := base64.StdEncoding.EncodeToString(docDigest[:])

	// 2) SignedInfo canónico firmado con RSA PKCS#1 v1.5 + SHA-256
	signedInfoXML := s.buildSignedInfo(docDigestB64)
	canonicalSignedInfo, err := canonicalizeXML([]byte(signedInfoXML))
	if err != nil {
		return nil, fmt.Errorf("sunat: canonicalizar SignedInfo: %w", err)
	}
	signHash := sha256.Sum256(canonicalSignedInfo)
	signatureValue, err := rsa.SignPKCS1v15(nil, priv, crypto.SHA256, signHash[:])
	if err != nil {
		return nil, fmt.Errorf("sunat: firmar SignedInfo: %w", err)
	}

	// 3) Nodo ds:Signature completo con el certificado embebido (KeyInfo)
	signatureXML := s.buildFullSignature(
		signedInfoXML,
		base64.StdEncoding.EncodeToString(signatureValue),
		base64.StdEncoding.EncodeToString(x509Cert.Raw),
	)

	// 4) Inyección en el placeholder
	sigDoc := etree.NewDocument()
	if err := sigDoc.ReadFromString(signatureXML); err != nil {
		return nil, fmt.Errorf("sunat: parsear Signature: %w", err)
	}
	if sigRoot := sigDoc.Root(); sigRoot != nil {
		placeholder.AddChild(sigRoot)
	}
	var out bytes.Buffer
	if _, err := doc.WriteTo(&out); err != nil {
		return nil, fmt.Errorf("sunat: serializar XML firmado: %w", err)
	}
	return out.Bytes(), nil
}

func canonicalizeXML(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

// findSignaturePlaceholder localiza el primer ext:ExtensionContent vacío bajo
// ext:UBLExtensions. Si el comprobante no lo trae, la entrada es inválida para
// el firmador.
func findSignaturePlaceholder(doc *etree.Document) (*etree.Element, error) {
	root := doc.Root()
	if root == nil {
		return nil, &domain.CertificateError{Kind: domain.CertMalformedInput, Detail: "documento sin raíz"}
	}
	var ublExt *etree.Element
	for _, child := range root.ChildElements() {
		if child.Tag == "UBLExtensions" {
			ublExt = child
			break
		}
	}
	if ublExt == nil {
		return nil, &domain.CertificateError{Kind: domain.CertMalformedInput, Detail: "no se encontró ext:UBLExtensions"}
	}
	for _, ext := range ublExt.ChildElements() {
		if ext.Tag != "UBLExtension" {
			continue
		}
		for _, ec := range ext.ChildElements() {
			if ec.Tag == "ExtensionContent" && len(ec.ChildElements()) == 0 {
				return ec, nil
			}
		}
	}
	return nil, &domain.CertificateError{Kind: domain.CertMalformedInput, Detail: "no se encontró ext:ExtensionContent vacío para inyectar la firma"}
}

func (s *DigitalSignatureService) buildSignedInfo(docDigestB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:SignedInfo xmlns:ds="` + NamespaceDS + `">`)
	sb.WriteString(`<ds:CanonicalizationMethod Algorithm="` + AlgC14N + `"/>`)
	sb.WriteString(`<ds:SignatureMethod Algorithm="` + AlgRSASHA256 + `"/>`)
	sb.WriteString(`<ds:Reference URI="">`)
	sb.WriteString(`<ds:Transforms><ds:Transform Algorithm="` + TransformEnveloped + `"/></ds:Transforms>`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA256 + `"/>`)
	sb.WriteString(`<ds:DigestValue>` + docDigestB64 + `</ds:DigestValue>`)
	sb.WriteString(`</ds:Reference>`)
	sb.WriteString(`</ds:SignedInfo>`)
	return sb.String()
}

func (s *DigitalSignatureService) buildFullSignature(signedInfoXML, signatureValueB64, certB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:Signature xmlns:ds="` + NamespaceDS + `" Id="` + SignatureID + `">`)
	sb.WriteString(signedInfoXML)
	sb.WriteString(`<ds:SignatureValue>` + signatureValueB64 + `</ds:SignatureValue>`)
	sb.WriteString(`<ds:KeyInfo><ds:X509Data><ds:X509Certificate>` + certB64 + `</ds:X509Certificate></ds:X509Data></ds:KeyInfo>`)
	sb.WriteString(`</ds:Signature>`)
	return sb.String()
}

// ExtractDigestValue devuelve el DigestValue (base64) de la firma de un XML ya
// firmado. Es el valor resumen que lleva la cadena del código QR de la
// representación impresa.
func ExtractDigestValue(signedXML []byte) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(signedXML); err != nil {
		return "", fmt.Errorf("sunat: parsear XML firmado: %w", err)
	}
	el := doc.FindElement("//DigestValue")
	if el == nil {
		return "", fmt.Errorf("sunat: el XML no contiene DigestValue de firma")
	}
	return strings.TrimSpace(el.Text()), nil
}

var _ pkgsunat.Signer = (*DigitalSignatureService)(nil)
