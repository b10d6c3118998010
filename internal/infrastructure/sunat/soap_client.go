package sunat

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/pkg/config"
)

// ── Constantes de entorno ──────────────────────────────────────────────────────

const (
	// EnvBeta es el ambiente de habilitación/pruebas de SUNAT.
	EnvBeta = "beta"
	// EnvProd es el ambiente de producción de SUNAT.
	EnvProd = "prod"

	billServiceURLBeta = "https://e-beta.sunat.gob.pe/ol-ti-itcpfegem-beta/billService"
	billServiceURLProd = "https://e-factura.sunat.gob.pe/ol-ti-itcpfegem/billService"

	soapEnvNS     = "http://schemas.xmlsoap.org/soap/envelope/"
	billServiceNS = "http://service.sunat.gob.pe"
	wsseNS        = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"
)

// ── Puerto (interfaz) ──────────────────────────────────────────────────────────

// Credentials credenciales SOL del emisor para el WS-Security UsernameToken.
type Credentials struct {
	RUC         string
	SOLUser     string
	SOLPassword string
}

// Username compone el usuario del token: RUC concatenado con el usuario SOL.
func (c Credentials) Username() string { return c.RUC + c.SOLUser }

// SubmitResult resultado de una entrega respondida por el billService: el
// Receipt interpretable y el ZIP del CDR tal como llegó (evidencia).
type SubmitResult struct {
	Receipt *entity.Receipt
	CDRZip  []byte // vacío cuando la respuesta fue ticket o fault de rechazo
}

// SUNATSubmitter define el puerto de salida hacia el billService de SUNAT.
// La implementación concreta usa SOAP; para tests se puede inyectar un fake.
type SUNATSubmitter interface {
	// Submit envía el ZIP del comprobante firmado. Los faults con código
	// numérico >= 2000 son rechazos del documento y se devuelven como Receipt
	// (sin error); los demás fallos llegan como *domain.TransportError.
	Submit(ctx context.Context, creds Credentials, zipName string, zipBytes []byte) (*SubmitResult, error)
}

// ── Implementación SOAP ────────────────────────────────────────────────────────

// SOAPSUNATClient implementa SUNATSubmitter contra el billService SOAP de SUNAT.
type SOAPSUNATClient struct {
	httpClient *http.Client
	endpoint   string
}

// NewSOAPSUNATClient construye el cliente. cfg.Endpoint permite apuntar a un
// servidor propio (tests, proxies); vacío usa la URL del ambiente configurado.
func NewSOAPSUNATClient(cfg config.SUNATConfig) *SOAPSUNATClient {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		if cfg.Environment == EnvProd {
			endpoint = billServiceURLProd
		} else {
			endpoint = billServiceURLBeta
		}
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SOAPSUNATClient{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   endpoint,
	}
}

// ── Estructuras SOAP ──────────────────────────────────────────────────────────

type soapEnvelope struct {
	XMLName   xml.Name   `xml:"soapenv:Envelope"`
	XmlnsSoap string     `xml:"xmlns:soapenv,attr"`
	XmlnsSer  string     `xml:"xmlns:ser,attr"`
	XmlnsWsse string     `xml:"xmlns:wsse,attr"`
	Header    soapHeader `xml:"soapenv:Header"`
	Body      soapBody   `xml:"soapenv:Body"`
}

type soapHeader struct {
	Security wsseSecurity `xml:"wsse:Security"`
}

type wsseSecurity struct {
	UsernameToken wsseUsernameToken `xml:"wsse:UsernameToken"`
}

type wsseUsernameToken struct {
	Username string `xml:"wsse:Username"`
	Password string `xml:"wsse:Password"`
}

type soapBody struct {
	SendBill sendBillBody `xml:"ser:sendBill"`
}

type sendBillBody struct {
	FileName    string `xml:"fileName"`
	ContentFile string `xml:"contentFile"` // ZIP en Base64
}

// ── Estructuras de respuesta SOAP ─────────────────────────────────────────────

type soapResponseEnvelope struct {
	Body soapResponseBody `xml:"Body"`
}

type soapResponseBody struct {
	SendBillResponse *sendBillResponse `xml:"sendBillResponse"`
	Fault            *soapFault        `xml:"Fault"`
}

type sendBillResponse struct {
	ApplicationResponse string `xml:"applicationResponse"` // ZIP del CDR en Base64
	Ticket              string `xml:"ticket"`
}

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}

// ── Submit ────────────────────────────────────────────────────────────────────

// Submit envía el ZIP al billService con las credenciales SOL del emisor y
// traduce la respuesta (CDR, ticket o fault).
func (c *SOAPSUNATClient) Submit(ctx context.Context, creds Credentials, zipName string, zipBytes []byte) (*SubmitResult, error) {
	envelope := soapEnvelope{
		XmlnsSoap: soapEnvNS,
		XmlnsSer:  billServiceNS,
		XmlnsWsse: wsseNS,
		Header: soapHeader{
			Security: wsseSecurity{
				UsernameToken: wsseUsernameToken{
					Username: creds.Username(),
					Password: creds.SOLPassword,
				},
			},
		},
		Body: soapBody{
			SendBill: sendBillBody{
				FileName:    zipName,
				ContentFile: base64.StdEncoding.EncodeToString(zipBytes),
			},
		},
	}

	xmlPayload, err := xml.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return nil, domain.NewTransportError(domain.TransportNonRecoverable,
			fmt.Errorf("soap: serializar envelope: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(xmlPayload))
	if err != nil {
		return nil, domain.NewTransportError(domain.TransportNonRecoverable,
			fmt.Errorf("soap: crear request: %w", err))
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "urn:sendBill")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewTransportError(classifyHTTPError(ctx, err),
			fmt.Errorf("soap: llamada HTTP fallida: %w", err))
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, domain.NewTransportError(domain.TransportRecoverable,
			fmt.Errorf("soap: leer respuesta: %w", err))
	}

	return c.parseResponse(resp.StatusCode, rawBody)
}

// parseResponse desempaqueta la respuesta del billService. SUNAT responde los
// faults con HTTP 500, por lo que el cuerpo se parsea sin mirar el status.
func (c *SOAPSUNATClient) parseResponse(status int, rawBody []byte) (*SubmitResult, error) {
	var envResp soapResponseEnvelope
	if err := xml.Unmarshal(rawBody, &envResp); err != nil {
		return nil, domain.NewTransportError(domain.TransportRecoverable,
			fmt.Errorf("soap: respuesta no parseable (HTTP %d): %w", status, err))
	}

	// SOAP Fault: los códigos >= 2000 son rechazos del comprobante; los
	// menores son errores del servicio y se reintentan.
	if f := envResp.Body.Fault; f != nil {
		code, numeric := numericFaultCode(f.FaultCode)
		if numeric && code >= 2000 {
			return &SubmitResult{Receipt: &entity.Receipt{
				Code:       strconv.Itoa(code),
				Message:    f.FaultString,
				ReceivedAt: time.Now(),
			}}, nil
		}
		return nil, domain.NewTransportError(domain.TransportRecoverable,
			fmt.Errorf("soap fault [%s]: %s", f.FaultCode, f.FaultString))
	}

	sb := envResp.Body.SendBillResponse
	if sb == nil {
		return nil, domain.NewTransportError(domain.TransportRecoverable,
			fmt.Errorf("soap: respuesta vacía o inesperada (HTTP %d)", status))
	}

	// Respuesta asíncrona: llega un ticket para consultar el CDR después.
	if sb.ApplicationResponse == "" {
		if sb.Ticket != "" {
			return &SubmitResult{Receipt: &entity.Receipt{
				Code:       entity.ReceiptCodeTicket,
				Message:    sb.Ticket,
				ReceivedAt: time.Now(),
			}}, nil
		}
		return nil, domain.NewTransportError(domain.TransportRecoverable,
			fmt.Errorf("soap: sendBillResponse sin applicationResponse ni ticket"))
	}

	cdrZip, err := base64.StdEncoding.DecodeString(strings.TrimSpace(sb.ApplicationResponse))
	if err != nil {
		return nil, domain.NewTransportError(domain.TransportNonRecoverable,
			fmt.Errorf("soap: applicationResponse no es Base64: %w", err))
	}
	receipt, err := ParseCDR(cdrZip)
	if err != nil {
		return nil, domain.NewTransportError(domain.TransportNonRecoverable,
			fmt.Errorf("soap: %w", err))
	}
	return &SubmitResult{Receipt: receipt, CDRZip: cdrZip}, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

// classifyHTTPError distingue timeouts (de contexto o de red) de otros fallos
// de transporte; el resto se considera recuperable.
func classifyHTTPError(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.TransportTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.TransportTimeout
	}
	return domain.TransportRecoverable
}

// numericFaultCode extrae la parte numérica del faultcode
// ("soap-env:Client.2335" → 2335; "2335" → 2335).
func numericFaultCode(code string) (int, bool) {
	code = strings.TrimSpace(code)
	if idx := strings.LastIndexAny(code, ".:"); idx != -1 {
		code = code[idx+1:]
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return 0, false
	}
	return n, true
}
