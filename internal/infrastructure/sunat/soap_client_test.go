package sunat_test

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/sunat"
	"github.com/jhoicas/Facturacion-api/pkg/config"
)

func credencialesSOL() sunat.Credentials {
	return sunat.Credentials{RUC: rucEmisor, SOLUser: "MODDATOS", SOLPassword: "moddatos123"}
}

// clienteContra levanta un billService falso y devuelve un cliente apuntándole.
func clienteContra(t *testing.T, handler http.HandlerFunc) *sunat.SOAPSUNATClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return sunat.NewSOAPSUNATClient(config.SUNATConfig{Endpoint: srv.URL, TimeoutSeconds: 5})
}

func respuestaSOAP(inner string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>` +
		`<soap-env:Envelope xmlns:soap-env="http://schemas.xmlsoap.org/soap/envelope/">` +
		`<soap-env:Body>` + inner + `</soap-env:Body></soap-env:Envelope>`
}

func respuestaSendBill(applicationResponse string) string {
	return respuestaSOAP(`<br:sendBillResponse xmlns:br="http://service.sunat.gob.pe">` +
		`<applicationResponse>` + applicationResponse + `</applicationResponse></br:sendBillResponse>`)
}

func respuestaFault(faultcode, faultstring string) string {
	return respuestaSOAP(`<soap-env:Fault><faultcode>` + faultcode + `</faultcode>` +
		`<faultstring>` + faultstring + `</faultstring></soap-env:Fault>`)
}

// ────────────────────────── respuestas del billService ───────────────────────

func TestSOAPClient_EnvioConCDR(t *testing.T) {
	cdrZip := zipCDR(t, "R-20600055519-01-F001-00000001.xml",
		cdrXML("UTF-8", "0", "La Factura numero F001-00000001, ha sido aceptada"))

	var (
		cuerpo    []byte
		cabeceras http.Header
	)
	cliente := clienteContra(t, func(w http.ResponseWriter, r *http.Request) {
		cuerpo, _ = io.ReadAll(r.Body)
		cabeceras = r.Header.Clone()
		fmt.Fprint(w, respuestaSendBill(base64.StdEncoding.EncodeToString(cdrZip)))
	})

	zipFirmado := []byte("zip-con-el-xml-firmado")
	res, err := cliente.Submit(context.Background(), credencialesSOL(),
		"20600055519-01-F001-00000001.zip", zipFirmado)
	require.NoError(t, err)

	// la respuesta trae el CDR tal cual y el Receipt ya parseado
	require.NotNil(t, res.Receipt)
	assert.Equal(t, "0", res.Receipt.Code)
	assert.Equal(t, "La Factura numero F001-00000001, ha sido aceptada", res.Receipt.Message)
	assert.Equal(t, cdrZip, res.CDRZip)

	// el request lleva el UsernameToken WS-Security con RUC+usuario SOL
	pedido := string(cuerpo)
	assert.Contains(t, pedido, "<wsse:Username>20600055519MODDATOS</wsse:Username>")
	assert.Contains(t, pedido, "<wsse:Password>moddatos123</wsse:Password>")
	assert.Contains(t, pedido, "<fileName>20600055519-01-F001-00000001.zip</fileName>")
	assert.Contains(t, pedido, "<contentFile>"+base64.StdEncoding.EncodeToString(zipFirmado)+"</contentFile>")
	assert.Equal(t, "text/xml; charset=utf-8", cabeceras.Get("Content-Type"))
	assert.Equal(t, "urn:sendBill", cabeceras.Get("SOAPAction"))
}

func TestSOAPClient_TicketAsincrono(t *testing.T) {
	cliente := clienteContra(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, respuestaSOAP(`<br:sendBillResponse xmlns:br="http://service.sunat.gob.pe">`+
			`<ticket>1605401565405</ticket></br:sendBillResponse>`))
	})

	res, err := cliente.Submit(context.Background(), credencialesSOL(), "x.zip", []byte("zip"))
	require.NoError(t, err)

	assert.Equal(t, entity.ReceiptCodeTicket, res.Receipt.Code)
	assert.Equal(t, "1605401565405", res.Receipt.Message)
	assert.Empty(t, res.CDRZip)
}

func TestSOAPClient_FaultDeRechazo(t *testing.T) {
	// SUNAT responde los rechazos por contenido como fault HTTP 500 con código
	// numérico >= 2000; eso es una respuesta definitiva, no un fallo de transporte.
	cliente := clienteContra(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, respuestaFault("soap-env:Client.2335", "El documento electrónico ingresado ha sido alterado"))
	})

	res, err := cliente.Submit(context.Background(), credencialesSOL(), "x.zip", []byte("zip"))
	require.NoError(t, err)

	assert.Equal(t, "2335", res.Receipt.Code)
	assert.Equal(t, "El documento electrónico ingresado ha sido alterado", res.Receipt.Message)
	assert.Empty(t, res.CDRZip)
}

func TestSOAPClient_FaultDeServicio(t *testing.T) {
	casos := []struct {
		nombre    string
		faultcode string
	}{
		{"código bajo 2000", "soap-env:Server.0100"},
		{"código no numérico", "soap-env:Server"},
	}
	for _, c := range casos {
		t.Run(c.nombre, func(t *testing.T) {
			cliente := clienteContra(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprint(w, respuestaFault(c.faultcode, "El sistema no puede responder"))
			})

			res, err := cliente.Submit(context.Background(), credencialesSOL(), "x.zip", []byte("zip"))
			require.Nil(t, res)
			var te *domain.TransportError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, domain.TransportRecoverable, te.Kind,
				"los faults de servicio deben reintentarse")
		})
	}
}

func TestSOAPClient_RespuestasAnomalasSonRecuperables(t *testing.T) {
	casos := []struct {
		nombre string
		cuerpo string
	}{
		{"texto plano", "mantenimiento programado"},
		{"xml ajeno al servicio", "<html><body>503</body></html>"},
		{"sendBillResponse sin contenido", respuestaSOAP(`<br:sendBillResponse xmlns:br="http://service.sunat.gob.pe"></br:sendBillResponse>`)},
	}
	for _, c := range casos {
		t.Run(c.nombre, func(t *testing.T) {
			cliente := clienteContra(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, c.cuerpo)
			})

			_, err := cliente.Submit(context.Background(), credencialesSOL(), "x.zip", []byte("zip"))
			var te *domain.TransportError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, domain.TransportRecoverable, te.Kind)
		})
	}
}

func TestSOAPClient_CDRIlegibleNoSeReintenta(t *testing.T) {
	// un CDR que llega pero no se puede leer no va a mejorar reintentando
	casos := []struct {
		nombre  string
		appResp string
	}{
		{"base64 corrupto", "!!!esto-no-es-base64!!!"},
		{"zip corrupto", base64.StdEncoding.EncodeToString([]byte("no es un zip"))},
	}
	for _, c := range casos {
		t.Run(c.nombre, func(t *testing.T) {
			cliente := clienteContra(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, respuestaSendBill(c.appResp))
			})

			_, err := cliente.Submit(context.Background(), credencialesSOL(), "x.zip", []byte("zip"))
			var te *domain.TransportError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, domain.TransportNonRecoverable, te.Kind)
		})
	}
}

func TestSOAPClient_TimeoutDeContexto(t *testing.T) {
	bloqueado := make(chan struct{})
	cliente := clienteContra(t, func(w http.ResponseWriter, r *http.Request) {
		<-bloqueado
	})
	defer close(bloqueado)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := cliente.Submit(ctx, credencialesSOL(), "x.zip", []byte("zip"))
	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, domain.TransportTimeout, te.Kind)
	assert.Contains(t, err.Error(), "llamada HTTP fallida")
}
