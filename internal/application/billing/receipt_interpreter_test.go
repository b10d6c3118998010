package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// Tabla de interpretación del CDR según las bandas de respuesta del billService.
func TestReceiptInterpreter_Tabla(t *testing.T) {
	interp := billing.NewReceiptInterpreter()

	casos := []struct {
		code   string
		estado string
	}{
		// aceptación plena
		{"0", entity.StateAccepted},
		{"98", entity.StateAccepted},
		{"999", entity.StateAccepted},
		// rechazo por contenido
		{"2000", entity.StateRejected},
		{"2335", entity.StateRejected},
		{"2999", entity.StateRejected},
		// aceptación con observaciones
		{"4000", entity.StateAccepted},
		{"4332", entity.StateAccepted},
		{"4999", entity.StateAccepted},
		// bandas fuera de tabla: rechazo
		{"1033", entity.StateRejected},
		{"3001", entity.StateRejected},
		{"5000", entity.StateRejected},
		{"-1", entity.StateRejected},
		// códigos no numéricos: rechazo
		{"ERROR", entity.StateRejected},
		{"", entity.StateRejected},
		// envío asíncrono sin desenlace
		{entity.ReceiptCodeTicket, entity.StateSubmitted},
		{entity.ReceiptCodeProcessing, entity.StateSubmitted},
	}
	for _, c := range casos {
		got := interp.Interpret(&entity.Receipt{Code: c.code})
		assert.Equal(t, c.estado, got, "código %q", c.code)
	}
}

// Sin constancia no hay desenlace que aplicar.
func TestReceiptInterpreter_SinConstancia(t *testing.T) {
	interp := billing.NewReceiptInterpreter()
	assert.Equal(t, entity.StateSubmitted, interp.Interpret(nil))
}
