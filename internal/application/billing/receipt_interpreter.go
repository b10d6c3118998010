package billing

import (
	"strconv"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// ReceiptInterpreter traduce el código de la constancia de recepción (CDR) al
// estado del ciclo de vida del comprobante, según las tablas de respuesta del
// billService:
//
//	0         aceptado
//	1-999     aceptado (excepciones que no invalidan el comprobante)
//	2000-2999 rechazado por error de contenido
//	4000-4999 aceptado con observaciones
//	TICKET / PROCESSING  envío asíncrono aún sin desenlace (sigue SUBMITTED)
//	cualquier otro valor rechazado
type ReceiptInterpreter struct{}

// NewReceiptInterpreter crea el intérprete.
func NewReceiptInterpreter() *ReceiptInterpreter {
	return &ReceiptInterpreter{}
}

// Interpret devuelve el estado que corresponde a la constancia. Sin constancia
// no hay desenlace: el comprobante permanece SUBMITTED.
func (i *ReceiptInterpreter) Interpret(receipt *entity.Receipt) string {
	if receipt == nil {
		return entity.StateSubmitted
	}
	switch receipt.Code {
	case entity.ReceiptCodeTicket, entity.ReceiptCodeProcessing:
		return entity.StateSubmitted
	}
	n, err := strconv.Atoi(receipt.Code)
	if err != nil {
		return entity.StateRejected
	}
	switch {
	case n >= 0 && n <= 999:
		return entity.StateAccepted
	case n >= 2000 && n <= 2999:
		return entity.StateRejected
	case n >= 4000 && n <= 4999:
		return entity.StateAccepted // con observaciones; quedan en Notes
	default:
		return entity.StateRejected
	}
}
