package billing

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	infrasunat "github.com/jhoicas/Facturacion-api/internal/infrastructure/sunat"
	"github.com/jhoicas/Facturacion-api/pkg/config"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

// Valores por defecto del presupuesto de reintentos.
const (
	defaultMaxRetries   = 3
	defaultInitialDelay = 1000 * time.Millisecond
	defaultMultiplier   = 2.0

	// tope de la espera individual; con los valores por defecto nunca se alcanza
	backoffCap = time.Hour
)

// SubmitOp es un intento de transmisión a SUNAT.
type SubmitOp func(ctx context.Context) (*infrasunat.SubmitResult, error)

// RetryEngine reintenta la transmisión con espera exponencial determinista:
// el intento 1 es inmediato y tras el fallo i se espera initial·mult^(i-1).
// La clasificación del error (recoverable, non_recoverable, timeout) es solo
// informativa: el presupuesto se agota igual para todas las clases. Cada fallo
// queda en el registro de reintentos con la espera que siguió (0 en el último).
type RetryEngine struct {
	maxRetries   int
	initialDelay time.Duration
	multiplier   float64
	sleep        func(ctx context.Context, d time.Duration) error // inyectable en pruebas
	log          *logger.Logger
}

// NewRetryEngine construye el motor con el presupuesto configurado; los campos
// en cero o negativos caen a los valores por defecto (3 reintentos, 1000 ms, x2).
func NewRetryEngine(cfg config.RetryConfig, log *logger.Logger) *RetryEngine {
	e := &RetryEngine{
		maxRetries:   cfg.MaxRetries,
		initialDelay: time.Duration(cfg.InitialDelayMs) * time.Millisecond,
		multiplier:   cfg.Multiplier,
		sleep:        sleepCtx,
		log:          log,
	}
	if e.maxRetries < 0 {
		e.maxRetries = defaultMaxRetries
	}
	if e.initialDelay <= 0 {
		e.initialDelay = defaultInitialDelay
	}
	if e.multiplier < 1 {
		e.multiplier = defaultMultiplier
	}
	return e
}

// Run ejecuta op hasta maxRetries+1 veces. Si un intento tiene éxito devuelve
// su resultado junto con el registro de los fallos previos. Si el presupuesto
// se agota devuelve el registro completo y el error del último intento.
func (e *RetryEngine) Run(ctx context.Context, op SubmitOp) (*infrasunat.SubmitResult, []entity.TransmissionError, error) {
	attempts := e.maxRetries + 1

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.initialDelay
	bo.Multiplier = e.multiplier
	bo.RandomizationFactor = 0 // el registro de esperas es parte del contrato observable
	bo.MaxInterval = backoffCap
	bo.MaxElapsedTime = 0
	bo.Reset()

	var errLog []entity.TransmissionError
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, errLog, nil
		}

		var next time.Duration
		if attempt < attempts {
			next = bo.NextBackOff()
		}
		kind := domain.TransportKind(err)
		errLog = append(errLog, entity.TransmissionError{
			Attempt:     attempt,
			Message:     err.Error(),
			Kind:        kind,
			OccurredAt:  time.Now(),
			NextDelayMs: next.Milliseconds(),
		})
		e.log.Warn().
			Int("intento", attempt).
			Int("presupuesto", attempts).
			Str("clase", kind).
			Dur("espera", next).
			Err(err).
			Msg("transmisión a SUNAT fallida")

		if attempt == attempts {
			return nil, errLog, err
		}
		if serr := e.sleep(ctx, next); serr != nil {
			// contexto vencido a mitad de la espera: el presupuesto se corta aquí
			return nil, errLog, domain.NewTransportError(domain.TransportTimeout, serr)
		}
	}
	return nil, errLog, nil // inalcanzable: attempts >= 1
}

// sleepCtx espera d o hasta que el contexto venza, lo que ocurra primero.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
