package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	infrasunat "github.com/jhoicas/Facturacion-api/internal/infrastructure/sunat"
	"github.com/jhoicas/Facturacion-api/pkg/config"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

// Prueba de caja blanca: inyecta e.sleep para observar las esperas sin dormir.

func newTestEngine(cfg config.RetryConfig) (*RetryEngine, *[]time.Duration) {
	eng := NewRetryEngine(cfg, logger.Nop())
	esperas := &[]time.Duration{}
	eng.sleep = func(_ context.Context, d time.Duration) error {
		*esperas = append(*esperas, d)
		return nil
	}
	return eng, esperas
}

func okResult() *infrasunat.SubmitResult {
	return &infrasunat.SubmitResult{Receipt: &entity.Receipt{Code: "0", ReceivedAt: time.Now()}}
}

// ──────────────────────────────────────────────────────────────────────────────
// Éxito
// ──────────────────────────────────────────────────────────────────────────────

func TestRetryEngine_ExitoAlPrimerIntento(t *testing.T) {
	eng, esperas := newTestEngine(config.RetryConfig{MaxRetries: 3, InitialDelayMs: 10, Multiplier: 2})

	llamadas := 0
	result, errLog, err := eng.Run(context.Background(), func(context.Context) (*infrasunat.SubmitResult, error) {
		llamadas++
		return okResult(), nil
	})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 1, llamadas)
	assert.Empty(t, errLog, "un éxito inmediato no deja rastro de reintentos")
	assert.Empty(t, *esperas)
}

func TestRetryEngine_RecuperaTrasFallos(t *testing.T) {
	eng, esperas := newTestEngine(config.RetryConfig{MaxRetries: 3, InitialDelayMs: 10, Multiplier: 2})

	llamadas := 0
	result, errLog, err := eng.Run(context.Background(), func(context.Context) (*infrasunat.SubmitResult, error) {
		llamadas++
		if llamadas <= 2 {
			return nil, domain.NewTransportError(domain.TransportRecoverable, errors.New("conexión rehusada"))
		}
		return okResult(), nil
	})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 3, llamadas)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, *esperas)

	require.Len(t, errLog, 2)
	assert.Equal(t, 1, errLog[0].Attempt)
	assert.Equal(t, int64(10), errLog[0].NextDelayMs)
	assert.Equal(t, 2, errLog[1].Attempt)
	assert.Equal(t, int64(20), errLog[1].NextDelayMs)
}

// ──────────────────────────────────────────────────────────────────────────────
// Agotamiento del presupuesto
// ──────────────────────────────────────────────────────────────────────────────

func TestRetryEngine_PresupuestoAgotado(t *testing.T) {
	eng, esperas := newTestEngine(config.RetryConfig{MaxRetries: 3, InitialDelayMs: 10, Multiplier: 2})

	fallo := domain.NewTransportError(domain.TransportRecoverable, errors.New("503 service unavailable"))
	llamadas := 0
	result, errLog, err := eng.Run(context.Background(), func(context.Context) (*infrasunat.SubmitResult, error) {
		llamadas++
		return nil, fallo
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 4, llamadas, "presupuesto de 3 reintentos son 4 intentos en total")
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}, *esperas)

	require.Len(t, errLog, 4)
	for i, e := range errLog {
		assert.Equal(t, i+1, e.Attempt)
		assert.Equal(t, domain.TransportRecoverable, e.Kind)
		assert.NotEmpty(t, e.Message)
		assert.False(t, e.OccurredAt.IsZero())
	}
	// La espera registrada crece exponencialmente y el último intento no espera.
	assert.Equal(t, int64(10), errLog[0].NextDelayMs)
	assert.Equal(t, int64(20), errLog[1].NextDelayMs)
	assert.Equal(t, int64(40), errLog[2].NextDelayMs)
	assert.Equal(t, int64(0), errLog[3].NextDelayMs)
}

// La clasificación no cambia el presupuesto: un fallo no recuperable también
// consume todos los intentos.
func TestRetryEngine_ClaseNoRecuperableTambienAgota(t *testing.T) {
	eng, _ := newTestEngine(config.RetryConfig{MaxRetries: 2, InitialDelayMs: 5, Multiplier: 2})

	llamadas := 0
	_, errLog, err := eng.Run(context.Background(), func(context.Context) (*infrasunat.SubmitResult, error) {
		llamadas++
		return nil, domain.NewTransportError(domain.TransportNonRecoverable, errors.New("envelope malformado"))
	})

	require.Error(t, err)
	assert.Equal(t, 3, llamadas)
	require.Len(t, errLog, 3)
	for _, e := range errLog {
		assert.Equal(t, domain.TransportNonRecoverable, e.Kind)
	}
}

func TestRetryEngine_SinReintentos(t *testing.T) {
	eng, esperas := newTestEngine(config.RetryConfig{MaxRetries: 0, InitialDelayMs: 10, Multiplier: 2})

	llamadas := 0
	_, errLog, err := eng.Run(context.Background(), func(context.Context) (*infrasunat.SubmitResult, error) {
		llamadas++
		return nil, errors.New("fallo")
	})

	require.Error(t, err)
	assert.Equal(t, 1, llamadas)
	require.Len(t, errLog, 1)
	assert.Equal(t, int64(0), errLog[0].NextDelayMs)
	assert.Empty(t, *esperas)
}

// Un error sin clasificar se registra como recuperable.
func TestRetryEngine_ErrorSinClasificar(t *testing.T) {
	eng, _ := newTestEngine(config.RetryConfig{MaxRetries: 0, InitialDelayMs: 5, Multiplier: 2})

	_, errLog, err := eng.Run(context.Background(), func(context.Context) (*infrasunat.SubmitResult, error) {
		return nil, errors.New("fallo desconocido")
	})

	require.Error(t, err)
	require.Len(t, errLog, 1)
	assert.Equal(t, domain.TransportRecoverable, errLog[0].Kind)
}

// ──────────────────────────────────────────────────────────────────────────────
// Contexto
// ──────────────────────────────────────────────────────────────────────────────

func TestRetryEngine_ContextoVencidoDuranteEspera(t *testing.T) {
	eng := NewRetryEngine(config.RetryConfig{MaxRetries: 3, InitialDelayMs: 10, Multiplier: 2}, logger.Nop())
	eng.sleep = func(context.Context, time.Duration) error {
		return context.DeadlineExceeded
	}

	llamadas := 0
	_, errLog, err := eng.Run(context.Background(), func(context.Context) (*infrasunat.SubmitResult, error) {
		llamadas++
		return nil, errors.New("fallo")
	})

	require.Error(t, err)
	assert.Equal(t, 1, llamadas, "el presupuesto se corta al vencer el contexto")
	require.Len(t, errLog, 1)

	var terr *domain.TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, domain.TransportTimeout, terr.Kind)
}

// ──────────────────────────────────────────────────────────────────────────────
// Valores por defecto
// ──────────────────────────────────────────────────────────────────────────────

func TestNewRetryEngine_ValoresPorDefecto(t *testing.T) {
	eng := NewRetryEngine(config.RetryConfig{MaxRetries: -1}, logger.Nop())
	assert.Equal(t, defaultMaxRetries, eng.maxRetries)
	assert.Equal(t, defaultInitialDelay, eng.initialDelay)
	assert.Equal(t, defaultMultiplier, eng.multiplier)
}
