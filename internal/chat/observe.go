package chat

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/synthetic-patients/internal/metrics"
)

// observe emits latency/call/error metrics for one provider call attempt.
func observe(provider, operation, model string, start time.Time, err error) {
	elapsed := time.Since(start)
	m := metrics.New(metrics.Namespace).
		Dimension("Provider", provider).
		Dimension("Operation", operation).
		Metric("ModelCallLatencyMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("ModelCalls").
		Property("model", model)
	if err != nil {
		m.Count("ModelErrors")
	}
	m.Flush()

	if err != nil {
		log.Warn().Err(err).Str("provider", provider).Str("operation", operation).Str("model", model).Dur("duration", elapsed).Msg("Model call failed")
		return
	}
	log.Debug().Str("provider", provider).Str("operation", operation).Str("model", model).Dur("duration", elapsed).Msg("Model call complete")
}
