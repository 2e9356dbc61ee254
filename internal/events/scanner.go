package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/oncocare/journey/internal/domain/patient"
	"github.com/oncocare/journey/internal/observability/metrics"
)

// Scanner periodically walks the roster and publishes one alert per
// currently-delayed patient. Alerts are re-derivable from the roster, so the
// scanner keeps no state between passes.
type Scanner struct {
	store    *patient.Store
	pub      *Publisher
	metrics  *metrics.Metrics
	interval time.Duration
	logger   *zap.Logger
}

// NewScanner creates a scanner. The metrics may be nil.
func NewScanner(store *patient.Store, pub *Publisher, m *metrics.Metrics, interval time.Duration, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		store:    store,
		pub:      pub,
		metrics:  m,
		interval: interval,
		logger:   logger,
	}
}

// Run scans immediately, then on every tick until the context is cancelled.
func (s *Scanner) Run(ctx context.Context) {
	s.scan(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("alert scanner stopped")
			return
		case <-ticker.C:
			s.scan(ctx)
		}
	}
}

func (s *Scanner) scan(ctx context.Context) {
	published := 0
	for _, p := range s.store.List() {
		if !p.Flags.AtrasoEstadiamentoTratamento {
			continue
		}
		days := 0
		if p.Flags.DiasAtrasoEstadiamentoTratamento != nil {
			days = *p.Flags.DiasAtrasoEstadiamentoTratamento
		}
		if err := s.pub.Publish(ctx, NewAlert(p.ID, days)); err != nil {
			// Logged by the publisher; keep scanning the rest of the roster.
			continue
		}
		published++
		if s.metrics != nil {
			s.metrics.AlertsPublished.Inc()
		}
	}

	s.logger.Info("alert scan complete", zap.Int("alerts_published", published))
}
