package goAuthFlow

import (
	"context"
	"time"

	"github.com/MrEthical07/goAuthFlow/identifier"
	"go.uber.org/zap"
)

// Engine holds the collaborators shared by every flow: the remote service,
// the session persister, logging, metrics and audit. It is safe for
// concurrent use; each authentication attempt gets its own [Controller].
type Engine struct {
	config    Config
	remote    Remote
	persister SessionPersister
	logger    *zap.Logger
	metrics   *Metrics
	audit     *auditDispatcher
	now       func() time.Time
}

// NewController starts a flow of variant v in its initial state.
func (e *Engine) NewController(v Variant) (*Controller, error) {
	if e == nil || e.remote == nil {
		return nil, ErrEngineNotReady
	}
	return &Controller{
		engine: e,
		state:  InitialState(v),
		cooldown: NewCooldown(
			e.config.Flow.ResendCooldownTicks,
			e.config.Flow.ResendTick,
			e.now,
		),
	}, nil
}

// Config returns a copy of the active configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// MetricsSnapshot copies the current counters for exporters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

func (e *Engine) emitAudit(ctx context.Context, eventType string, s State, success bool, err error, metadata map[string]string) {
	if e.audit == nil {
		return
	}
	ev := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		Variant:   s.Variant.String(),
		Step:      s.Step.String(),
		Success:   success,
		Metadata:  metadata,
	}
	if s.Method != MethodUnknown {
		ev.Method = s.Method.String()
	}
	if s.Identifier != "" {
		ev.Identifier = identifier.Mask(s.Identifier)
	}
	if authErr := NormalizeError(err); authErr != nil {
		ev.Error = string(authErr.Code)
	}
	e.audit.Emit(ctx, ev)
}
