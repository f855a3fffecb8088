// Package alerter evaluates resource thresholds against ingested samples.
//
// State lives in the store's metric_state table keyed by (host, kind), so
// a host crossing a threshold alerts once, re-alerts only when the value
// moves by the resend delta while still high, and emits a single recovery
// alert when it drops back below.
package alerter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/watchpost/watchpost/internal/model"
	"github.com/watchpost/watchpost/internal/notify"
	"github.com/watchpost/watchpost/internal/store"
)

// Source tag on every synthetic threshold alert.
const Source = "threshold"

// Thresholds holds the percent limits for each resource kind.
type Thresholds struct {
	CPU         float64
	Memory      float64
	Disk        float64
	ResendDelta float64
}

// DefaultThresholds returns the stock 80% limits with a 5-point resend delta.
func DefaultThresholds() Thresholds {
	return Thresholds{CPU: 80, Memory: 80, Disk: 80, ResendDelta: 5}
}

// Alerter turns threshold crossings into stored alert records and
// notifications.
type Alerter struct {
	store     *store.Store
	providers []notify.Provider
	cfg       Thresholds
}

// New creates an alerter backed by the given store.
func New(s *store.Store, providers []notify.Provider, cfg Thresholds) *Alerter {
	return &Alerter{store: s, providers: providers, cfg: cfg}
}

// Process evaluates one accepted sample against all thresholds. Emitted
// alerts are persisted and returned; nil utilization readings are never
// evaluated. Alerting is best-effort for the ingestion path: the first
// storage error aborts evaluation and is returned for logging.
func (a *Alerter) Process(ctx context.Context, m model.MetricSample) ([]model.AlertRecord, error) {
	kinds := []struct {
		kind      string
		value     *float64
		threshold float64
	}{
		{"cpu", m.CPUPct, a.cfg.CPU},
		{"mem", m.MemPct, a.cfg.Memory},
		{"disk", m.DiskPct, a.cfg.Disk},
	}

	var emitted []model.AlertRecord
	for _, k := range kinds {
		if k.value == nil {
			continue
		}
		rec, err := a.evaluate(m, k.kind, *k.value, k.threshold)
		if err != nil {
			return emitted, err
		}
		if rec != nil {
			emitted = append(emitted, *rec)
			a.dispatch(ctx, *rec)
		}
	}
	return emitted, nil
}

// evaluate runs the per-(host, kind) state machine and persists any alert
// it produces. Returns nil when the sample changes nothing.
func (a *Alerter) evaluate(m model.MetricSample, kind string, value, threshold float64) (*model.AlertRecord, error) {
	prevStatus, prevValue, err := a.store.MetricState(m.Host, kind)
	if err != nil {
		return nil, err
	}

	isHigh := value >= threshold

	switch {
	case isHigh && prevStatus != "high":
		msg := fmt.Sprintf("%s high on %s: %.1f%%", strings.ToUpper(kind), m.Host, value)
		return a.emit(m, kind, value, threshold, model.SeverityHigh, msg)

	case isHigh && prevStatus == "high":
		if prevValue == nil || abs(value-*prevValue) >= a.cfg.ResendDelta {
			msg := fmt.Sprintf("%s still high on %s: %.1f%%", strings.ToUpper(kind), m.Host, value)
			return a.emit(m, kind, value, threshold, model.SeverityHigh, msg)
		}
		return nil, nil

	case !isHigh && prevStatus == "high":
		msg := fmt.Sprintf("%s back to normal on %s: %.1f%%", strings.ToUpper(kind), m.Host, value)
		rec, err := a.emit(m, kind, value, threshold, model.SeverityInfo, msg)
		if err != nil {
			return nil, err
		}
		if err := a.store.SetMetricState(m.Host, kind, "normal", value); err != nil {
			return rec, err
		}
		return rec, nil
	}

	return nil, a.store.SetMetricState(m.Host, kind, "normal", value)
}

func (a *Alerter) emit(m model.MetricSample, kind string, value, threshold float64, severity, msg string) (*model.AlertRecord, error) {
	rec := &model.AlertRecord{
		Host:      m.Host,
		OS:        m.OS,
		Source:    Source,
		Category:  model.CategoryResource,
		Severity:  severity,
		Message:   msg,
		Raw:       fmt.Sprintf(`{"kind":%q,"value":%.1f,"threshold":%.1f}`, kind, value, threshold),
		Timestamp: m.Timestamp,
	}
	if err := a.store.InsertAlert(rec); err != nil {
		return nil, err
	}
	if severity == model.SeverityHigh {
		if err := a.store.SetMetricState(m.Host, kind, "high", value); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

// dispatch pushes high-severity alerts to the notify providers. Fire and
// forget: a slow or failing provider must never stall ingestion.
func (a *Alerter) dispatch(ctx context.Context, rec model.AlertRecord) {
	if rec.Severity != model.SeverityHigh || len(a.providers) == 0 {
		return
	}
	n := model.Notification{
		Host:      rec.Host,
		Severity:  rec.Severity,
		Title:     fmt.Sprintf("Resource alert: %s", rec.Host),
		Message:   rec.Message,
		Category:  rec.Category,
		Timestamp: rec.Timestamp,
	}
	for _, p := range a.providers {
		go func(p notify.Provider) {
			sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
			defer cancel()
			if err := p.Send(sendCtx, n); err != nil {
				slog.Warn("notification failed", "provider", p.Name(), "host", rec.Host, "error", err)
			}
		}(p)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
