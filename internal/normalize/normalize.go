// Package normalize turns raw, untrusted agent payloads into canonical
// metric and alert records. It is pure computation: no I/O, no store access.
//
// Agent versions drift, so field extraction is permissive throughout:
// missing or malformed sub-fields degrade to defaults instead of failing
// the whole submission. The only fatal condition is a body that is not a
// JSON object at all.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/cast"
	"github.com/watchpost/watchpost/internal/model"
)

// ReportingZone is the fixed UTC+4 offset every stored timestamp is
// expressed in, regardless of agent-local time.
var ReportingZone = time.FixedZone("UTC+4", 4*60*60)

// ErrInvalidPayload is returned when the ingestion body is not a JSON
// object (a list, a scalar, or malformed syntax).
var ErrInvalidPayload = errors.New("payload is not a JSON object")

// ToReportingZone converts an instant to the reporting timezone. All
// timezone handling funnels through here so the offset is a single point
// of change.
func ToReportingZone(t time.Time) time.Time {
	return t.In(ReportingZone)
}

// Result is the output of normalizing one ingestion body.
type Result struct {
	Metric  model.MetricSample
	Alerts  []model.AlertRecord
	Skipped int // non-object alert entries dropped
}

// Payload validates and reshapes one ingestion request body. receivedAt is
// the server-assigned timestamp for the call; it becomes the metric's
// timestamp and the fallback for any alert without a parseable one, so all
// records from a single call that lack their own timestamp share it.
func Payload(body []byte, receivedAt time.Time) (*Result, error) {
	var top any
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	obj, ok := top.(map[string]any)
	if !ok {
		return nil, ErrInvalidPayload
	}

	receivedAt = ToReportingZone(receivedAt)
	meta := subObject(obj, "meta")
	resources := subObject(obj, "resources")

	res := &Result{
		Metric: model.MetricSample{
			Host:      stringOr(meta, "unknown", "hostname"),
			OS:        stringOr(meta, "unknown", "os"),
			CPUPct:    floatPtr(resources, "cpu_percent"),
			MemPct:    floatPtr(resources, "ram_percent"),
			DiskPct:   floatPtr(resources, "disk_percent"),
			Timestamp: receivedAt,
		},
	}

	entries, _ := obj["alerts"].([]any)
	for _, entry := range entries {
		raw, ok := entry.(map[string]any)
		if !ok {
			res.Skipped++
			continue
		}
		res.Alerts = append(res.Alerts, alert(raw, res.Metric.Host, res.Metric.OS, receivedAt))
	}
	return res, nil
}

// alert normalizes a single alert object. host/os are the call-level
// defaults; the entry's own host/os keys override them.
func alert(raw map[string]any, host, os string, receivedAt time.Time) model.AlertRecord {
	a := model.AlertRecord{
		Host:      stringOr(raw, host, "host"),
		OS:        stringOr(raw, os, "os"),
		Source:    stringOr(raw, "", "source"),
		EventName: stringOr(raw, "", "event_name"),
		Username:  stringOr(raw, "", "username"),
		IP:        stringOr(raw, "", "ip"),
		Process:   stringOr(raw, "", "process"),
		Message:   stringOr(raw, "", "message", "msg"),
		Timestamp: receivedAt,
	}

	if sev := stringOr(raw, "", "severity", "level"); sev != "" {
		a.Severity = strings.ToLower(sev)
	} else {
		a.Severity = model.SeverityInfo
	}

	if v, ok := raw["event_id"]; ok {
		if id, err := cast.ToInt64E(v); err == nil {
			a.EventID = &id
		}
	}

	a.Category = stringOr(raw, "", "category")
	if a.Category == "" {
		a.Category = inferCategory(a.EventID, a.Source)
	}

	if ts := stringOr(raw, "", "timestamp"); ts != "" {
		// Naive timestamps are assumed UTC; explicit offsets (including a
		// trailing Z) are honored. Anything unparseable keeps receivedAt.
		if parsed, err := dateparse.ParseIn(ts, time.UTC); err == nil {
			a.Timestamp = ToReportingZone(parsed)
		}
	}

	// Keep the submitted object verbatim for forensic replay.
	if b, err := json.Marshal(raw); err == nil {
		a.Raw = string(b)
	}
	return a
}

// inferCategory classifies an alert that did not declare a category.
// Priority order matters: Windows logon event IDs beat source tags.
func inferCategory(eventID *int64, source string) string {
	if eventID != nil {
		switch *eventID {
		case 4624, 4625, 4634: // login, failed login, logout
			return model.CategoryAuth
		}
	}
	switch source {
	case "security", "auth_log":
		return model.CategoryAuth
	case "sysmon", "process":
		return model.CategoryProcess
	case "network", "net":
		return model.CategoryNetwork
	}
	return model.CategoryResource
}

func subObject(obj map[string]any, key string) map[string]any {
	m, _ := obj[key].(map[string]any)
	if m == nil {
		return map[string]any{}
	}
	return m
}

// stringOr returns the first present key coercible to a non-empty string,
// else def. Empty values count as absent so defaults still apply.
func stringOr(obj map[string]any, def string, keys ...string) string {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			if s, err := cast.ToStringE(v); err == nil && s != "" {
				return s
			}
		}
	}
	return def
}

// floatPtr returns the value at key as a float pointer, or nil when the
// key is absent or not a number. nil is deliberately distinct from zero.
func floatPtr(obj map[string]any, key string) *float64 {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil
	}
	return &f
}
