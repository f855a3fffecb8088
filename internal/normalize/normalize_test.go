package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/watchpost/watchpost/internal/model"
)

var receivedAt = time.Date(2025, 12, 10, 6, 53, 24, 0, time.UTC)

func TestPayload_RejectsNonObjects(t *testing.T) {
	for _, body := range []string{
		`[1, 2, 3]`,
		`"just a string"`,
		`42`,
		`null`,
		`{not json`,
		``,
	} {
		_, err := Payload([]byte(body), receivedAt)
		assert.ErrorIs(t, err, ErrInvalidPayload, "body %q", body)
	}
}

func TestPayload_EmptyObjectDefaults(t *testing.T) {
	res, err := Payload([]byte(`{}`), receivedAt)
	require.NoError(t, err)

	assert.Equal(t, "unknown", res.Metric.Host)
	assert.Equal(t, "unknown", res.Metric.OS)
	assert.Nil(t, res.Metric.CPUPct)
	assert.Nil(t, res.Metric.MemPct)
	assert.Nil(t, res.Metric.DiskPct)
	assert.Empty(t, res.Alerts)
	assert.Zero(t, res.Skipped)
	assert.True(t, res.Metric.Timestamp.Equal(receivedAt))
}

func TestPayload_MetaAndResources(t *testing.T) {
	body := `{
		"meta": {"hostname": "web-01", "os": "Ubuntu 22.04"},
		"resources": {"cpu_percent": 41.5, "ram_percent": 62, "disk_percent": "77.3"}
	}`
	res, err := Payload([]byte(body), receivedAt)
	require.NoError(t, err)

	assert.Equal(t, "web-01", res.Metric.Host)
	assert.Equal(t, "Ubuntu 22.04", res.Metric.OS)
	require.NotNil(t, res.Metric.CPUPct)
	assert.Equal(t, 41.5, *res.Metric.CPUPct)
	require.NotNil(t, res.Metric.MemPct)
	assert.Equal(t, 62.0, *res.Metric.MemPct)
	// Numeric strings are coerced, agents disagree on types here.
	require.NotNil(t, res.Metric.DiskPct)
	assert.Equal(t, 77.3, *res.Metric.DiskPct)
}

func TestPayload_ZeroUtilizationIsNotMissing(t *testing.T) {
	body := `{"resources": {"cpu_percent": 0, "ram_percent": "n/a"}}`
	res, err := Payload([]byte(body), receivedAt)
	require.NoError(t, err)

	require.NotNil(t, res.Metric.CPUPct)
	assert.Equal(t, 0.0, *res.Metric.CPUPct)
	assert.Nil(t, res.Metric.MemPct, "unparseable reading must become nil, not zero")
	assert.Nil(t, res.Metric.DiskPct)
}

func TestPayload_EmptyMetaValuesFallBack(t *testing.T) {
	body := `{"meta": {"hostname": "", "os": null}}`
	res, err := Payload([]byte(body), receivedAt)
	require.NoError(t, err)

	assert.Equal(t, "unknown", res.Metric.Host)
	assert.Equal(t, "unknown", res.Metric.OS)
}

func TestPayload_ServerAssignedTimestamp(t *testing.T) {
	res, err := Payload([]byte(`{}`), receivedAt)
	require.NoError(t, err)

	// 06:53:24 UTC is 10:53:24 in the reporting zone.
	assert.Equal(t, "2025-12-10 10:53:24", res.Metric.Timestamp.Format("2006-01-02 15:04:05"))
	assert.Equal(t, "UTC+4", res.Metric.Timestamp.Location().String())
}

func TestPayload_SkipsNonObjectAlerts(t *testing.T) {
	body := `{"alerts": [{"message": "first"}, "garbage", 17, null, {"message": "second"}]}`
	res, err := Payload([]byte(body), receivedAt)
	require.NoError(t, err)

	require.Len(t, res.Alerts, 2)
	assert.Equal(t, 3, res.Skipped)
	assert.Equal(t, "first", res.Alerts[0].Message)
	assert.Equal(t, "second", res.Alerts[1].Message)
}

func TestPayload_AlertsIgnoredWhenNotList(t *testing.T) {
	res, err := Payload([]byte(`{"alerts": {"message": "not a list"}}`), receivedAt)
	require.NoError(t, err)
	assert.Empty(t, res.Alerts)
	assert.Zero(t, res.Skipped)
}

func TestAlert_InheritsAndOverridesHost(t *testing.T) {
	body := `{
		"meta": {"hostname": "web-01", "os": "Ubuntu"},
		"alerts": [
			{"message": "inherited"},
			{"message": "overridden", "host": "db-02", "os": "Debian"}
		]
	}`
	res, err := Payload([]byte(body), receivedAt)
	require.NoError(t, err)
	require.Len(t, res.Alerts, 2)

	assert.Equal(t, "web-01", res.Alerts[0].Host)
	assert.Equal(t, "Ubuntu", res.Alerts[0].OS)
	assert.Equal(t, "db-02", res.Alerts[1].Host)
	assert.Equal(t, "Debian", res.Alerts[1].OS)
}

func TestAlert_SeverityAliasesAndDefault(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		want  string
	}{
		{"severity key", `{"severity": "HIGH"}`, "high"},
		{"level alias", `{"level": "Medium"}`, "medium"},
		{"severity wins over level", `{"severity": "low", "level": "high"}`, "low"},
		{"missing defaults to info", `{}`, "info"},
		{"empty defaults to info", `{"severity": ""}`, "info"},
		{"unknown label kept verbatim", `{"severity": "CATASTROPHIC"}`, "catastrophic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Payload([]byte(`{"alerts": [`+tt.entry+`]}`), receivedAt)
			require.NoError(t, err)
			require.Len(t, res.Alerts, 1)
			assert.Equal(t, tt.want, res.Alerts[0].Severity)
		})
	}
}

func TestAlert_MessageAlias(t *testing.T) {
	res, err := Payload([]byte(`{"alerts": [{"msg": "short form"}, {"message": "long", "msg": "short"}]}`), receivedAt)
	require.NoError(t, err)
	require.Len(t, res.Alerts, 2)

	assert.Equal(t, "short form", res.Alerts[0].Message)
	assert.Equal(t, "long", res.Alerts[1].Message, "message takes priority over msg")
}

func TestAlert_CategoryInference(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		want  string
	}{
		{"explicit category wins", `{"category": "network", "event_id": 4624}`, model.CategoryNetwork},
		{"logon event", `{"event_id": 4624}`, model.CategoryAuth},
		{"failed logon event", `{"event_id": 4625}`, model.CategoryAuth},
		{"logoff event", `{"event_id": 4634}`, model.CategoryAuth},
		{"event id beats source", `{"event_id": 4625, "source": "network"}`, model.CategoryAuth},
		{"security source", `{"source": "security"}`, model.CategoryAuth},
		{"auth_log source", `{"source": "auth_log"}`, model.CategoryAuth},
		{"sysmon source", `{"source": "sysmon"}`, model.CategoryProcess},
		{"process source", `{"source": "process"}`, model.CategoryProcess},
		{"network source", `{"source": "network"}`, model.CategoryNetwork},
		{"net source", `{"source": "net"}`, model.CategoryNetwork},
		{"unrecognized event id falls through", `{"event_id": 1102, "source": "net"}`, model.CategoryNetwork},
		{"nothing recognizable", `{"source": "smartd"}`, model.CategoryResource},
		{"empty entry", `{}`, model.CategoryResource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Payload([]byte(`{"alerts": [`+tt.entry+`]}`), receivedAt)
			require.NoError(t, err)
			require.Len(t, res.Alerts, 1)
			assert.Equal(t, tt.want, res.Alerts[0].Category)
		})
	}
}

func TestAlert_EventID(t *testing.T) {
	res, err := Payload([]byte(`{"alerts": [{"event_id": 4624}, {"event_id": "4625"}, {"event_id": "abc"}, {}]}`), receivedAt)
	require.NoError(t, err)
	require.Len(t, res.Alerts, 4)

	require.NotNil(t, res.Alerts[0].EventID)
	assert.Equal(t, int64(4624), *res.Alerts[0].EventID)
	require.NotNil(t, res.Alerts[1].EventID)
	assert.Equal(t, int64(4625), *res.Alerts[1].EventID)
	assert.Nil(t, res.Alerts[2].EventID)
	assert.Nil(t, res.Alerts[3].EventID)
}

func TestAlert_TimestampParsing(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		want  string
	}{
		{"rfc3339 with Z", `{"timestamp": "2025-12-10T06:53:24Z"}`, "2025-12-10 10:53:24"},
		{"explicit offset", `{"timestamp": "2025-12-10T08:53:24+02:00"}`, "2025-12-10 10:53:24"},
		{"naive assumed utc", `{"timestamp": "2025-12-10 06:53:24"}`, "2025-12-10 10:53:24"},
		{"unparseable keeps receivedAt", `{"timestamp": "next tuesday-ish"}`, "2025-12-10 10:53:24"},
		{"absent keeps receivedAt", `{}`, "2025-12-10 10:53:24"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Payload([]byte(`{"alerts": [`+tt.entry+`]}`), receivedAt)
			require.NoError(t, err)
			require.Len(t, res.Alerts, 1)
			got := res.Alerts[0].Timestamp
			assert.Equal(t, tt.want, got.Format("2006-01-02 15:04:05"))
			assert.Equal(t, "UTC+4", got.Location().String())
		})
	}
}

func TestAlert_FieldExtraction(t *testing.T) {
	body := `{"alerts": [{
		"source": "security",
		"event_name": "logon_failed",
		"username": "admin",
		"ip": "10.0.0.5",
		"process": "sshd",
		"message": "failed password"
	}]}`
	res, err := Payload([]byte(body), receivedAt)
	require.NoError(t, err)
	require.Len(t, res.Alerts, 1)

	a := res.Alerts[0]
	assert.Equal(t, "security", a.Source)
	assert.Equal(t, "logon_failed", a.EventName)
	assert.Equal(t, "admin", a.Username)
	assert.Equal(t, "10.0.0.5", a.IP)
	assert.Equal(t, "sshd", a.Process)
	assert.Equal(t, "failed password", a.Message)
}

func TestAlert_RawPreservesSubmittedObject(t *testing.T) {
	body := `{"alerts": [{"severity": "HIGH", "custom_field": {"nested": true}, "message": "x"}]}`
	res, err := Payload([]byte(body), receivedAt)
	require.NoError(t, err)
	require.Len(t, res.Alerts, 1)

	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Alerts[0].Raw), &raw))
	assert.Equal(t, "HIGH", raw["severity"], "raw keeps the pre-normalization casing")
	assert.Equal(t, map[string]any{"nested": true}, raw["custom_field"])
}

func TestToReportingZone(t *testing.T) {
	utc := time.Date(2025, 6, 1, 22, 30, 0, 0, time.UTC)
	got := ToReportingZone(utc)
	assert.Equal(t, "2025-06-02 02:30:00", got.Format("2006-01-02 15:04:05"))
	assert.True(t, got.Equal(utc), "conversion must not change the instant")
}

func BenchmarkPayload(b *testing.B) {
	body := []byte(`{
		"meta": {"hostname": "web-01", "os": "Ubuntu 22.04"},
		"resources": {"cpu_percent": 41.5, "ram_percent": 62.0, "disk_percent": 77.3},
		"alerts": [
			{"severity": "high", "source": "security", "event_id": 4625, "message": "failed password"},
			{"level": "low", "source": "sysmon", "msg": "process spawned"}
		]
	}`)
	for b.Loop() {
		if _, err := Payload(body, receivedAt); err != nil {
			b.Fatal(err)
		}
	}
}
