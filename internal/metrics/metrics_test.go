package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	if m == nil {
		t.Fatal("New() returned nil")
	}

	if m.PortalRequestsTotal == nil {
		t.Error("PortalRequestsTotal is nil")
	}
	if m.PortalDurationSeconds == nil {
		t.Error("PortalDurationSeconds is nil")
	}
	if m.CacheHitsTotal == nil {
		t.Error("CacheHitsTotal is nil")
	}
	if m.CacheMissesTotal == nil {
		t.Error("CacheMissesTotal is nil")
	}
	if m.WebhookEventsTotal == nil {
		t.Error("WebhookEventsTotal is nil")
	}
	if m.WebhookDurationSeconds == nil {
		t.Error("WebhookDurationSeconds is nil")
	}
	if m.DialogsStartedTotal == nil {
		t.Error("DialogsStartedTotal is nil")
	}
	if m.DialogsCompletedTotal == nil {
		t.Error("DialogsCompletedTotal is nil")
	}
}

func TestRecordPortalRequest(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.RecordPortalRequest("cfc/select.cfc", "success", 500*time.Millisecond)
	m.RecordPortalRequest("index_result.cfm", "error", 2*time.Second)
	m.RecordPortalRequest("index_tt.cfm", "connectivity_error", 30*time.Second)

	got := testutil.ToFloat64(m.PortalRequestsTotal.WithLabelValues("cfc/select.cfc", "success"))
	if got != 1 {
		t.Errorf("portal counter = %v, want 1", got)
	}
}

func TestRecordCacheHitAndMiss_BucketsKeysByKind(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.RecordCacheHit("icress_timetable:ENT530")
	m.RecordCacheHit("icress_timetable:IMS605")
	m.RecordCacheMiss("icress_campuses")

	hits := testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("icress_timetable"))
	if hits != 2 {
		t.Errorf("timetable hits = %v, want 2 (keys must share the kind label)", hits)
	}
	misses := testutil.ToFloat64(m.CacheMissesTotal.WithLabelValues("icress_campuses"))
	if misses != 1 {
		t.Errorf("campus misses = %v, want 1", misses)
	}
}

func TestRecordWebhookEvent(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.RecordWebhookEvent("message", "success", 120*time.Millisecond)
	m.RecordWebhookEvent("message", "error", time.Second)
	m.RecordWebhookEvent("follow", "success", 10*time.Millisecond)

	got := testutil.ToFloat64(m.WebhookEventsTotal.WithLabelValues("message", "success"))
	if got != 1 {
		t.Errorf("webhook counter = %v, want 1", got)
	}
}

func TestRecordDialogMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.RecordDialogStarted()
	m.RecordDialogStarted()
	m.RecordDialogCompleted("timetable")
	m.RecordDialogCompleted("not_found")

	if got := testutil.ToFloat64(m.DialogsStartedTotal); got != 2 {
		t.Errorf("dialogs started = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.DialogsCompletedTotal.WithLabelValues("timetable")); got != 1 {
		t.Errorf("completed timetable = %v, want 1", got)
	}
}

func TestKeyKind(t *testing.T) {
	cases := []struct {
		key  string
		want string
	}{
		{"icress_campuses", "icress_campuses"},
		{"icress_courses:B_AP", "icress_courses"},
		{"icress_timetable:ENT530", "icress_timetable"},
	}
	for _, tc := range cases {
		if got := keyKind(tc.key); got != tc.want {
			t.Errorf("keyKind(%q) = %q, want %q", tc.key, got, tc.want)
		}
	}
}
