package health

import (
	"testing"
	"time"
)

func TestStatusPredicates(t *testing.T) {
	healthy := NewHealthy("comp", "ok")
	if !healthy.IsHealthy() || healthy.IsDegraded() || healthy.IsUnhealthy() {
		t.Errorf("healthy status predicates wrong: %+v", healthy)
	}
	if !healthy.Healthy {
		t.Error("NewHealthy should set Healthy=true")
	}

	unhealthy := NewUnhealthy("comp", "bad")
	if unhealthy.IsHealthy() || !unhealthy.IsUnhealthy() {
		t.Errorf("unhealthy status predicates wrong: %+v", unhealthy)
	}

	degraded := NewDegraded("comp", "meh")
	if !degraded.IsDegraded() || degraded.Healthy {
		t.Errorf("degraded status predicates wrong: %+v", degraded)
	}
}

func TestWithIssueDoesNotShareBacking(t *testing.T) {
	base := NewUnhealthy("stream", "problems")
	a := base.WithIssue("error rate 12.0% exceeds 10%")
	b := a.WithIssue("average latency 1500ms exceeds 1000ms")

	if len(a.Issues) != 1 {
		t.Errorf("expected 1 issue on a, got %d", len(a.Issues))
	}
	if len(b.Issues) != 2 {
		t.Errorf("expected 2 issues on b, got %d", len(b.Issues))
	}
	if a.Issues[0] != "error rate 12.0% exceeds 10%" {
		t.Errorf("unexpected issue: %s", a.Issues[0])
	}
}

func TestWithMetrics(t *testing.T) {
	metrics := &Metrics{
		Uptime:            2 * time.Minute,
		ErrorCount:        3,
		MessagesProcessed: 100,
	}

	status := NewHealthy("stream", "ok").WithMetrics(metrics)
	if status.Metrics == nil || status.Metrics.ErrorCount != 3 {
		t.Errorf("metrics not attached: %+v", status.Metrics)
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name string
		subs []Status
		want string
	}{
		{"empty", nil, "healthy"},
		{"all healthy", []Status{NewHealthy("a", ""), NewHealthy("b", "")}, "healthy"},
		{"one unhealthy", []Status{NewHealthy("a", ""), NewUnhealthy("b", "")}, "unhealthy"},
		{"one degraded", []Status{NewHealthy("a", ""), NewDegraded("b", "")}, "degraded"},
		{"unhealthy wins over degraded", []Status{NewDegraded("a", ""), NewUnhealthy("b", "")}, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate("system", tt.subs)
			if got.Status != tt.want {
				t.Errorf("Aggregate() = %s, want %s", got.Status, tt.want)
			}
			if len(got.SubStatuses) != len(tt.subs) {
				t.Errorf("expected %d sub-statuses, got %d", len(tt.subs), len(got.SubStatuses))
			}
		})
	}
}

func TestSanitizeMessage(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"url", "dial nats://broker.internal:4222 refused", "dial [URL] refused"},
		{"ip and port", "connect 10.0.0.5:8080 failed", "connect [IP][PORT] failed"},
		{"credentials", "auth password=hunter2 rejected", "auth [REDACTED] rejected"},
		{"plain message unchanged", "stream is stale", "stream is stale"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeMessage(tt.input); got != tt.want {
				t.Errorf("SanitizeMessage(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
