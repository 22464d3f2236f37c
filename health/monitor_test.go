package health

import (
	"fmt"
	"sync"
	"testing"
)

func TestNewMonitor(t *testing.T) {
	monitor := NewMonitor()

	if monitor == nil {
		t.Fatal("NewMonitor() returned nil")
	}
	if monitor.Count() != 0 {
		t.Errorf("New monitor should have 0 components, got %d", monitor.Count())
	}
}

func TestMonitor_Update(t *testing.T) {
	monitor := NewMonitor()

	status := Status{
		Component: "wrong-name",
		Status:    "healthy",
		Message:   "test message",
	}
	monitor.Update("stream-service", status)

	retrieved, exists := monitor.Get("stream-service")
	if !exists {
		t.Fatal("Component should exist after update")
	}
	// Update corrects the component name and fills the timestamp
	if retrieved.Component != "stream-service" {
		t.Errorf("Expected component name 'stream-service', got %s", retrieved.Component)
	}
	if retrieved.Timestamp.IsZero() {
		t.Error("Update should set timestamp if not provided")
	}
}

func TestMonitor_ConvenienceMethods(t *testing.T) {
	monitor := NewMonitor()

	monitor.UpdateHealthy("a", "ok")
	monitor.UpdateDegraded("b", "slow")
	monitor.UpdateUnhealthy("c", "down")

	if status, _ := monitor.Get("a"); !status.IsHealthy() {
		t.Error("a should be healthy")
	}
	if status, _ := monitor.Get("b"); !status.IsDegraded() {
		t.Error("b should be degraded")
	}
	if status, _ := monitor.Get("c"); !status.IsUnhealthy() {
		t.Error("c should be unhealthy")
	}
}

func TestMonitor_AggregateHealth(t *testing.T) {
	monitor := NewMonitor()
	monitor.UpdateHealthy("a", "ok")
	monitor.UpdateHealthy("b", "ok")

	agg := monitor.AggregateHealth("system")
	if !agg.IsHealthy() {
		t.Errorf("expected healthy aggregate, got %s", agg.Status)
	}

	monitor.UpdateUnhealthy("c", "down")
	agg = monitor.AggregateHealth("system")
	if !agg.IsUnhealthy() {
		t.Errorf("expected unhealthy aggregate, got %s", agg.Status)
	}
	if len(agg.SubStatuses) != 3 {
		t.Errorf("expected 3 sub-statuses, got %d", len(agg.SubStatuses))
	}
}

func TestMonitor_Remove(t *testing.T) {
	monitor := NewMonitor()
	monitor.UpdateHealthy("a", "ok")
	monitor.Remove("a")

	if _, exists := monitor.Get("a"); exists {
		t.Error("component should be gone after Remove")
	}
}

func TestMonitor_ConcurrentAccess(t *testing.T) {
	monitor := NewMonitor()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			monitor.UpdateHealthy(fmt.Sprintf("comp-%d", n%10), "ok")
		}(i)
		go func(n int) {
			defer wg.Done()
			monitor.Get(fmt.Sprintf("comp-%d", n%10))
			monitor.GetAll()
		}(i)
	}
	wg.Wait()

	if monitor.Count() != 10 {
		t.Errorf("expected 10 components, got %d", monitor.Count())
	}
}
