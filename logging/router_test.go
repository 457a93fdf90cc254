package logging_test

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/GhostDragonAlpha/Alexander-sub009/logging"
	"github.com/GhostDragonAlpha/Alexander-sub009/logging/sinks"
)

func newMemoryRouter(t *testing.T, cfg logging.Config) (*logging.Router, *sinks.MemorySink) {
	t.Helper()
	memory := sinks.NewMemorySink()
	cfg.EnabledSinks = []string{"memory"}
	fallback := log.New(io.Discard, "", 0)
	router, err := logging.NewRouter(cfg, logging.SystemClock{}, fallback, map[string]logging.Sink{
		"memory": memory,
	})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	return router, memory
}

func closeRouter(t *testing.T, router *logging.Router) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("close router: %v", err)
	}
}

func TestRouterDeliversEvents(t *testing.T) {
	router, memory := newMemoryRouter(t, logging.DefaultConfig())

	router.Publish(context.Background(), logging.Event{
		Type:     "sync.state_recorded",
		Tick:     7,
		Severity: logging.SeverityInfo,
		Actor:    logging.EntityRef{ID: "p1", Kind: logging.EntityKindPlayer},
		Category: logging.CategorySync,
	})
	closeRouter(t, router)

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	event := events[0]
	if event.Type != "sync.state_recorded" || event.Tick != 7 || event.Actor.ID != "p1" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.Time.IsZero() {
		t.Fatalf("expected the router to stamp the event time")
	}
	if stats := router.Stats(); stats.EventsTotal != 1 || stats.DroppedTotal != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRouterFiltersBySeverity(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityWarn
	router, memory := newMemoryRouter(t, cfg)

	router.Publish(context.Background(), logging.Event{Type: "noise", Severity: logging.SeverityDebug})
	router.Publish(context.Background(), logging.Event{Type: "signal", Severity: logging.SeverityError})
	closeRouter(t, router)

	events := memory.Events()
	if len(events) != 1 || events[0].Type != "signal" {
		t.Fatalf("expected only the error event, got %+v", events)
	}
}

func TestRouterIgnoresUntypedEvents(t *testing.T) {
	router, memory := newMemoryRouter(t, logging.DefaultConfig())

	router.Publish(context.Background(), logging.Event{Severity: logging.SeverityInfo})
	closeRouter(t, router)

	if events := memory.Events(); len(events) != 0 {
		t.Fatalf("expected untyped events to be discarded, got %+v", events)
	}
}

func TestRouterAttachesGlobalFields(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.Fields = map[string]any{"node": "server-1"}
	router, memory := newMemoryRouter(t, cfg)

	router.Publish(context.Background(), logging.Event{Type: "signal", Severity: logging.SeverityInfo})
	closeRouter(t, router)

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Extra["node"] != "server-1" {
		t.Fatalf("expected the global field to be attached, got %+v", events[0].Extra)
	}
}

func TestRouterPublishAfterClose(t *testing.T) {
	router, memory := newMemoryRouter(t, logging.DefaultConfig())
	closeRouter(t, router)

	router.Publish(context.Background(), logging.Event{Type: "late", Severity: logging.SeverityInfo})
	if events := memory.Events(); len(events) != 0 {
		t.Fatalf("expected publishes after close to be dropped, got %+v", events)
	}
}
