package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/garyjia/stocktake/internal/domain/event"
)

// mockLogger implements Logger for testing
type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func (m *mockLogger) HasInfo(msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, info := range m.infos {
		if info == msg {
			return true
		}
	}
	return false
}

func finished() *event.Event {
	return event.NewEvent(event.TypeAreaFinished, "run-1", "Bar", nil)
}

func TestSubscribe(t *testing.T) {
	t.Run("subscribes handler with generated name", func(t *testing.T) {
		d := NewDispatcher()
		called := false
		d.Subscribe(event.TypeAreaFinished, func(ctx context.Context, evt *event.Event) error {
			called = true
			return nil
		})

		if err := d.Dispatch(context.Background(), finished()); err != nil {
			t.Fatalf("dispatch failed: %v", err)
		}
		if !called {
			t.Error("expected handler to be called")
		}

		handlers := d.ListHandlers(event.TypeAreaFinished)
		if len(handlers) != 1 || handlers[0].Name != "handler-0" {
			t.Errorf("unexpected handlers: %+v", handlers)
		}
	})

	t.Run("does not call handlers for other event types", func(t *testing.T) {
		d := NewDispatcher()
		called := false
		d.Subscribe(event.TypeAreaMerged, func(ctx context.Context, evt *event.Event) error {
			called = true
			return nil
		})

		if err := d.Dispatch(context.Background(), finished()); err != nil {
			t.Fatalf("dispatch failed: %v", err)
		}
		if called {
			t.Error("handler for another type should not be called")
		}
	})

	t.Run("logs registration", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))
		d.SubscribeNamed(event.TypeRunCreated, "audit", func(ctx context.Context, evt *event.Event) error { return nil })

		if !logger.HasInfo("Handler registered") {
			t.Error("expected registration to be logged")
		}
	})
}

func TestSubscribeAll(t *testing.T) {
	d := NewDispatcher()
	var seen []event.Type
	d.SubscribeAll("recorder", func(ctx context.Context, evt *event.Event) error {
		seen = append(seen, evt.Type)
		return nil
	})

	for _, typ := range event.AllTypes() {
		if err := d.Dispatch(context.Background(), event.NewEvent(typ, "run-1", "", nil)); err != nil {
			t.Fatalf("dispatch %s failed: %v", typ, err)
		}
	}

	if len(seen) != len(event.AllTypes()) {
		t.Errorf("expected %d events, got %d", len(event.AllTypes()), len(seen))
	}
}

func TestDispatch(t *testing.T) {
	t.Run("runs handlers in registration order", func(t *testing.T) {
		d := NewDispatcher()
		var order []int
		for i := 0; i < 3; i++ {
			i := i
			d.Subscribe(event.TypeAreaFinished, func(ctx context.Context, evt *event.Event) error {
				order = append(order, i)
				return nil
			})
		}

		if err := d.Dispatch(context.Background(), finished()); err != nil {
			t.Fatalf("dispatch failed: %v", err)
		}
		if fmt.Sprint(order) != "[0 1 2]" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("returns first error but runs every handler", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))
		first := errors.New("first")
		ran := 0

		d.SubscribeNamed(event.TypeAreaFinished, "a", func(ctx context.Context, evt *event.Event) error {
			ran++
			return first
		})
		d.SubscribeNamed(event.TypeAreaFinished, "b", func(ctx context.Context, evt *event.Event) error {
			ran++
			return errors.New("second")
		})

		err := d.Dispatch(context.Background(), finished())
		if !errors.Is(err, first) {
			t.Errorf("expected first error, got %v", err)
		}
		if ran != 2 {
			t.Errorf("expected both handlers to run, ran %d", ran)
		}
		if logger.ErrorCount() != 2 {
			t.Errorf("expected 2 logged errors, got %d", logger.ErrorCount())
		}
	})

	t.Run("recovers from handler panic", func(t *testing.T) {
		d := NewDispatcher(WithLogger(&mockLogger{}))
		d.Subscribe(event.TypeAreaFinished, func(ctx context.Context, evt *event.Event) error {
			panic("boom")
		})

		err := d.Dispatch(context.Background(), finished())
		if err == nil {
			t.Fatal("expected error from panicking handler")
		}
	})

	t.Run("returns error when dispatcher is closed", func(t *testing.T) {
		d := NewDispatcher()
		if err := d.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}

		if err := d.Dispatch(context.Background(), finished()); !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	})
}

func TestListHandlers(t *testing.T) {
	d := NewDispatcher()
	if got := d.ListHandlers(event.TypeRunCreated); len(got) != 0 {
		t.Errorf("expected no handlers, got %d", len(got))
	}

	d.SubscribeNamed(event.TypeRunCreated, "audit", func(ctx context.Context, evt *event.Event) error { return nil })
	handlers := d.ListHandlers(event.TypeRunCreated)
	if len(handlers) != 1 {
		t.Fatalf("expected 1 handler, got %d", len(handlers))
	}
	if handlers[0].Handler != nil {
		t.Error("handler func should not be exposed")
	}
	if handlers[0].Name != "audit" || handlers[0].EventType != event.TypeRunCreated {
		t.Errorf("unexpected info %+v", handlers[0])
	}
}

func TestClose(t *testing.T) {
	d := NewDispatcher()
	if err := d.Close(); err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	if err := d.Close(); err == nil {
		t.Error("expected error on double close")
	}
}

func TestConcurrentDispatch(t *testing.T) {
	d := NewDispatcher()
	var count atomic.Int64
	d.Subscribe(event.TypeAreaFinished, func(ctx context.Context, evt *event.Event) error {
		count.Add(1)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Dispatch(context.Background(), finished())
		}()
	}
	wg.Wait()

	if count.Load() != 50 {
		t.Errorf("expected 50 calls, got %d", count.Load())
	}
}
