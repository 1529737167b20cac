package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "catalog.loaded", Data: map[string]int{"total": 3}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: catalog.loaded") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"total":3`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishCoalescedKeepsNewest(t *testing.T) {
	b := NewBroker(300 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for i := 1; i <= 5; i++ {
		b.PublishCoalesced(Event{Type: "selection.changed", Data: map[string]int{"selected": i}})
	}

	var got []string
	deadline := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case msg := <-ch:
			got = append(got, string(msg))
		case <-deadline:
			t.Fatalf("got %d events, want 2: %q", len(got), got)
		}
	}
	if !strings.Contains(got[0], `"selected":1`) {
		t.Errorf("first event should go out immediately: %q", got[0])
	}
	if !strings.Contains(got[1], `"selected":5`) {
		t.Errorf("trailing event should be the newest: %q", got[1])
	}

	select {
	case msg := <-ch:
		t.Errorf("unexpected extra event %q", msg)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestPublishCoalescedPerType(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishCoalesced(Event{Type: "a", Data: 1})
	b.PublishCoalesced(Event{Type: "b", Data: 2})

	for i := 0; i < 2; i++ {
		select {
		case <-ch:
		case <-time.After(200 * time.Millisecond):
			t.Fatalf("event %d of distinct types was held back", i)
		}
	}
}

func TestPublishCoalescedHonoursGapPerType(t *testing.T) {
	const gap = 400 * time.Millisecond
	b := NewBroker(gap)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	arrived := make(map[string][]time.Time)
	next := func() {
		t.Helper()
		select {
		case msg := <-ch:
			typ := strings.TrimPrefix(strings.SplitN(string(msg), "\n", 2)[0], "event: ")
			arrived[typ] = append(arrived[typ], time.Now())
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for event")
		}
	}

	b.PublishCoalesced(Event{Type: "a", Data: 1})
	next()
	time.Sleep(gap * 3 / 4)
	b.PublishCoalesced(Event{Type: "b", Data: 1})
	next()
	// "a" is due shortly, "b" only after a full gap from now.
	b.PublishCoalesced(Event{Type: "a", Data: 2})
	b.PublishCoalesced(Event{Type: "b", Data: 2})
	next()
	next()

	if len(arrived["a"]) != 2 || len(arrived["b"]) != 2 {
		t.Fatalf("arrivals = %v", arrived)
	}
	for typ, at := range arrived {
		if d := at[1].Sub(at[0]); d < gap-50*time.Millisecond {
			t.Errorf("%s: trailing event after %v, want at least %v", typ, d, gap)
		}
	}
	if !arrived["a"][1].Before(arrived["b"][1]) {
		t.Error("trailing a should go out before trailing b")
	}
}

// syncRecorder guards the body so the test can read it while the handler
// goroutine may still be writing.
type syncRecorder struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func (r *syncRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(p)
}

func (r *syncRecorder) body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Body.String()
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: "export.completed", Data: map[string]int{"count": 2}})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if body := w.body(); !strings.Contains(body, "event: export.completed") {
		t.Errorf("handler output missing event: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Subscriber buffer holds 64; the rest must be dropped without blocking.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: i})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.PublishCoalesced(Event{Type: "selection.changed", Data: 1})
	b.PublishCoalesced(Event{Type: "selection.changed", Data: 2})
	b.Close()

	timeout := time.After(time.Second)
	for open := true; open; {
		select {
		case _, open = <-ch:
		case <-timeout:
			t.Fatal("timeout waiting for channel close")
		}
	}
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	b.Publish(Event{Type: "catalog.loaded"})
	b.PublishCoalesced(Event{Type: "selection.changed"})
}
