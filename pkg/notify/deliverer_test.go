package notify

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/awaazlabs/awaaz/pkg/events"
	"github.com/awaazlabs/awaaz/pkg/urlvalidation"
)

func testConfig() DelivererConfig {
	return DelivererConfig{
		MaxRetries:        1,
		TimeoutSec:        5,
		BackoffInitialSec: 1,
		BackoffMaxSec:     1,
		CBFailThreshold:   5,
		CBResetTimeoutSec: 60,
	}
}

func testEnvelope() events.Envelope {
	data, _ := json.Marshal(events.EntryCommittedData{
		EntryID:   "rec-1",
		Name:      "Aspirin",
		Strength:  "100mg",
		Frequency: "once a day",
	})
	return events.Envelope{
		ID:        "evt-1",
		Type:      events.EntryCommitted,
		Source:    "dialog",
		SessionID: "sess-1",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

func TestDelivererSendsSignedRequest(t *testing.T) {
	secret := "webhook-secret-123"
	var received, sigValid atomic.Bool

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Store(true)

		if r.Header.Get("Content-Type") != "application/json" {
			t.Error("missing Content-Type header")
		}
		if r.Header.Get("X-Awaaz-Event") != string(events.EntryCommitted) {
			t.Errorf("event header = %q", r.Header.Get("X-Awaaz-Event"))
		}
		if r.Header.Get("X-Awaaz-Delivery") != "evt-1" {
			t.Errorf("delivery header = %q", r.Header.Get("X-Awaaz-Delivery"))
		}

		body, _ := io.ReadAll(r.Body)
		if Verify(secret, body, r.Header.Get(SignatureHeader)) {
			sigValid.Store(true)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	d := NewDeliverer(nil, testConfig(), nil, urlvalidation.AllowPrivateIPs())

	ep := Endpoint{URL: ts.URL, Secret: secret}
	ep.ID = "ep-1"

	d.Deliver(t.Context(), ep, testEnvelope())

	if !received.Load() {
		t.Fatal("server did not receive the webhook delivery")
	}
	if !sigValid.Load() {
		t.Error("webhook signature was not valid")
	}
}

func TestDelivererRejectsUnsafeURL(t *testing.T) {
	var received atomic.Bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Store(true)
	}))
	defer ts.Close()

	// No AllowPrivateIPs option: the loopback test server must be refused.
	d := NewDeliverer(nil, testConfig(), nil)

	ep := Endpoint{URL: ts.URL, Secret: "s"}
	ep.ID = "ep-ssrf"

	d.Deliver(t.Context(), ep, testEnvelope())

	if received.Load() {
		t.Error("deliverer posted to a private address")
	}
}

func TestDelivererCircuitBreaksAfterFailures(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	cfg := testConfig()
	cfg.CBFailThreshold = 2
	d := NewDeliverer(nil, cfg, nil, urlvalidation.AllowPrivateIPs())

	ep := Endpoint{URL: ts.URL, Secret: "s"}
	ep.ID = "ep-cb"

	ctx := t.Context()
	env := testEnvelope()
	for i := 0; i < 4; i++ {
		d.Deliver(ctx, ep, env)
	}

	if got := hits.Load(); got != 2 {
		t.Errorf("endpoint hit %d times, want 2 (breaker should open)", got)
	}
	if d.getOrCreateBreaker(ep.ID).State() != StateOpen {
		t.Error("breaker did not open after repeated failures")
	}
}

func TestBreakerEvictionDropsLeastRecentlyUsed(t *testing.T) {
	d := NewDeliverer(nil, testConfig(), nil)
	d.breakerCap = 2

	d.getOrCreateBreaker("ep-a")
	d.getOrCreateBreaker("ep-b")
	d.getOrCreateBreaker("ep-a") // refresh ep-a; ep-b is now oldest
	d.getOrCreateBreaker("ep-c") // at capacity: must evict ep-b

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.breakers["ep-b"]; ok {
		t.Error("least recently used breaker ep-b was not evicted")
	}
	for _, id := range []string{"ep-a", "ep-c"} {
		if _, ok := d.breakers[id]; !ok {
			t.Errorf("breaker %s should have survived eviction", id)
		}
	}
}
