package notify

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-pipeline/internal/identity"
)

func testIdentity() identity.Identity {
	return identity.Identity{Company: "Acme", Title: "Engineer", JobID: "job-notify"}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMulti_FansOut(t *testing.T) {
	var got []Kind
	var mu sync.Mutex
	record := func(kind Kind, _ identity.Identity, _ map[string]any) {
		mu.Lock()
		got = append(got, kind)
		mu.Unlock()
	}

	m := Multi{sinkFunc(record), sinkFunc(record)}
	m.Notify(KindPhaseChanged, testIdentity(), nil)
	assert.Len(t, got, 2)
}

type sinkFunc func(Kind, identity.Identity, map[string]any)

func (f sinkFunc) Notify(kind Kind, id identity.Identity, payload map[string]any) {
	f(kind, id, payload)
}

func TestWebhookSink_DeliversJSON(t *testing.T) {
	received := make(chan webhookPayload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var p webhookPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		received <- p
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, discardLogger())
	sink.Notify(KindEventCompleted, testIdentity(), map[string]any{"event": "generate-resume-pdf"})
	sink.Close()

	select {
	case p := <-received:
		assert.Equal(t, KindEventCompleted, p.Kind)
		assert.Equal(t, "job-notify", p.Identity.JobID)
		assert.Equal(t, "generate-resume-pdf", p.Payload["event"])
		assert.False(t, p.Timestamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("webhook was never delivered")
	}
}

func TestWebhookSink_NotifyNeverBlocks(t *testing.T) {
	// A hanging endpoint must not stall the core: delivery is asynchronous
	// and overflow notifications are dropped.
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))

	sink := NewWebhookSink(srv.URL, discardLogger())
	start := time.Now()
	for range webhookBuffer * 2 {
		sink.Notify(KindEventFailed, testIdentity(), nil)
	}
	assert.Less(t, time.Since(start), time.Second, "Notify must return immediately even with a stuck endpoint")

	close(release)
	sink.Close()
	srv.Close()
}

func TestLogSink_DoesNotPanic(t *testing.T) {
	sink := NewLogSink(discardLogger())
	sink.Notify(KindPhaseChanged, testIdentity(), map[string]any{"from": "queued", "to": "applied"})
}
