package decisioning

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decisioning-engine/internal/artifact"
	"decisioning-engine/internal/request"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []string
	failed []artifact.DownloadFailed
}

func (e *eventRecorder) emit(event string, payload any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	if f, ok := payload.(artifact.DownloadFailed); ok {
		e.failed = append(e.failed, f)
	}
}

func TestEngineRecoversWithinRetryBudget(t *testing.T) {
	statuses := []int{401, 404, 406, 501, 403, 503, 400, 502, 429, 410}
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		if n < len(statuses) {
			w.WriteHeader(statuses[n])
			return
		}
		_, _ = w.Write([]byte(`{"version":"1.0","campaigns":[{"id":1,"campaignType":"ab","branches":[{"branchId":0,"offers":[{"id":7,"content":"ok"}]}]}]}`))
	}))
	defer srv.Close()

	eng, err := New(context.Background(), Config{
		Client:                 "clientId",
		ArtifactLocation:       srv.URL,
		MinimumPollingInterval: -1,
		HTTPClient:             srv.Client(),
		Logger:                 zerolog.Nop(),
	})
	require.NoError(t, err)
	defer eng.StopPolling()

	assert.Equal(t, int32(11), calls.Load())
	assert.True(t, eng.IsReady())

	req := &request.DeliveryRequest{
		Execute: &request.ExecuteRequest{Mboxes: []request.MboxRequest{{Name: "home"}}},
	}
	resp, err := eng.GetOffers(context.Background(), Options{Request: req})
	require.NoError(t, err)
	require.Len(t, resp.Execute.Mboxes[0].Options, 1)
	assert.Equal(t, "ok", resp.Execute.Mboxes[0].Options[0].Content)
}

func TestEngineStaysNotReadyAfterExhaustedRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	rec := &eventRecorder{}
	eng, err := New(context.Background(), Config{
		Client:                 "clientId",
		ArtifactLocation:       srv.URL,
		MinimumPollingInterval: -1,
		HTTPClient:             srv.Client(),
		EventEmitter:           rec.emit,
		Logger:                 zerolog.Nop(),
	})
	require.NoError(t, err)
	defer eng.StopPolling()

	assert.Equal(t, int32(11), calls.Load())
	assert.False(t, eng.IsReady())
	assert.Nil(t, eng.GetRawArtifact())

	_, err = eng.GetOffers(context.Background(), Options{Request: &request.DeliveryRequest{}})
	assert.ErrorIs(t, err, ErrArtifactNotAvailable)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.failed, 1)
	assert.Equal(t, srv.URL, rec.failed[0].ArtifactLocation)
	assert.Contains(t, rec.failed[0].Error.Error(), "Forbidden")
}

func TestEngineRejectsUnsupportedArtifactVersion(t *testing.T) {
	eng, err := New(context.Background(), Config{
		Client:          "clientId",
		ArtifactPayload: []byte(`{"version":"2.0","campaigns":[]}`),
		Logger:          zerolog.Nop(),
	})
	require.NoError(t, err)
	defer eng.StopPolling()

	_, err = eng.GetOffers(context.Background(), Options{Request: &request.DeliveryRequest{}})
	assert.ErrorIs(t, err, ErrArtifactVersionUnsupported)
}

func TestEngineSwapsArtifactOnChangedPoll(t *testing.T) {
	var version atomic.Value
	version.Store(`{"version":"1.0","campaigns":[{"id":1,"campaignType":"ab","branches":[{"branchId":0,"offers":[{"id":1,"content":"old"}]}]}]}`)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(version.Load().(string)))
	}))
	defer srv.Close()

	eng, err := New(context.Background(), Config{
		Client:                 "clientId",
		ArtifactLocation:       srv.URL,
		PollingInterval:        5 * time.Millisecond,
		MinimumPollingInterval: -1,
		HTTPClient:             srv.Client(),
		Logger:                 zerolog.Nop(),
	})
	require.NoError(t, err)
	defer eng.StopPolling()
	require.True(t, eng.IsReady())

	version.Store(`{"version":"1.1","campaigns":[{"id":1,"campaignType":"ab","branches":[{"branchId":0,"offers":[{"id":1,"content":"new"}]}]}]}`)

	assert.Eventually(t, func() bool {
		req := &request.DeliveryRequest{
			Execute: &request.ExecuteRequest{Mboxes: []request.MboxRequest{{Name: "home"}}},
		}
		resp, err := eng.GetOffers(context.Background(), Options{Request: req})
		if err != nil || len(resp.Execute.Mboxes[0].Options) == 0 {
			return false
		}
		return resp.Execute.Mboxes[0].Options[0].Content == "new"
	}, time.Second, 5*time.Millisecond)
}

func TestEngineRequiresASource(t *testing.T) {
	_, err := New(context.Background(), Config{Logger: zerolog.Nop()})
	assert.Error(t, err)
}

func TestHasRemoteDependency(t *testing.T) {
	eng, err := New(context.Background(), Config{
		Client: "clientId",
		ArtifactPayload: []byte(`{
			"version": "1.0",
			"campaigns": [],
			"remoteMboxes": ["recs"],
			"remoteViews": ["checkout"]
		}`),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	defer eng.StopPolling()

	dep := eng.HasRemoteDependency(&request.DeliveryRequest{
		Execute: &request.ExecuteRequest{Mboxes: []request.MboxRequest{{Name: "recs"}, {Name: "home"}}},
		Prefetch: &request.PrefetchRequest{
			Views: []request.ViewRequest{{Name: "checkout"}, {Name: "contact"}},
		},
	})

	assert.True(t, dep.Remote)
	assert.Equal(t, []string{"recs"}, dep.RemoteMboxes)
	assert.Equal(t, []string{"checkout"}, dep.RemoteViews)

	dep = eng.HasRemoteDependency(&request.DeliveryRequest{
		Execute: &request.ExecuteRequest{Mboxes: []request.MboxRequest{{Name: "home"}}},
	})
	assert.False(t, dep.Remote)
}
