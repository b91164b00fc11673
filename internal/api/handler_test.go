package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decisioning-engine/internal/decisioning"
)

const testArtifact = `{
	"version": "1.0",
	"campaigns": [
		{
			"id": 334411,
			"campaignType": "ab",
			"branches": [
				{"branchId": 0, "offers": [{"id": 631991, "type": "html", "content": "<h1>hi</h1>"}]}
			]
		}
	]
}`

func newTestEngine(t *testing.T, payload string) *decisioning.Engine {
	t.Helper()
	eng, err := decisioning.New(context.Background(), decisioning.Config{
		Client:          "someClientId",
		ArtifactPayload: json.RawMessage(payload),
		Logger:          zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(eng.StopPolling)
	return eng
}

func TestDelivery_Scenarios(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"malformed body", "{not json", http.StatusBadRequest},
		{"no asks", `{"id":{"tntId":"abc"}}`, http.StatusBadRequest},
		{
			name:       "execute mbox",
			body:       `{"id":{"tntId":"abc"},"execute":{"mboxes":[{"name":"home","index":1}]}}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "prefetch view",
			body:       `{"prefetch":{"views":[{"name":"contact"}]}}`,
			wantStatus: http.StatusOK,
		},
	}

	eng := newTestEngine(t, testArtifact)
	router := Router(NewDeliveryHandler(eng))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/delivery", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp decisioning.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, http.StatusOK, resp.Status)
			assert.NotEmpty(t, resp.RequestID)
			assert.NotNil(t, resp.ID)
		})
	}
}

func TestDeliveryReturnsOffers(t *testing.T) {
	eng := newTestEngine(t, testArtifact)
	router := Router(NewDeliveryHandler(eng))

	body := `{"execute":{"mboxes":[{"name":"home","index":1}]}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/delivery", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp decisioning.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Execute.Mboxes, 1)
	require.Len(t, resp.Execute.Mboxes[0].Options, 1)
	assert.Equal(t, "<h1>hi</h1>", resp.Execute.Mboxes[0].Options[0].Content)
	assert.Len(t, resp.Notifications, 1)
}

func TestDeliveryRejectsUnsupportedVersion(t *testing.T) {
	eng := newTestEngine(t, `{"version":"2.0","campaigns":[]}`)
	router := Router(NewDeliveryHandler(eng))

	body := `{"execute":{"mboxes":[{"name":"home"}]}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/delivery", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRawArtifact(t *testing.T) {
	eng := newTestEngine(t, testArtifact)
	router := Router(NewDeliveryHandler(eng))

	req := httptest.NewRequest(http.MethodGet, "/v1/artifact", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, testArtifact, w.Body.String())
}

func TestHealthz(t *testing.T) {
	eng := newTestEngine(t, testArtifact)
	router := Router(NewDeliveryHandler(eng))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
