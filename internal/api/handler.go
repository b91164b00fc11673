package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"decisioning-engine/internal/decisioning"
	"decisioning-engine/internal/request"
)

type DeliveryHandler struct {
	Eng *decisioning.Engine
}

func NewDeliveryHandler(eng *decisioning.Engine) *DeliveryHandler {
	return &DeliveryHandler{Eng: eng}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *DeliveryHandler) Delivery(w http.ResponseWriter, r *http.Request) {
	var req request.DeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Execute == nil && req.Prefetch == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request needs an execute or prefetch block"})
		return
	}

	resp, err := h.Eng.GetOffers(r.Context(), decisioning.Options{
		Request:   &req,
		SessionID: r.URL.Query().Get("sessionId"),
	})
	switch {
	case errors.Is(err, decisioning.ErrArtifactNotAvailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	case errors.Is(err, decisioning.ErrArtifactVersionUnsupported):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *DeliveryHandler) RawArtifact(w http.ResponseWriter, _ *http.Request) {
	raw := h.Eng.GetRawArtifact()
	if raw == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: decisioning.ErrArtifactNotAvailable.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}
