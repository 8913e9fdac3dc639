package tracker

import (
	"io"
	"net/http"

	"github.com/2beens/phonetracker/internal/lookup"
	"github.com/2beens/phonetracker/internal/telemetry/tracing"
	"github.com/2beens/phonetracker/pkg"

	jsoniter "github.com/json-iterator/go"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

const maxTrackRequestBytes = 4 << 10

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type trackRequest struct {
	PhoneNumber  string `json:"phone_number"`
	LiveTracking bool   `json:"live_tracking"`
}

type apiError struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (handler *Handler) handleApiTrack(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "trackerHandler.apiTrack")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxTrackRequestBytes))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeJSON(w, apiError{Error: "read request body", Kind: "bad_request"}, http.StatusBadRequest)
		return
	}

	var req trackRequest
	if err := json.Unmarshal(body, &req); err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeJSON(w, apiError{Error: "invalid request body", Kind: "bad_request"}, http.StatusBadRequest)
		return
	}

	slot := handler.sessions.FromRequest(w, r)
	result, err := handler.trackAndStore(ctx, slot, req.PhoneNumber)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		kind := lookup.KindOf(err)
		status := http.StatusBadRequest
		if kind == lookup.KindUnexpected {
			status = http.StatusInternalServerError
		}
		writeJSON(w, apiError{Error: lookup.UserMessage(err), Kind: string(kind)}, status)
		return
	}

	if req.LiveTracking && result.HasLocation() {
		w.Header().Set("Link", `</track/live>; rel="live-tracking"`)
	}
	writeJSON(w, result, http.StatusOK)
}

func (handler *Handler) handleGetResult(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "trackerHandler.getResult")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "GET, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	slot, ok := handler.sessions.ExistingFromRequest(r)
	if !ok {
		writeJSON(w, apiError{Error: MsgNoTrackedNumber, Kind: "not_found"}, http.StatusNotFound)
		return
	}

	result, found := slot.Get()
	if !found {
		writeJSON(w, apiError{Error: MsgNoTrackedNumber, Kind: "not_found"}, http.StatusNotFound)
		return
	}

	writeJSON(w, result, http.StatusOK)
}

func writeJSON(w http.ResponseWriter, v any, statusCode int) {
	respBytes, err := json.Marshal(v)
	if err != nil {
		log.Errorf("tracker: marshal response: %s", err)
		http.Error(w, "marshal response", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respBytes, statusCode)
}
