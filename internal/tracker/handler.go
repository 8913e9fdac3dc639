package tracker

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"

	"github.com/2beens/phonetracker/internal/lookup"
	"github.com/2beens/phonetracker/internal/middleware"
	"github.com/2beens/phonetracker/internal/session"
	"github.com/2beens/phonetracker/internal/telemetry/metrics"
	"github.com/2beens/phonetracker/internal/telemetry/tracing"
	"github.com/2beens/phonetracker/internal/tracking"
	"github.com/2beens/phonetracker/pkg"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=tracker_test

type Tracker interface {
	Track(ctx context.Context, raw string) (*lookup.Result, error)
}

type Handler struct {
	tracker        Tracker
	sessions       *session.Store
	newSimulator   func() *tracking.Simulator
	metricsManager *metrics.Manager
	upgrader       websocket.Upgrader
}

func NewHandler(
	tracker Tracker,
	sessions *session.Store,
	newSimulator func() *tracking.Simulator,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		tracker:        tracker,
		sessions:       sessions,
		newSimulator:   newSimulator,
		metricsManager: metricsManager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// SetupRoutes registers the page, the live tracking socket and the JSON API.
// With a nil rateLimiter the track actions are not rate limited.
func (handler *Handler) SetupRoutes(
	mainRouter *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	allowedPerMin int,
) {
	mainRouter.HandleFunc("/", handler.handleIndex).Methods("GET").Name("index")
	mainRouter.HandleFunc("/track/live", handler.handleLiveTracking).Methods("GET").Name("track-live")
	mainRouter.HandleFunc("/api/result", handler.handleGetResult).Methods("GET", "OPTIONS").Name("api-result")

	trackRouter := mainRouter.NewRoute().Subrouter()
	trackRouter.HandleFunc("/track", handler.handleTrack).Methods("POST").Name("track")
	trackRouter.HandleFunc("/api/track", handler.handleApiTrack).Methods("POST", "OPTIONS").Name("api-track")

	if rateLimiter != nil {
		trackRouter.Use(middleware.RateLimit(rateLimiter, "track", allowedPerMin, handler.metricsManager))
	}
}

func (handler *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "trackerHandler.index")
	defer span.End()

	slot := handler.sessions.FromRequest(w, r)
	result, found := slot.Get()

	var b *banner
	if found {
		b = &banner{Kind: bannerSuccess, Text: MsgSuccess}
	}
	handler.writePage(w, "", false, b, result)
}

func (handler *Handler) handleTrack(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "trackerHandler.track")
	defer span.End()

	if err := r.ParseForm(); err != nil {
		span.SetStatus(codes.Error, fmt.Sprintf("parse form: %s", err))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	input := r.Form.Get("phone_number")
	liveTracking, _ := strconv.ParseBool(r.Form.Get("live_tracking"))
	span.SetAttributes(attribute.Bool("tracker.live", liveTracking))

	slot := handler.sessions.FromRequest(w, r)
	result, err := handler.trackAndStore(ctx, slot, input)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handler.writePage(w, input, liveTracking, &banner{Kind: bannerError, Text: lookup.UserMessage(err)}, nil)
		return
	}

	handler.writePage(w, input, liveTracking, &banner{Kind: bannerSuccess, Text: MsgSuccess}, result)
}

// trackAndStore runs one track action and replaces the slot value with its
// outcome. Panics from the pipeline are reported as errors.
func (handler *Handler) trackAndStore(ctx context.Context, slot *session.Slot, input string) (result *lookup.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("tracker: panic tracking [%s]: %v\n%s", input, r, debug.Stack())
			handler.metricsManager.CounterHandleRequestPanic.Inc()
			slot.Clear()
			result, err = nil, fmt.Errorf("%v", r)
		}
	}()

	result, err = handler.tracker.Track(ctx, input)
	if applyErr := lookup.Apply(slot, result, err); applyErr != nil {
		log.Errorf("tracker: session [%s]: %s", slot.SessionID(), applyErr)
		return nil, applyErr
	}
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (handler *Handler) writePage(w http.ResponseWriter, input string, liveTracking bool, b *banner, result *lookup.Result) {
	data, err := newPageData(input, liveTracking, b, result)
	if err == nil {
		var page []byte
		if page, err = renderPage(data); err == nil {
			pkg.WriteHTMLResponse(w, page, http.StatusOK)
			return
		}
	}

	log.Errorf("tracker: render page: %s", err)
	http.Error(w, "An unexpected error occurred: "+err.Error(), http.StatusInternalServerError)
}
