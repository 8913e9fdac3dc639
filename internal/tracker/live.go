package tracker

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/2beens/phonetracker/internal/mapview"
	"github.com/2beens/phonetracker/internal/telemetry/tracing"
	"github.com/2beens/phonetracker/internal/tracking"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	MsgNoTrackedNumber = "No tracked number in this session."

	liveWriteWait = 10 * time.Second
)

type liveError struct {
	Error string `json:"error"`
}

// handleLiveTracking streams the simulated walk around the session's stored
// location. The walk stops when the client goes away.
func (handler *Handler) handleLiveTracking(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "trackerHandler.liveTracking")
	defer span.End()

	conn, err := handler.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader already replied with an error
		span.SetStatus(codes.Error, err.Error())
		log.Warnf("tracker: websocket upgrade: %s", err)
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Tracef("tracker: close websocket: %s", err)
		}
	}()
	// hijacked connections keep the server's read deadline
	_ = conn.SetReadDeadline(time.Time{})

	var errMsg string
	slot, ok := handler.sessions.ExistingFromRequest(r)
	if !ok {
		errMsg = MsgNoTrackedNumber
	} else if result, found := slot.Get(); !found {
		errMsg = MsgNoTrackedNumber
	} else if !result.HasLocation() {
		errMsg = MsgLocationNotFound
	} else {
		start := mapview.LatLng{Lat: result.Location.Latitude, Lng: result.Location.Longitude}
		span.SetAttributes(attribute.String("session.id", slot.SessionID()))
		if err := handler.streamWalk(ctx, conn, start); err != nil {
			span.SetStatus(codes.Error, err.Error())
			log.Debugf("tracker: live tracking [%s] stopped: %s", slot.SessionID(), err)
			return
		}
		closeNormally(conn, "done")
		return
	}

	if err := writeWithDeadline(conn, liveError{Error: errMsg}); err != nil {
		log.Debugf("tracker: write live error: %s", err)
		return
	}
	closeNormally(conn, errMsg)
}

func (handler *Handler) streamWalk(ctx context.Context, conn *websocket.Conn, start mapview.LatLng) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// reading is needed to notice the peer closing the page
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	handler.metricsManager.GaugeActiveSimulators.Inc()
	defer handler.metricsManager.GaugeActiveSimulators.Dec()

	_, err := handler.newSimulator().Run(ctx, start, func(frame tracking.Frame) error {
		if err := writeWithDeadline(conn, frame); err != nil {
			return err
		}
		handler.metricsManager.CounterTrackingFrames.Inc()
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func writeWithDeadline(conn *websocket.Conn, v any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(liveWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

func closeNormally(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(liveWriteWait)); err != nil {
		log.Tracef("tracker: write close message: %s", err)
	}
}
