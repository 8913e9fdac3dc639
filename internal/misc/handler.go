package misc

import (
	"context"
	"net/http"
	"time"

	"github.com/2beens/phonetracker/internal/telemetry/tracing"
	"github.com/2beens/phonetracker/pkg"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const healthCheckTimeout = 2 * time.Second

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type ResultCounter interface {
	StoredResultsCount() int64
}

type Handler struct {
	versionInfo string
	startedAt   time.Time
	results     ResultCounter
	// nil when redis is disabled
	redisClient redis.UniversalClient
}

func NewHandler(
	versionInfo string,
	results ResultCounter,
	redisClient redis.UniversalClient,
) *Handler {
	return &Handler{
		versionInfo: versionInfo,
		startedAt:   time.Now(),
		results:     results,
		redisClient: redisClient,
	}
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router) {
	mainRouter.HandleFunc("/version", handler.handleGetVersionInfo).Methods("GET").Name("version")
	mainRouter.HandleFunc("/health", handler.handleHealth).Methods("GET").Name("health")
}

func (handler *Handler) handleGetVersionInfo(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, handler.versionInfo)
}

type healthResponse struct {
	Status        string `json:"status"`
	Uptime        string `json:"uptime"`
	StoredResults int64  `json:"stored_results"`
	Redis         string `json:"redis"`
}

func (handler *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.health")
	defer span.End()

	resp := healthResponse{
		Status:        "ok",
		Uptime:        time.Since(handler.startedAt).Round(time.Second).String(),
		StoredResults: handler.results.StoredResultsCount(),
		Redis:         "disabled",
	}
	statusCode := http.StatusOK

	if handler.redisClient != nil {
		ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		defer cancel()

		if err := handler.redisClient.Ping(ctx).Err(); err != nil {
			log.Errorf("health: ping redis: %s", err)
			span.SetStatus(codes.Error, err.Error())
			resp.Status = "degraded"
			resp.Redis = "unreachable"
			statusCode = http.StatusServiceUnavailable
		} else {
			resp.Redis = "ok"
		}
	}
	span.SetAttributes(attribute.String("health.status", resp.Status))

	respBytes, err := json.Marshal(resp)
	if err != nil {
		log.Errorf("health: marshal response: %s", err)
		http.Error(w, "marshal health response", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respBytes, statusCode)
}
