package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/mongo"

	httputil "radiantgo/pkg/http"
	"radiantgo/pkg/kvstore"
	"radiantgo/pkg/logger"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	KVStore  string `json:"kv_store,omitempty"`
}

// HealthHandler reports liveness and readiness. Readiness checks both the
// record store and the key-value store, since locks and cache are useless
// without the latter.
type HealthHandler struct {
	mongoClient *mongo.Client
	kv          kvstore.Store
	log         *logger.Logger
}

func NewHealthHandler(mongoClient *mongo.Client, kv kvstore.Store, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		mongoClient: mongoClient,
		kv:          kv,
		log:         log,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ready", Database: "ok", KVStore: "ok"}
	healthy := true

	if err := h.mongoClient.Ping(ctx, nil); err != nil {
		h.log.Error("Database health check failed",
			"error", err,
			"path", r.URL.Path,
		)
		resp.Database = "error"
		healthy = false
	}

	if err := h.kv.Ping(ctx); err != nil {
		h.log.Error("KV store health check failed",
			"error", err,
			"path", r.URL.Path,
		)
		resp.KVStore = "error"
		healthy = false
	}

	if !healthy {
		resp.Status = "unavailable"
		if err := httputil.WriteJSON(w, http.StatusServiceUnavailable, resp); err != nil {
			h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
		}
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, resp); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
