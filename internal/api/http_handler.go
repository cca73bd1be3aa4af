package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Krimson/dig-music/internal/session"
	"github.com/Krimson/dig-music/internal/storage"
	"github.com/Krimson/dig-music/internal/ws"
)

// HTTPHandler обрабатывает HTTP запросы сервиса
type HTTPHandler struct {
	manager *session.Manager
	events  *storage.PostgresStore
	live    *storage.LiveStore
	hub     *ws.Hub
	logger  *zap.Logger
}

// NewHTTPHandler создает новый HTTP обработчик
func NewHTTPHandler(manager *session.Manager, events *storage.PostgresStore, live *storage.LiveStore, hub *ws.Hub, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{
		manager: manager,
		events:  events,
		live:    live,
		hub:     hub,
		logger:  logger,
	}
}

// RegisterRoutes регистрирует маршруты в роутере
func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.Health).Methods("GET")
	router.HandleFunc("/ws", h.hub.HandleWebSocket)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/session/start", h.StartSession).Methods("POST")
	api.HandleFunc("/session/stop", h.StopSession).Methods("POST")
	api.HandleFunc("/live", h.GetLive).Methods("GET")
	api.HandleFunc("/events", h.ListEvents).Methods("GET")
	api.HandleFunc("/baselines/latest", h.GetLatestBaseline).Methods("GET")
}

// Health возвращает состояние сервиса
// GET /health
func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	sessionID, active := h.manager.ActiveSessionID()

	resp := map[string]interface{}{
		"status":     "ok",
		"ws_clients": h.hub.ClientCount(),
	}
	if active {
		resp["active_session"] = sessionID
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// StartSession запускает новую сессию
// POST /api/session/start
func (h *HTTPHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.manager.Start()
	if err != nil {
		if errors.Is(err, session.ErrSessionActive) {
			h.respondError(w, http.StatusConflict, "Session already active")
			return
		}
		h.logger.Error("failed to start session", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to start session")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id": sessionID,
		"message":    "Session started",
	})
}

// StopSession останавливает активную сессию
// POST /api/session/stop
func (h *HTTPHandler) StopSession(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Stop(); err != nil {
		if errors.Is(err, session.ErrNoActiveSession) {
			h.respondError(w, http.StatusConflict, "No active session")
			return
		}
		h.logger.Error("failed to stop session", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to stop session")
		return
	}

	resp := map[string]interface{}{
		"message": "Session stopped",
	}
	if err := h.manager.LastError(); err != nil {
		resp["last_error"] = err.Error()
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// GetLive возвращает последний снапшот активной сессии
// GET /api/live
func (h *HTTPHandler) GetLive(w http.ResponseWriter, r *http.Request) {
	snap, ok, err := h.live.GetSnapshot(r.Context())
	if err != nil {
		h.logger.Error("failed to get live snapshot", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to get live snapshot")
		return
	}
	if !ok {
		h.respondError(w, http.StatusNotFound, "No live snapshot")
		return
	}

	h.respondJSON(w, http.StatusOK, snap)
}

// ListEvents возвращает последние сохраненные события
// GET /api/events?limit=50
func (h *HTTPHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit := getQueryInt(r, "limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}

	events, err := h.events.ListEvents(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list events", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}
	if events == nil {
		events = []session.Event{}
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// GetLatestBaseline возвращает последнюю сохраненную базовую линию
// GET /api/baselines/latest
func (h *HTTPHandler) GetLatestBaseline(w http.ResponseWriter, r *http.Request) {
	value, ok, err := h.events.LoadLatestBaseline(r.Context())
	if err != nil {
		h.logger.Error("failed to load baseline", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to load baseline")
		return
	}
	if !ok {
		h.respondError(w, http.StatusNotFound, "No baseline saved")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"baseline_pnn50": value,
	})
}

func (h *HTTPHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Ответ уже начат, остается только зафиксировать сбой
		h.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

func (h *HTTPHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":  message,
		"status": status,
	})
}

func getQueryInt(r *http.Request, key string, defaultValue int) int {
	valueStr := r.URL.Query().Get(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
