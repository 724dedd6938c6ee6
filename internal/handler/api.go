package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/folklore/luck-server-go/internal/audit"
	apperrors "github.com/folklore/luck-server-go/internal/errors"
	"github.com/folklore/luck-server-go/internal/service"
)

type APIHandler struct {
	luckService  *service.LuckService
	statsService *service.StatsService
}

func NewAPIHandler(luckService *service.LuckService, statsService *service.StatsService) *APIHandler {
	return &APIHandler{
		luckService:  luckService,
		statsService: statsService,
	}
}

// Routes mounts under /api. recordMiddlewares wrap POST /record only.
func (h *APIHandler) Routes(recordMiddlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.NotFound(NotFound)
	r.MethodNotAllowed(NotFound)

	r.Get("/stats", h.Stats)
	r.Get("/luck", h.Luck)
	r.Get("/history", h.History)
	r.With(recordMiddlewares...).Post("/record", h.Record)

	return r
}

type recordRequest struct {
	Superstition string          `json:"superstition"`
	Outcome      string          `json:"outcome"`
	LuckChange   json.RawMessage `json:"luck_change"`
	SessionID    string          `json:"session_id"`
}

// POST /api/record
func (h *APIHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := decodeJSONBody(r.Body, &req); err != nil {
		writeError(w, err)
		return
	}

	luckChange, err := parseLuckChange(req.LuckChange)
	if err != nil {
		writeError(w, err)
		return
	}

	params := service.RecordParams{
		Superstition: req.Superstition,
		Outcome:      req.Outcome,
		LuckChange:   luckChange,
		SessionID:    req.SessionID,
	}

	result, err := h.luckService.Record(r.Context(), params)
	if err != nil {
		if apperrors.GetCode(err) == apperrors.ErrCodeDatabase {
			log.Error().Err(err).Str("sessionId", req.SessionID).Msg("failed to record interaction")
		}
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:      audit.EventInteractionRecorded,
		SessionID: params.SessionID,
		Details: map[string]interface{}{
			"superstition": params.Superstition,
			"outcome":      params.Outcome,
			"luck_change":  params.LuckChange,
			"current_luck": result.CurrentLuck,
		},
	})

	writeJSON(w, http.StatusOK, result)
}

// GET /api/luck?session_id=
func (h *APIHandler) Luck(w http.ResponseWriter, r *http.Request) {
	result, err := h.luckService.GetLuck(r.Context(), r.URL.Query().Get("session_id"))
	if err != nil {
		logStorageError(err, "failed to get luck")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GET /api/history?session_id=
func (h *APIHandler) History(w http.ResponseWriter, r *http.Request) {
	result, err := h.luckService.GetHistory(r.Context(), r.URL.Query().Get("session_id"))
	if err != nil {
		logStorageError(err, "failed to get history")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GET /api/stats
func (h *APIHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.Compute(r.Context())
	if err != nil {
		logStorageError(err, "failed to compute stats")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func logStorageError(err error, msg string) {
	if apperrors.GetCode(err) == apperrors.ErrCodeDatabase {
		log.Error().Err(err).Msg(msg)
	}
}

// decodeJSONBody accepts exactly one JSON value. Anything after it makes the
// whole body invalid.
func decodeJSONBody(body io.Reader, dst any) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return apperrors.PayloadTooLarge()
		}
		return apperrors.InvalidJSON()
	}
	return nil
}

func decodeError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return apperrors.PayloadTooLarge()
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return apperrors.InvalidInput(typeErr.Field, "must be a string")
	}

	return apperrors.InvalidJSON()
}

// parseLuckChange treats an absent or null value as 0 and rejects anything
// that is not a JSON integer.
func parseLuckChange(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}

	var v int64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, apperrors.InvalidInput("luck_change", "must be an integer")
	}
	return v, nil
}
