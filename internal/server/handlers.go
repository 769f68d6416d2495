package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/devansh/coview/backend/internal/domain"
	"github.com/devansh/coview/backend/internal/service"
)

// APIHandlers exposes HTTP handlers for the recommendation read API.
type APIHandlers struct {
	logger  *slog.Logger
	service *service.RecommendationService
	runner  *service.BuildRunner
}

// NewAPIHandlers constructs an APIHandlers instance. runner may be nil when
// the serving process has no co-located builder.
func NewAPIHandlers(logger *slog.Logger, svc *service.RecommendationService, runner *service.BuildRunner) *APIHandlers {
	return &APIHandlers{
		logger:  logger,
		service: svc,
		runner:  runner,
	}
}

type entryResponse struct {
	ProductID int64 `json:"productId"`
	Count     int64 `json:"count"`
}

type entriesEnvelope struct {
	Data []entryResponse `json:"data"`
}

type entryEnvelope struct {
	Data *entryResponse `json:"data"`
}

type viewEventResponse struct {
	UserID    string `json:"userId"`
	ProductID int64  `json:"productId"`
	ViewedAt  string `json:"viewedAt"`
}

type viewEventEnvelope struct {
	Data *viewEventResponse `json:"data"`
}

type whoViewBoughtRequest struct {
	Product *int64 `json:"product"`
	Limit   int    `json:"limit"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *APIHandlers) handleWhoViewAlsoView(w http.ResponseWriter, r *http.Request) {
	productID, err := optionalIDParam(r, "product")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product")
		return
	}
	categoryRaw, err := optionalIDParam(r, "category")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category")
		return
	}

	var product *domain.ProductID
	if productID != nil {
		p := domain.ProductID(*productID)
		product = &p
	}
	var category *domain.CategoryID
	if categoryRaw != nil {
		c := domain.CategoryID(*categoryRaw)
		category = &c
	}

	entries, err := h.service.WhoViewAlsoView(r.Context(), product, category)
	if err != nil {
		h.respondServiceError(w, r, err, "failed to fetch recommendations")
		return
	}

	resp := entriesEnvelope{Data: make([]entryResponse, 0, len(entries))}
	for _, entry := range entries {
		resp.Data = append(resp.Data, entryResponse{
			ProductID: int64(entry.ProductID),
			Count:     entry.Count,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) handleWhoViewBought(w http.ResponseWriter, r *http.Request) {
	var payload whoViewBoughtRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var product *domain.ProductID
	if payload.Product != nil {
		p := domain.ProductID(*payload.Product)
		product = &p
	}

	entry, err := h.service.WhoViewBought(r.Context(), service.WhoViewBoughtInput{
		ProductID: product,
		Limit:     payload.Limit,
	})
	if err != nil {
		h.respondServiceError(w, r, err, "failed to fetch who-view-bought recommendation")
		return
	}

	var resp entryEnvelope
	if entry != nil {
		resp.Data = &entryResponse{
			ProductID: int64(entry.ProductID),
			Count:     entry.Count,
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) handleLastView(w http.ResponseWriter, r *http.Request) {
	event, err := h.service.LastView(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err, "failed to fetch last view")
		return
	}

	var resp viewEventEnvelope
	if event != nil {
		resp.Data = &viewEventResponse{
			UserID:    event.UserID,
			ProductID: int64(event.ProductID),
			ViewedAt:  event.ViewedAt.UTC().Format(time.RFC3339),
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		writeError(w, http.StatusNotFound, "rebuild is not available on this instance")
		return
	}
	// The build runs detached from the request context.
	if err := h.runner.Start(); err != nil {
		if errors.Is(err, service.ErrBuildInProgress) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("failed to start rebuild", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start rebuild")
		return
	}
	respondJSON(w, http.StatusAccepted, statusResponse{Status: "started"})
}

// respondServiceError maps service failures onto the API error contract:
// validation problems are the client's fault, anything else is a generic
// server error and the underlying query detail stays in the logs.
func (h *APIHandlers) respondServiceError(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, service.ErrProductRequired),
		errors.Is(err, service.ErrCategoryRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(message, "error", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, message)
	}
}

func optionalIDParam(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return nil, fmt.Errorf("invalid %s %q", name, raw)
	}
	return &id, nil
}

func decodeJSON(r *http.Request, dst any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	decoder := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
