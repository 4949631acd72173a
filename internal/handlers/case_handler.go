package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/uvlinks/backend/internal/ledger"
	"github.com/uvlinks/backend/internal/middleware"
	"github.com/uvlinks/backend/internal/models"
	"github.com/uvlinks/backend/internal/repository"
	"github.com/uvlinks/backend/internal/services"
)

// CaseOpener is the subset of the case service the handler needs.
type CaseOpener interface {
	CreateCase(ctx context.Context, c *models.Case) error
	UpdateCase(ctx context.Context, c *models.Case) error
	OpenCase(ctx context.Context, userID, caseID uuid.UUID, count int) (*services.OpenResult, error)
	ListCases(ctx context.Context) ([]*models.Case, error)
	GetCase(ctx context.Context, id uuid.UUID) (*models.Case, error)
}

// CaseHandler serves the /api/cases endpoints.
type CaseHandler struct {
	Cases  CaseOpener
	Logger *slog.Logger
}

// ListCases handles GET /api/cases.
func (h *CaseHandler) ListCases(w http.ResponseWriter, r *http.Request) {
	cases, err := h.Cases.ListCases(r.Context())
	if err != nil {
		h.Logger.Error("list cases", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cases": cases})
}

// GetCase handles GET /api/cases/{id}.
func (h *CaseHandler) GetCase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid case id")
		return
	}

	c, err := h.Cases.GetCase(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrCaseNotFound) {
			writeError(w, http.StatusNotFound, "case not found")
			return
		}
		h.Logger.Error("get case", "case_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, c)
}

type caseRequest struct {
	Name  string            `json:"name"`
	Price int64             `json:"price"`
	Items []models.CaseItem `json:"items"`
}

// CreateCase handles POST /api/cases (moderator only).
func (h *CaseHandler) CreateCase(w http.ResponseWriter, r *http.Request) {
	var req caseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	c := &models.Case{Name: req.Name, Price: req.Price, Items: req.Items}
	if err := h.Cases.CreateCase(r.Context(), c); err != nil {
		if errors.Is(err, services.ErrInvalidDropTable) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.Logger.Error("create case", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// UpdateCase handles PUT /api/cases/{id} (moderator only).
func (h *CaseHandler) UpdateCase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid case id")
		return
	}

	var req caseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	c := &models.Case{ID: id, Name: req.Name, Price: req.Price, Items: req.Items}
	if err := h.Cases.UpdateCase(r.Context(), c); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidDropTable):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrCaseNotFound):
			writeError(w, http.StatusNotFound, "case not found")
		default:
			h.Logger.Error("update case", "case_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, c)
}

type openCaseRequest struct {
	Count int `json:"count"`
}

// OpenCase handles POST /api/cases/{id}/open.
func (h *CaseHandler) OpenCase(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid case id")
		return
	}

	req := openCaseRequest{Count: 1}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	result, err := h.Cases.OpenCase(r.Context(), sess.UserID, id, req.Count)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidOpenCount):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrCaseNotFound):
			writeError(w, http.StatusNotFound, "case not found")
		case errors.Is(err, ledger.ErrInsufficientFunds):
			writeError(w, http.StatusPaymentRequired, "insufficient funds")
		case errors.Is(err, services.ErrUnavailable):
			h.Logger.Error("open case unavailable", "case_id", id, "error", err)
			writeError(w, http.StatusServiceUnavailable, "try again later")
		default:
			h.Logger.Error("open case", "case_id", id, "user_id", sess.UserID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}
