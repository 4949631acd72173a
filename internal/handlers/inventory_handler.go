package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/uvlinks/backend/internal/middleware"
	"github.com/uvlinks/backend/internal/models"
	"github.com/uvlinks/backend/internal/services"
)

// Inventory is the subset of the inventory service the handler needs.
type Inventory interface {
	ListInventory(ctx context.Context, userID uuid.UUID) ([]*models.InventoryItem, error)
	SellItems(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) (*services.SellResult, error)
	SellAll(ctx context.Context, userID uuid.UUID) (*services.SellResult, error)
}

// InventoryHandler serves the /api/inventory endpoints.
type InventoryHandler struct {
	Inventory Inventory
	Logger    *slog.Logger
}

// ListInventory handles GET /api/inventory.
func (h *InventoryHandler) ListInventory(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	items, err := h.Inventory.ListInventory(r.Context(), sess.UserID)
	if err != nil {
		h.Logger.Error("list inventory", "user_id", sess.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

type sellRequest struct {
	ItemIDs []string `json:"item_ids"`
}

// SellItems handles POST /api/inventory/sell.
func (h *InventoryHandler) SellItems(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req sellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	ids := make([]uuid.UUID, 0, len(req.ItemIDs))
	for _, raw := range req.ItemIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid item id: "+raw)
			return
		}
		ids = append(ids, id)
	}

	result, err := h.Inventory.SellItems(r.Context(), sess.UserID, ids)
	if err != nil {
		h.sellError(w, sess.UserID, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// SellAll handles POST /api/inventory/sell-all.
func (h *InventoryHandler) SellAll(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	result, err := h.Inventory.SellAll(r.Context(), sess.UserID)
	if err != nil {
		h.sellError(w, sess.UserID, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *InventoryHandler) sellError(w http.ResponseWriter, userID uuid.UUID, err error) {
	switch {
	case errors.Is(err, services.ErrEmptySelection):
		writeError(w, http.StatusBadRequest, "nothing to sell")
	case errors.Is(err, services.ErrNotOwner):
		writeError(w, http.StatusForbidden, "selection includes items you do not own")
	case errors.Is(err, services.ErrUnavailable):
		h.Logger.Error("sell unavailable", "user_id", userID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "try again later")
	default:
		h.Logger.Error("sell items", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
