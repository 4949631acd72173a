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
	"github.com/uvlinks/backend/internal/services"
)

// Marketplace is the subset of the marketplace service the handler needs.
type Marketplace interface {
	CreateListing(ctx context.Context, sellerID uuid.UUID, spec services.ListingSpec) (*models.Listing, error)
	ReviewListing(ctx context.Context, moderatorID, listingID uuid.UUID, approve bool, reason string) error
	Purchase(ctx context.Context, buyerID, listingID uuid.UUID) (*services.PurchaseResult, error)
	RemoveListing(ctx context.Context, sellerID, listingID uuid.UUID) error
	BrowseApproved(ctx context.Context) ([]*models.Listing, error)
	PendingQueue(ctx context.Context) ([]*models.Listing, error)
	GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

// MarketHandler serves the /api/market endpoints.
type MarketHandler struct {
	Market Marketplace
	Logger *slog.Logger
}

// CreateListing handles POST /api/market/listings.
func (h *MarketHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var spec services.ListingSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	listing, err := h.Market.CreateListing(r.Context(), sess.UserID, spec)
	if err != nil {
		if errors.Is(err, services.ErrInvalidListingSpec) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.Logger.Error("create listing", "seller_id", sess.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, listing)
}

// BrowseListings handles GET /api/market/listings — the public storefront.
func (h *MarketHandler) BrowseListings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.Market.BrowseApproved(r.Context())
	if err != nil {
		h.Logger.Error("browse listings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"listings": listings})
}

// GetListing handles GET /api/market/listings/{id}.
func (h *MarketHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid listing id")
		return
	}

	listing, err := h.Market.GetListing(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrListingNotFound) {
			writeError(w, http.StatusNotFound, "listing not found")
			return
		}
		h.Logger.Error("get listing", "listing_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, listing)
}

// PendingListings handles GET /api/market/moderation/pending (moderator only).
func (h *MarketHandler) PendingListings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.Market.PendingQueue(r.Context())
	if err != nil {
		h.Logger.Error("pending queue", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"listings": listings})
}

type reviewRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason,omitempty"`
}

// ReviewListing handles POST /api/market/listings/{id}/review (moderator only).
func (h *MarketHandler) ReviewListing(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid listing id")
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	err := h.Market.ReviewListing(r.Context(), sess.UserID, id, req.Approve, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrListingNotFound):
			writeError(w, http.StatusNotFound, "listing not found")
		case errors.Is(err, services.ErrNotPending):
			writeError(w, http.StatusConflict, "listing is not pending review")
		case errors.Is(err, services.ErrReasonRequired):
			writeError(w, http.StatusBadRequest, "denial reason is required")
		default:
			h.Logger.Error("review listing", "listing_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	status := "approved"
	if !req.Approve {
		status = "denied"
	}
	writeJSON(w, http.StatusOK, map[string]string{"listing_id": id.String(), "status": status})
}

// PurchaseListing handles POST /api/market/listings/{id}/purchase.
func (h *MarketHandler) PurchaseListing(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid listing id")
		return
	}

	result, err := h.Market.Purchase(r.Context(), sess.UserID, id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrListingNotFound):
			writeError(w, http.StatusNotFound, "listing not found")
		case errors.Is(err, services.ErrSoldOut):
			writeError(w, http.StatusConflict, "listing is sold out")
		case errors.Is(err, services.ErrNotApproved):
			writeError(w, http.StatusConflict, "listing is not purchasable")
		case errors.Is(err, services.ErrSelfPurchase):
			writeError(w, http.StatusBadRequest, "cannot purchase your own listing")
		case errors.Is(err, ledger.ErrInsufficientFunds):
			writeError(w, http.StatusPaymentRequired, "insufficient funds")
		case errors.Is(err, services.ErrUnavailable):
			h.Logger.Error("purchase unavailable", "listing_id", id, "error", err)
			writeError(w, http.StatusServiceUnavailable, "try again later")
		default:
			h.Logger.Error("purchase", "listing_id", id, "buyer_id", sess.UserID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// RemoveListing handles DELETE /api/market/listings/{id}.
func (h *MarketHandler) RemoveListing(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid listing id")
		return
	}

	err := h.Market.RemoveListing(r.Context(), sess.UserID, id)
	if err != nil {
		// The conditional update covers ownership and status, so any miss
		// surfaces as not-found rather than leaking whose listing it is.
		if errors.Is(err, services.ErrListingNotFound) {
			writeError(w, http.StatusNotFound, "listing not found")
			return
		}
		h.Logger.Error("remove listing", "listing_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"listing_id": id.String(), "status": models.ListingStatusRemoved})
}
