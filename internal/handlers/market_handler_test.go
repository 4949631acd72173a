package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/uvlinks/backend/internal/ledger"
	"github.com/uvlinks/backend/internal/middleware"
	"github.com/uvlinks/backend/internal/models"
	"github.com/uvlinks/backend/internal/services"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

// mockMarket returns canned results and records the last call.
type mockMarket struct {
	listing     *models.Listing
	listings    []*models.Listing
	purchase    *services.PurchaseResult
	err         error
	reviewedID  uuid.UUID
	approved    bool
	reason      string
	purchasedID uuid.UUID
	removedID   uuid.UUID
}

func (m *mockMarket) CreateListing(_ context.Context, sellerID uuid.UUID, spec services.ListingSpec) (*models.Listing, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.listing, nil
}

func (m *mockMarket) ReviewListing(_ context.Context, _, listingID uuid.UUID, approve bool, reason string) error {
	m.reviewedID = listingID
	m.approved = approve
	m.reason = reason
	return m.err
}

func (m *mockMarket) Purchase(_ context.Context, _, listingID uuid.UUID) (*services.PurchaseResult, error) {
	m.purchasedID = listingID
	if m.err != nil {
		return nil, m.err
	}
	return m.purchase, nil
}

func (m *mockMarket) RemoveListing(_ context.Context, _, listingID uuid.UUID) error {
	m.removedID = listingID
	return m.err
}

func (m *mockMarket) BrowseApproved(context.Context) ([]*models.Listing, error) {
	return m.listings, m.err
}

func (m *mockMarket) PendingQueue(context.Context) ([]*models.Listing, error) {
	return m.listings, m.err
}

func (m *mockMarket) GetListing(_ context.Context, id uuid.UUID) (*models.Listing, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.listing, nil
}

func newMarketHandler(m *mockMarket) *MarketHandler {
	return &MarketHandler{Market: m, Logger: slog.Default()}
}

// =====================================================================
// POST /api/market/listings
// =====================================================================

func TestCreateListingHandler(t *testing.T) {
	listing := &models.Listing{ID: uuid.New(), Name: "Gold Badge", Status: models.ListingStatusPending}
	h := newMarketHandler(&mockMarket{listing: listing})

	body := `{"item_type":"badge","sale_type":"unlimited","price":50,"name":"Gold Badge"}`
	req := httptest.NewRequest(http.MethodPost, "/api/market/listings", strings.NewReader(body))
	req = injectSession(req, uuid.New(), "user")
	rec := httptest.NewRecorder()

	h.CreateListing(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var got models.Listing
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != models.ListingStatusPending {
		t.Errorf("new listing status: got %q, want pending", got.Status)
	}
}

func TestCreateListingHandler_InvalidSpec(t *testing.T) {
	h := newMarketHandler(&mockMarket{err: services.ErrInvalidListingSpec})

	body := `{"item_type":"weapon","sale_type":"unlimited","price":50,"name":"x"}`
	req := httptest.NewRequest(http.MethodPost, "/api/market/listings", strings.NewReader(body))
	req = injectSession(req, uuid.New(), "user")
	rec := httptest.NewRecorder()

	h.CreateListing(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateListingHandler_NoSession(t *testing.T) {
	h := newMarketHandler(&mockMarket{})

	req := httptest.NewRequest(http.MethodPost, "/api/market/listings", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	h.CreateListing(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

// =====================================================================
// POST /api/market/listings/{id}/review
// =====================================================================

func TestReviewListingHandler_Deny(t *testing.T) {
	m := &mockMarket{}
	h := newMarketHandler(m)

	id := uuid.New()
	body := `{"approve":false,"reason":"copyright violation"}`
	req := httptest.NewRequest(http.MethodPost, "/api/market/listings/"+id.String()+"/review", strings.NewReader(body))
	req.SetPathValue("id", id.String())
	req = injectSession(req, uuid.New(), middleware.RoleModerator)
	rec := httptest.NewRecorder()

	h.ReviewListing(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if m.reviewedID != id || m.approved || m.reason != "copyright violation" {
		t.Errorf("review call: got id=%s approve=%v reason=%q", m.reviewedID, m.approved, m.reason)
	}
}

func TestReviewListingHandler_NotPending(t *testing.T) {
	h := newMarketHandler(&mockMarket{err: services.ErrNotPending})

	id := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/market/listings/"+id.String()+"/review", strings.NewReader(`{"approve":true}`))
	req.SetPathValue("id", id.String())
	req = injectSession(req, uuid.New(), middleware.RoleModerator)
	rec := httptest.NewRecorder()

	h.ReviewListing(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

// =====================================================================
// POST /api/market/listings/{id}/purchase
// =====================================================================

func TestPurchaseHandler(t *testing.T) {
	id := uuid.New()
	m := &mockMarket{purchase: &services.PurchaseResult{
		Purchase:      &models.Purchase{ID: uuid.New(), ListingID: id, PricePaid: 50},
		NewBalance:    450,
		ListingStatus: models.ListingStatusApproved,
	}}
	h := newMarketHandler(m)

	req := httptest.NewRequest(http.MethodPost, "/api/market/listings/"+id.String()+"/purchase", nil)
	req.SetPathValue("id", id.String())
	req = injectSession(req, uuid.New(), "user")
	rec := httptest.NewRecorder()

	h.PurchaseListing(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp services.PurchaseResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.NewBalance != 450 {
		t.Errorf("new balance: got %d, want 450", resp.NewBalance)
	}
	if m.purchasedID != id {
		t.Errorf("purchase called with %s, want %s", m.purchasedID, id)
	}
}

func TestPurchaseHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"sold out", services.ErrSoldOut, http.StatusConflict},
		{"not approved", services.ErrNotApproved, http.StatusConflict},
		{"self purchase", services.ErrSelfPurchase, http.StatusBadRequest},
		{"insufficient funds", ledger.ErrInsufficientFunds, http.StatusPaymentRequired},
		{"not found", services.ErrListingNotFound, http.StatusNotFound},
		{"unavailable", services.ErrUnavailable, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newMarketHandler(&mockMarket{err: tt.err})

			id := uuid.New()
			req := httptest.NewRequest(http.MethodPost, "/api/market/listings/"+id.String()+"/purchase", nil)
			req.SetPathValue("id", id.String())
			req = injectSession(req, uuid.New(), "user")
			rec := httptest.NewRecorder()

			h.PurchaseListing(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestPurchaseHandler_BadID(t *testing.T) {
	h := newMarketHandler(&mockMarket{})

	req := httptest.NewRequest(http.MethodPost, "/api/market/listings/not-a-uuid/purchase", nil)
	req.SetPathValue("id", "not-a-uuid")
	req = injectSession(req, uuid.New(), "user")
	rec := httptest.NewRecorder()

	h.PurchaseListing(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

// =====================================================================
// GET /api/market/listings
// =====================================================================

func TestBrowseListings(t *testing.T) {
	h := newMarketHandler(&mockMarket{listings: []*models.Listing{
		{ID: uuid.New(), Name: "A", Status: models.ListingStatusApproved},
		{ID: uuid.New(), Name: "B", Status: models.ListingStatusApproved},
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/market/listings", nil)
	rec := httptest.NewRecorder()

	h.BrowseListings(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Listings []*models.Listing `json:"listings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Listings) != 2 {
		t.Errorf("expected 2 listings, got %d", len(resp.Listings))
	}
}

// =====================================================================
// DELETE /api/market/listings/{id}
// =====================================================================

func TestRemoveListingHandler_NotFound(t *testing.T) {
	h := newMarketHandler(&mockMarket{err: services.ErrListingNotFound})

	id := uuid.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/market/listings/"+id.String(), nil)
	req.SetPathValue("id", id.String())
	req = injectSession(req, uuid.New(), "user")
	rec := httptest.NewRecorder()

	h.RemoveListing(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}
