package router

import (
	"net/http"

	"github.com/uvlinks/backend/internal/auth"
	"github.com/uvlinks/backend/internal/grants"
	"github.com/uvlinks/backend/internal/handlers"
	"github.com/uvlinks/backend/internal/middleware"
)

// Handlers bundles everything the API router mounts.
type Handlers struct {
	Auth      *auth.Handler
	Wallet    *handlers.WalletHandler
	Market    *handlers.MarketHandler
	Cases     *handlers.CaseHandler
	Inventory *handlers.InventoryHandler
	TopUp     *grants.Handler
}

// New returns the http.Handler serving the /api surface.
// Route groups: public (auth, storefront), session-authenticated
// (wallet, purchases, cases, inventory), and moderator-only (review
// queue, case authoring). The top-up webhook authenticates with a
// shared secret instead of a session.
func New(h Handlers, validator middleware.TokenValidator) http.Handler {
	mux := http.NewServeMux()
	authed := middleware.SessionAuth(validator)
	mod := func(next http.Handler) http.Handler { return authed(middleware.RequireModerator(next)) }

	// Public.
	mux.HandleFunc("POST /api/auth/register", h.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	mux.HandleFunc("GET /api/market/listings", h.Market.BrowseListings)
	mux.HandleFunc("GET /api/market/listings/{id}", h.Market.GetListing)
	mux.HandleFunc("GET /api/cases", h.Cases.ListCases)
	mux.HandleFunc("GET /api/cases/{id}", h.Cases.GetCase)

	// Session required.
	mux.Handle("GET /api/wallet/balance", authed(http.HandlerFunc(h.Wallet.GetBalance)))
	mux.Handle("GET /api/wallet/history", authed(http.HandlerFunc(h.Wallet.GetHistory)))
	mux.Handle("POST /api/market/listings", authed(http.HandlerFunc(h.Market.CreateListing)))
	mux.Handle("POST /api/market/listings/{id}/purchase", authed(http.HandlerFunc(h.Market.PurchaseListing)))
	mux.Handle("DELETE /api/market/listings/{id}", authed(http.HandlerFunc(h.Market.RemoveListing)))
	mux.Handle("POST /api/cases/{id}/open", authed(http.HandlerFunc(h.Cases.OpenCase)))
	mux.Handle("GET /api/inventory", authed(http.HandlerFunc(h.Inventory.ListInventory)))
	mux.Handle("POST /api/inventory/sell", authed(http.HandlerFunc(h.Inventory.SellItems)))
	mux.Handle("POST /api/inventory/sell-all", authed(http.HandlerFunc(h.Inventory.SellAll)))

	// Moderator only.
	mux.Handle("GET /api/market/moderation/pending", mod(http.HandlerFunc(h.Market.PendingListings)))
	mux.Handle("POST /api/market/listings/{id}/review", mod(http.HandlerFunc(h.Market.ReviewListing)))
	mux.Handle("POST /api/cases", mod(http.HandlerFunc(h.Cases.CreateCase)))
	mux.Handle("PUT /api/cases/{id}", mod(http.HandlerFunc(h.Cases.UpdateCase)))

	// Payment provider webhook, shared-secret auth.
	mux.HandleFunc("POST /api/webhooks/topup", h.TopUp.HandleTopUp)

	return mux
}
