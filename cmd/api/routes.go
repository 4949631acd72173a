package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uvlinks/backend/internal/auth"
	"github.com/uvlinks/backend/internal/grants"
	"github.com/uvlinks/backend/internal/handlers"
	"github.com/uvlinks/backend/internal/ledger"
	"github.com/uvlinks/backend/internal/repository"
	"github.com/uvlinks/backend/internal/router"
	"github.com/uvlinks/backend/internal/services"
)

// buildAPI wires repositories, services, and handlers and returns the /api
// handler plus the pieces main needs for the background worker.
func buildAPI(pool *pgxpool.Pool, insertGrant grants.InsertGrantTxFunc, logger *slog.Logger) (http.Handler, *repository.GrantRepo, ledger.Service) {
	ledgerRepo := ledger.NewRepository(pool)
	ledgerSvc := ledger.NewService(ledgerRepo)

	listingRepo := repository.NewListingRepo(pool)
	purchaseRepo := repository.NewPurchaseRepo(pool)
	caseRepo := repository.NewCaseRepo(pool)
	inventoryRepo := repository.NewInventoryRepo(pool)
	grantRepo := repository.NewGrantRepo(pool)

	marketSvc := services.NewMarketplaceService(pool, listingRepo, purchaseRepo, ledgerSvc, logger)
	caseSvc := services.NewCaseService(pool, caseRepo, inventoryRepo, ledgerSvc, nil, logger)
	inventorySvc := services.NewInventoryService(pool, inventoryRepo, ledgerSvc, logger)

	authRepo := auth.NewRepository(pool)
	authSvc := auth.NewService(authRepo, ledgerSvc)

	webhookSecret := os.Getenv("WEBHOOK_SECRET")
	if webhookSecret == "" {
		logger.Warn("WEBHOOK_SECRET not set, top-up webhook uses dev secret")
		webhookSecret = "devwebhooksecret"
	}

	h := router.Handlers{
		Auth:      auth.NewHandler(authSvc, logger),
		Wallet:    &handlers.WalletHandler{Ledger: ledgerSvc, Logger: logger},
		Market:    &handlers.MarketHandler{Market: marketSvc, Logger: logger},
		Cases:     &handlers.CaseHandler{Cases: caseSvc, Logger: logger},
		Inventory: &handlers.InventoryHandler{Inventory: inventorySvc, Logger: logger},
		TopUp:     grants.NewHandler(pool, grantRepo, insertGrant, webhookSecret, logger),
	}

	return router.New(h, authSvc), grantRepo, ledgerSvc
}
