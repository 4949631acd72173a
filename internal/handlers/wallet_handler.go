package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/uvlinks/backend/internal/ledger"
	"github.com/uvlinks/backend/internal/middleware"
)

// WalletHandler serves the /api/wallet endpoints.
type WalletHandler struct {
	Ledger ledger.Service
	Logger *slog.Logger
}

type balanceResponse struct {
	UserID      string `json:"user_id"`
	Balance     int64  `json:"balance"`
	TotalEarned int64  `json:"total_earned"`
	TotalSpent  int64  `json:"total_spent"`
}

// GetBalance handles GET /api/wallet/balance.
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	acc, err := h.Ledger.GetAccount(r.Context(), sess.UserID)
	if err != nil {
		h.Logger.Error("get account", "user_id", sess.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{
		UserID:      acc.UserID.String(),
		Balance:     acc.Balance,
		TotalEarned: acc.TotalEarned,
		TotalSpent:  acc.TotalSpent,
	})
}

// GetHistory handles GET /api/wallet/history?limit=N.
func (h *WalletHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := h.Ledger.History(r.Context(), sess.UserID, limit)
	if err != nil {
		h.Logger.Error("ledger history", "user_id", sess.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
