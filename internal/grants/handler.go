package grants

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/uvlinks/backend/internal/models"
)

// InsertGrantTxFunc enqueues a GrantTopUp job within the given transaction.
// Provided by main using river.Client.InsertTx.
type InsertGrantTxFunc func(ctx context.Context, tx pgx.Tx, args GrantTopUpArgs) error

// GrantWriter records grants inside a transaction.
type GrantWriter interface {
	CreateTx(ctx context.Context, tx pgx.Tx, g *models.TopUpGrant) error
}

// Handler receives payment-provider webhooks. The grant row and the queue
// insert commit together, so a confirmed payment is either fully scheduled
// for crediting or not recorded at all.
type Handler struct {
	pool        TxBeginner
	grants      GrantWriter
	insertGrant InsertGrantTxFunc
	secret      string
	log         *slog.Logger
}

func NewHandler(pool TxBeginner, grants GrantWriter, insertGrant InsertGrantTxFunc, secret string, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{pool: pool, grants: grants, insertGrant: insertGrant, secret: secret, log: log}
}

type topUpWebhook struct {
	UserID      string `json:"user_id"`
	Amount      int64  `json:"amount"`
	Provider    string `json:"provider"`
	ProviderRef string `json:"provider_ref"`
}

// HandleTopUp handles POST /api/webhooks/topup.
func (h *Handler) HandleTopUp(w http.ResponseWriter, r *http.Request) {
	if subtle.ConstantTimeCompare([]byte(r.Header.Get("X-Webhook-Secret")), []byte(h.secret)) != 1 {
		http.Error(w, `{"error":"invalid webhook secret"}`, http.StatusUnauthorized)
		return
	}

	var req topUpWebhook
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		http.Error(w, `{"error":"invalid user_id"}`, http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 || req.Provider == "" || req.ProviderRef == "" {
		http.Error(w, `{"error":"amount, provider and provider_ref are required"}`, http.StatusBadRequest)
		return
	}

	g := &models.TopUpGrant{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      req.Amount,
		Provider:    req.Provider,
		ProviderRef: req.ProviderRef,
		Status:      models.GrantStatusPending,
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		h.log.Error("begin grant tx", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusServiceUnavailable)
		return
	}
	defer tx.Rollback(r.Context())

	if err := h.grants.CreateTx(r.Context(), tx, g); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Replayed webhook; the first delivery already scheduled the credit.
			writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
			return
		}
		h.log.Error("record grant", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusServiceUnavailable)
		return
	}
	if err := h.insertGrant(r.Context(), tx, GrantTopUpArgs{GrantID: g.ID}); err != nil {
		h.log.Error("enqueue grant job", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusServiceUnavailable)
		return
	}
	if err := tx.Commit(r.Context()); err != nil {
		h.log.Error("commit grant tx", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"grant_id": g.ID.String(), "status": g.Status})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
