package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/uvlinks/backend/internal/ledger"
	"github.com/uvlinks/backend/internal/models"
)

// MaxMultiOpen caps how many draws one multi-open may request.
const MaxMultiOpen = 10

// CaseCatalogRepo is the case repository interface used by the case engine.
type CaseCatalogRepo interface {
	Create(ctx context.Context, c *models.Case) error
	ReplaceItems(ctx context.Context, c *models.Case) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Case, error)
	List(ctx context.Context) ([]*models.Case, error)
	CreateTransactionTx(ctx context.Context, tx pgx.Tx, ct *models.CaseTransaction) error
}

// CaseInventoryRepo issues won items into user inventories.
type CaseInventoryRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, it *models.InventoryItem) error
}

// DrawFunc returns a uniform random int in [0, n). Injected so the drop-rate
// tests can run against a fixed sequence.
type DrawFunc func(n int) int

// CaseService owns the case catalog and the opening algorithm. Fairness is a
// property of the drop-rate table; the generator only needs to be
// statistically uniform, not unpredictable.
type CaseService struct {
	pool      TxBeginner
	cases     CaseCatalogRepo
	inventory CaseInventoryRepo
	ledger    ledger.Service
	draw      DrawFunc
	log       *slog.Logger
}

func NewCaseService(pool TxBeginner, cases CaseCatalogRepo, inventory CaseInventoryRepo, ledgerSvc ledger.Service, draw DrawFunc, log *slog.Logger) *CaseService {
	if draw == nil {
		draw = rand.IntN
	}
	if log == nil {
		log = slog.Default()
	}
	return &CaseService{pool: pool, cases: cases, inventory: inventory, ledger: ledgerSvc, draw: draw, log: log}
}

// CreateCase validates the drop table and stores the case with its pool.
func (s *CaseService) CreateCase(ctx context.Context, c *models.Case) error {
	if c.Name == "" || c.Price < 1 {
		return fmt.Errorf("%w: case needs a name and a positive price", ErrInvalidDropTable)
	}
	if err := ValidateDropTable(c.Items); err != nil {
		return err
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	for i := range c.Items {
		c.Items[i].SortOrder = i
	}
	if err := s.cases.Create(ctx, c); err != nil {
		return markUnavailable("create case", err)
	}
	return nil
}

// UpdateCase replaces the case's pool and price after revalidating the table.
func (s *CaseService) UpdateCase(ctx context.Context, c *models.Case) error {
	if err := ValidateDropTable(c.Items); err != nil {
		return err
	}
	for i := range c.Items {
		c.Items[i].SortOrder = i
	}
	if err := s.cases.ReplaceItems(ctx, c); err != nil {
		return err
	}
	return nil
}

// ValidateDropTable enforces the authoring-time invariant: every entry has a
// positive rate and the pool sums to exactly 100% (10000 bp). There is no
// implicit "nothing" outcome.
func ValidateDropTable(items []models.CaseItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: pool is empty", ErrInvalidDropTable)
	}
	sum := 0
	for _, it := range items {
		if it.DropRateBP <= 0 {
			return fmt.Errorf("%w: drop rate must be positive", ErrInvalidDropTable)
		}
		switch it.ItemType {
		case models.CaseItemTypeBadge, models.CaseItemTypeCoins:
		default:
			return fmt.Errorf("%w: unknown item_type %q", ErrInvalidDropTable, it.ItemType)
		}
		switch it.Rarity {
		case models.RarityCommon, models.RarityRare, models.RarityEpic, models.RarityLegendary, models.RarityPremium:
		default:
			return fmt.Errorf("%w: unknown rarity %q", ErrInvalidDropTable, it.Rarity)
		}
		if it.DisplayValue < 1 {
			return fmt.Errorf("%w: display value must be positive", ErrInvalidDropTable)
		}
		sum += it.DropRateBP
	}
	if sum != models.DropRateScale {
		return fmt.Errorf("%w: drop rates sum to %d bp, want %d", ErrInvalidDropTable, sum, models.DropRateScale)
	}
	return nil
}

// pickCaseItem walks the pool in its fixed order accumulating drop rates; the
// first entry whose cumulative sum exceeds r wins. r must be in [0, scale).
func pickCaseItem(items []models.CaseItem, r int) *models.CaseItem {
	cum := 0
	for i := range items {
		cum += items[i].DropRateBP
		if r < cum {
			return &items[i]
		}
	}
	// Unreachable for a valid table; guard against a stale pool row.
	return &items[len(items)-1]
}

// OpenResult is returned on a successful case open.
type OpenResult struct {
	Items       []*models.InventoryItem `json:"items"`
	NewBalance  int64                   `json:"new_balance"`
	Transaction *models.CaseTransaction `json:"transaction"`
}

// OpenCase debits the case price, draws count items from the weighted pool,
// and issues them into the user's inventory, all in one transaction. Either
// the debit, the draws, and the inventory writes all commit, or none do.
func (s *CaseService) OpenCase(ctx context.Context, userID, caseID uuid.UUID, count int) (*OpenResult, error) {
	if count < 1 || count > MaxMultiOpen {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", ErrInvalidOpenCount, MaxMultiOpen)
	}
	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, fmt.Errorf("%w: case %s has no pool", ErrInvalidDropTable, caseID)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, markUnavailable("begin open", err)
	}
	defer tx.Rollback(ctx)

	ref := c.ID
	total := c.Price * int64(count)
	newBalance, err := s.ledger.Debit(ctx, tx, userID, total, models.LedgerKindSpend, "case opening: "+c.Name, &ref, models.ReferenceTypeCase)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return nil, ledger.ErrInsufficientFunds
		}
		return nil, markUnavailable("debit opener", err)
	}

	won := make([]*models.InventoryItem, 0, count)
	var totalValue int64
	for i := 0; i < count; i++ {
		item := pickCaseItem(c.Items, s.draw(models.DropRateScale))
		inv := &models.InventoryItem{
			ID:             uuid.New(),
			OwnerID:        userID,
			SourceCaseID:   c.ID,
			ItemType:       item.ItemType,
			Rarity:         item.Rarity,
			Name:           caseItemName(item),
			EstimatedValue: item.DisplayValue,
		}
		if err := s.inventory.CreateTx(ctx, tx, inv); err != nil {
			return nil, markUnavailable("issue item", err)
		}
		won = append(won, inv)
		totalValue += item.DisplayValue
	}

	snapshot, err := json.Marshal(won)
	if err != nil {
		return nil, fmt.Errorf("snapshot items: %w", err)
	}
	txType := models.CaseTxOpen
	if count > 1 {
		txType = models.CaseTxMultiOpen
	}
	ct := &models.CaseTransaction{
		ID:              uuid.New(),
		CaseID:          c.ID,
		UserID:          userID,
		ItemsWon:        snapshot,
		TotalValue:      totalValue,
		TransactionType: txType,
	}
	if err := s.cases.CreateTransactionTx(ctx, tx, ct); err != nil {
		return nil, markUnavailable("record case transaction", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, markUnavailable("commit open", err)
	}

	s.log.Info("case opened", "case_id", caseID, "user_id", userID, "count", count, "total_value", totalValue)
	return &OpenResult{Items: won, NewBalance: newBalance, Transaction: ct}, nil
}

// ListCases returns the purchasable case catalog.
func (s *CaseService) ListCases(ctx context.Context) ([]*models.Case, error) {
	return s.cases.List(ctx)
}

// GetCase returns one case with its pool.
func (s *CaseService) GetCase(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	return s.cases.GetByID(ctx, id)
}

func caseItemName(it *models.CaseItem) string {
	if it.ItemType == models.CaseItemTypeCoins {
		return fmt.Sprintf("%d UV", it.CoinAmount)
	}
	return it.BadgeName
}
