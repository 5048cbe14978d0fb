// AccountModel provides data access methods for listed game accounts,
// including the conditional availability flips the purchase lifecycle
// depends on and the keyset-paginated listing query.
package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/playvault/marketplace-backend/internal/db"
	"github.com/playvault/marketplace-backend/internal/entities"
	"github.com/playvault/marketplace-backend/internal/metrics"
	"github.com/playvault/marketplace-backend/internal/utils"
)

const accountColumns = `id, seller_id, game, title, description, level_rank, amount_cents, image_urls, credentials, approval_status, available, buyer_id, sold_at, created_at`

type AccountModel struct {
	DB             db.ConnectionPool
	MetricsService metrics.MetricsService
}

func (m *AccountModel) Insert(ctx context.Context, account *entities.Account) (*entities.Account, error) {
	query := fmt.Sprintf(`
		INSERT INTO accounts
			(id, seller_id, game, title, description, level_rank, amount_cents, image_urls, credentials)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING %s`, accountColumns)

	var inserted entities.Account
	start := time.Now()
	err := m.DB.GetContext(ctx, &inserted, query,
		account.ID, account.SellerID, account.Game, account.Title, account.Description,
		account.LevelRank, account.AmountCents, account.ImageURLs, account.Credentials)
	duration := time.Since(start).Seconds()
	m.MetricsService.ObserveDBQueryDuration("Insert", "accounts", duration)
	if err != nil {
		m.MetricsService.IncDBQueryError("Insert", "accounts", utils.GetDBErrorType(err))
		return nil, fmt.Errorf("inserting account: %w", err)
	}
	m.MetricsService.IncDBQuery("Insert", "accounts")
	return &inserted, nil
}

func (m *AccountModel) GetByID(ctx context.Context, sqlExec db.SQLExecuter, id string) (*entities.Account, error) {
	if sqlExec == nil {
		sqlExec = m.DB
	}
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE id = $1`, accountColumns)
	var account entities.Account
	start := time.Now()
	err := sqlExec.GetContext(ctx, &account, query, id)
	duration := time.Since(start).Seconds()
	m.MetricsService.ObserveDBQueryDuration("GetByID", "accounts", duration)
	if err != nil {
		m.MetricsService.IncDBQueryError("GetByID", "accounts", utils.GetDBErrorType(err))
		if err == sql.ErrNoRows {
			return nil, entities.ErrAccountNotFound
		}
		return nil, fmt.Errorf("getting account %s: %w", id, err)
	}
	m.MetricsService.IncDBQuery("GetByID", "accounts")
	return &account, nil
}

// Hold marks an approved, available account unavailable for new
// offers. Returns false when the account was already held, sold or not
// approved, making the flip conditional at the store level.
func (m *AccountModel) Hold(ctx context.Context, sqlExec db.SQLExecuter, id string) (bool, error) {
	if sqlExec == nil {
		sqlExec = m.DB
	}
	const query = `
		UPDATE accounts
		SET available = FALSE
		WHERE id = $1 AND available = TRUE AND approval_status = 'APPROVED' AND buyer_id IS NULL`
	start := time.Now()
	result, err := sqlExec.ExecContext(ctx, query, id)
	duration := time.Since(start).Seconds()
	m.MetricsService.ObserveDBQueryDuration("Hold", "accounts", duration)
	if err != nil {
		m.MetricsService.IncDBQueryError("Hold", "accounts", utils.GetDBErrorType(err))
		return false, fmt.Errorf("holding account %s: %w", id, err)
	}
	m.MetricsService.IncDBQuery("Hold", "accounts")
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected for account hold: %w", err)
	}
	return rowsAffected == 1, nil
}

// Release restores the purchasable flag on accounts whose pending
// purchase was cancelled or expired. Sold accounts are left untouched.
func (m *AccountModel) Release(ctx context.Context, sqlExec db.SQLExecuter, ids []string) error {
	if sqlExec == nil {
		sqlExec = m.DB
	}
	const query = `
		UPDATE accounts
		SET available = TRUE
		WHERE id = ANY($1) AND buyer_id IS NULL`
	start := time.Now()
	_, err := sqlExec.ExecContext(ctx, query, pq.Array(ids))
	duration := time.Since(start).Seconds()
	m.MetricsService.ObserveDBQueryDuration("Release", "accounts", duration)
	if err != nil {
		m.MetricsService.IncDBQueryError("Release", "accounts", utils.GetDBErrorType(err))
		return fmt.Errorf("releasing accounts: %w", err)
	}
	m.MetricsService.IncDBQuery("Release", "accounts")
	return nil
}

// TransferToBuyer flips ownership of a sold account: the buyer gains
// credential visibility and the listing leaves the seller's view.
func (m *AccountModel) TransferToBuyer(ctx context.Context, sqlExec db.SQLExecuter, id, buyerID string) error {
	if sqlExec == nil {
		sqlExec = m.DB
	}
	const query = `
		UPDATE accounts
		SET buyer_id = $2, sold_at = NOW(), available = FALSE
		WHERE id = $1 AND buyer_id IS NULL`
	start := time.Now()
	result, err := sqlExec.ExecContext(ctx, query, id, buyerID)
	duration := time.Since(start).Seconds()
	m.MetricsService.ObserveDBQueryDuration("TransferToBuyer", "accounts", duration)
	if err != nil {
		m.MetricsService.IncDBQueryError("TransferToBuyer", "accounts", utils.GetDBErrorType(err))
		return fmt.Errorf("transferring account %s to buyer: %w", id, err)
	}
	m.MetricsService.IncDBQuery("TransferToBuyer", "accounts")
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected for account transfer: %w", err)
	}
	if rowsAffected != 1 {
		return fmt.Errorf("account %s was already transferred", id)
	}
	return nil
}

// SetApprovalStatus moves the moderation state, conditionally on the
// current state so concurrent moderation decisions cannot both apply.
func (m *AccountModel) SetApprovalStatus(ctx context.Context, id string, from, to entities.ApprovalStatus) (bool, error) {
	const query = `
		UPDATE accounts
		SET approval_status = $3
		WHERE id = $1 AND approval_status = $2`
	start := time.Now()
	result, err := m.DB.ExecContext(ctx, query, id, from, to)
	duration := time.Since(start).Seconds()
	m.MetricsService.ObserveDBQueryDuration("SetApprovalStatus", "accounts", duration)
	if err != nil {
		m.MetricsService.IncDBQueryError("SetApprovalStatus", "accounts", utils.GetDBErrorType(err))
		return false, fmt.Errorf("setting approval status of account %s: %w", id, err)
	}
	m.MetricsService.IncDBQuery("SetApprovalStatus", "accounts")
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected for approval status update: %w", err)
	}
	return rowsAffected == 1, nil
}

// ListingFilter narrows the paginated listing query.
type ListingFilter struct {
	Game     string
	SellerID string
	// IncludeHeld keeps accounts with an active pending purchase in the
	// result (a seller viewing their own listings).
	IncludeHeld bool
}

// ListPage returns approved listings strictly after the cursor
// position in (created_at, id) order, up to limit rows.
func (m *AccountModel) ListPage(ctx context.Context, filter ListingFilter, cursor *PageCursor, limit int32, sortOrder SortOrder) ([]*entities.AccountWithCursor, error) {
	queryBuilder := strings.Builder{}
	var args []interface{}
	argIndex := 1

	queryBuilder.WriteString(fmt.Sprintf(
		`SELECT %s, created_at AS cursor_created_at, id AS cursor_id FROM accounts WHERE approval_status = 'APPROVED' AND buyer_id IS NULL`,
		accountColumns))

	if !filter.IncludeHeld {
		queryBuilder.WriteString(" AND available = TRUE")
	}
	if filter.Game != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND game = $%d", argIndex))
		args = append(args, filter.Game)
		argIndex++
	}
	if filter.SellerID != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND seller_id = $%d", argIndex))
		args = append(args, filter.SellerID)
		argIndex++
	}

	if cursor != nil {
		clause, cursorArgs, nextIdx := buildCursorCondition("created_at", "id", *cursor, sortOrder, argIndex)
		queryBuilder.WriteString(" AND " + clause)
		args = append(args, cursorArgs...)
		argIndex = nextIdx
	}

	if sortOrder == DESC {
		queryBuilder.WriteString(" ORDER BY created_at DESC, id DESC")
	} else {
		queryBuilder.WriteString(" ORDER BY created_at ASC, id ASC")
	}

	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argIndex))
	args = append(args, limit)

	var accounts []*entities.AccountWithCursor
	start := time.Now()
	err := m.DB.SelectContext(ctx, &accounts, queryBuilder.String(), args...)
	duration := time.Since(start).Seconds()
	m.MetricsService.ObserveDBQueryDuration("ListPage", "accounts", duration)
	if err != nil {
		m.MetricsService.IncDBQueryError("ListPage", "accounts", utils.GetDBErrorType(err))
		return nil, fmt.Errorf("listing accounts page: %w", err)
	}
	m.MetricsService.IncDBQuery("ListPage", "accounts")
	return accounts, nil
}
