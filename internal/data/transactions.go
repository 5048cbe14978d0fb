package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/playvault/marketplace-backend/internal/db"
	"github.com/playvault/marketplace-backend/internal/entities"
	"github.com/playvault/marketplace-backend/internal/metrics"
	"github.com/playvault/marketplace-backend/internal/utils"
)

const transactionColumns = `id, account_id, buyer_id, seller_id, status, reason, amount_cents, payment_received_at, created_at, updated_at`

type TransactionModel struct {
	DB             db.ConnectionPool
	MetricsService metrics.MetricsService
}

func (m *TransactionModel) GetByID(ctx context.Context, sqlExec db.SQLExecuter, id string) (*entities.Transaction, error) {
	if sqlExec == nil {
		sqlExec = m.DB
	}
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE id = $1`, transactionColumns)
	var transaction entities.Transaction
	start := time.Now()
	err := sqlExec.GetContext(ctx, &transaction, query, id)
	duration := time.Since(start).Seconds()
	m.MetricsService.ObserveDBQueryDuration("GetByID", "transactions", duration)
	if err != nil {
		m.MetricsService.IncDBQueryError("GetByID", "transactions", utils.GetDBErrorType(err))
		if err == sql.ErrNoRows {
			return nil, entities.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("getting transaction %s: %w", id, err)
	}
	m.MetricsService.IncDBQuery("GetByID", "transactions")
	return &transaction, nil
}

// ConditionalInsert creates a PENDING transaction for the account only
// if no non-terminal transaction exists for it. The NOT EXISTS guard
// and the insert are a single statement, so two concurrent buyers
// cannot both succeed; the partial unique index on
// (account_id) WHERE status = 'PENDING' backstops the same invariant.
// Returns entities.ErrActiveTransactionExists when the account is held.
func (m *TransactionModel) ConditionalInsert(ctx context.Context, sqlExec db.SQLExecuter, id, accountID, buyerID, sellerID string, amountCents int64) (*entities.Transaction, error) {
	if sqlExec == nil {
		sqlExec = m.DB
	}
	query := fmt.Sprintf(`
		INSERT INTO transactions (id, account_id, buyer_id, seller_id, status, amount_cents)
		SELECT $1, $2, $3, $4, 'PENDING', $5
		WHERE NOT EXISTS (
			SELECT 1 FROM transactions WHERE account_id = $2 AND status = 'PENDING'
		)
		RETURNING %s`, transactionColumns)

	var transaction entities.Transaction
	start := time.Now()
	err := sqlExec.GetContext(ctx, &transaction, query, id, accountID, buyerID, sellerID, amountCents)
	duration := time.Since(start).Seconds()
	m.MetricsService.ObserveDBQueryDuration("ConditionalInsert", "transactions", duration)
	if err != nil {
		if err == sql.ErrNoRows || utils.IsUniqueViolation(err) {
			m.MetricsService.IncDBQueryError("ConditionalInsert", "transactions", "active_transaction_exists")
			return nil, entities.ErrActiveTransactionExists
		}
		m.MetricsService.IncDBQueryError("ConditionalInsert", "transactions", utils.GetDBErrorType(err))
		return nil, fmt.Errorf("inserting transaction for account %s: %w", accountID, err)
	}
	m.MetricsService.IncDBQuery("ConditionalInsert", "transactions")
	return &transaction, nil
}

// UpdateStatusIfPending transitions the transaction out of PENDING.
// Returns (nil, nil) when the row was not in PENDING anymore, letting
// the caller re-read and decide between an idempotent re-apply and an
// invalid transition.
func (m *TransactionModel) UpdateStatusIfPending(ctx context.Context, sqlExec db.SQLExecuter, id string, to entities.TransactionStatus, reason string) (*entities.Transaction, error) {
	if sqlExec == nil {
		sqlExec = m.DB
	}
	query := fmt.Sprintf(`
		UPDATE transactions
		SET status = $2, reason = NULLIF($3, ''), updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING %s`, transactionColumns)

	var transaction entities.Transaction
	start := time.Now()
	err := sqlExec.GetContext(ctx, &transaction, query, id, to, reason)
	duration := time.Since(start).Seconds()
	m.MetricsService.ObserveDBQueryDuration("UpdateStatusIfPending", "transactions", duration)
	if err != nil {
		if err == sql.ErrNoRows {
			m.MetricsService.IncDBQuery("UpdateStatusIfPending", "transactions")
			return nil, nil
		}
		m.MetricsService.IncDBQueryError("UpdateStatusIfPending", "transactions", utils.GetDBErrorType(err))
		return nil, fmt.Errorf("transitioning transaction %s to %s: %w", id, to, err)
	}
	m.MetricsService.IncDBQuery("UpdateStatusIfPending", "transactions")
	return &transaction, nil
}

// MarkPaymentReceived stamps payment receipt on a PENDING transaction
// exactly once. Returns (nil, nil) when the stamp did not apply
// (already stamped, or the transaction left PENDING).
func (m *TransactionModel) MarkPaymentReceived(ctx context.Context, sqlExec db.SQLExecuter, id string) (*entities.Transaction, error) {
	if sqlExec == nil {
		sqlExec = m.DB
	}
	query := fmt.Sprintf(`
		UPDATE transactions
		SET payment_received_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING' AND payment_received_at IS NULL
		RETURNING %s`, transactionColumns)

	var transaction entities.Transaction
	start := time.Now()
	err := sqlExec.GetContext(ctx, &transaction, query, id)
	duration := time.Since(start).Seconds()
	m.MetricsService.ObserveDBQueryDuration("MarkPaymentReceived", "transactions", duration)
	if err != nil {
		if err == sql.ErrNoRows {
			m.MetricsService.IncDBQuery("MarkPaymentReceived", "transactions")
			return nil, nil
		}
		m.MetricsService.IncDBQueryError("MarkPaymentReceived", "transactions", utils.GetDBErrorType(err))
		return nil, fmt.Errorf("marking payment received on transaction %s: %w", id, err)
	}
	m.MetricsService.IncDBQuery("MarkPaymentReceived", "transactions")
	return &transaction, nil
}

// BulkExpire transitions every PENDING transaction created before the
// cutoff to EXPIRED in one conditional statement. Rows concurrently
// completed or cancelled are untouched because the WHERE clause only
// matches rows still PENDING at update time.
func (m *TransactionModel) BulkExpire(ctx context.Context, sqlExec db.SQLExecuter, cutoff time.Time) ([]*entities.Transaction, error) {
	if sqlExec == nil {
		sqlExec = m.DB
	}
	query := fmt.Sprintf(`
		UPDATE transactions
		SET status = 'EXPIRED', reason = 'purchase window elapsed', updated_at = NOW()
		WHERE status = 'PENDING' AND created_at < $1
		RETURNING %s`, transactionColumns)

	var expired []*entities.Transaction
	start := time.Now()
	err := sqlExec.SelectContext(ctx, &expired, query, cutoff)
	duration := time.Since(start).Seconds()
	m.MetricsService.ObserveDBQueryDuration("BulkExpire", "transactions", duration)
	if err != nil {
		m.MetricsService.IncDBQueryError("BulkExpire", "transactions", utils.GetDBErrorType(err))
		return nil, fmt.Errorf("bulk expiring stale transactions: %w", err)
	}
	m.MetricsService.IncDBQuery("BulkExpire", "transactions")
	m.MetricsService.ObserveDBBatchSize("BulkExpire", "transactions", len(expired))
	return expired, nil
}
