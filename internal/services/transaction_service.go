package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/playvault/marketplace-backend/internal/data"
	"github.com/playvault/marketplace-backend/internal/db"
	"github.com/playvault/marketplace-backend/internal/entities"
	"github.com/playvault/marketplace-backend/internal/metrics"
	"github.com/playvault/marketplace-backend/internal/notifications"
)

// TransitionResult is the outcome of a state-machine call. AlreadyApplied
// is set when the requested transition had already happened, so the caller
// can report success without re-running side effects.
type TransitionResult struct {
	Transaction    *entities.Transaction
	AlreadyApplied bool
}

type TransactionService interface {
	// Create opens a PENDING transaction for the account and holds the
	// account against further offers. Creation and hold are one atomic
	// unit; concurrent buyers race on the store's conditional insert and
	// exactly one wins.
	Create(ctx context.Context, accountID, buyerID string) (*TransitionResult, error)
	// MarkPaymentReceived stamps the payment confirmation on a PENDING
	// transaction. It does not terminate the transaction; completion is a
	// separate step so payment confirmation may arrive asynchronously.
	MarkPaymentReceived(ctx context.Context, transactionID, actorID string) (*TransitionResult, error)
	// Complete settles a PENDING, paid transaction: the account transfers
	// to the buyer and credentials become visible to them.
	Complete(ctx context.Context, transactionID, actorID string) (*TransitionResult, error)
	// Cancel terminates a PENDING transaction and restores the account to
	// a purchasable state.
	Cancel(ctx context.Context, transactionID, actorID, reason string) (*TransitionResult, error)
	// Expire terminates a single stale PENDING transaction. System-only;
	// carries a distinct terminal status so clients can tell a timeout
	// from a user cancellation.
	Expire(ctx context.Context, transactionID string) (*TransitionResult, error)
	// ExpireStale expires every PENDING transaction older than the cutoff
	// in one conditional bulk update and releases the held accounts.
	ExpireStale(ctx context.Context, olderThan time.Duration) (int, error)
	// GetForParticipant returns the transaction if the actor is its buyer
	// or seller.
	GetForParticipant(ctx context.Context, transactionID, actorID string) (*entities.Transaction, error)
}

var _ TransactionService = (*transactionService)(nil)

// accountStore and transactionStore are the slices of the data layer
// the state machine drives. The concrete models satisfy them.
type accountStore interface {
	GetByID(ctx context.Context, sqlExec db.SQLExecuter, id string) (*entities.Account, error)
	Hold(ctx context.Context, sqlExec db.SQLExecuter, id string) (bool, error)
	Release(ctx context.Context, sqlExec db.SQLExecuter, ids []string) error
	TransferToBuyer(ctx context.Context, sqlExec db.SQLExecuter, id, buyerID string) error
}

type transactionStore interface {
	GetByID(ctx context.Context, sqlExec db.SQLExecuter, id string) (*entities.Transaction, error)
	ConditionalInsert(ctx context.Context, sqlExec db.SQLExecuter, id, accountID, buyerID, sellerID string, amountCents int64) (*entities.Transaction, error)
	MarkPaymentReceived(ctx context.Context, sqlExec db.SQLExecuter, id string) (*entities.Transaction, error)
	UpdateStatusIfPending(ctx context.Context, sqlExec db.SQLExecuter, id string, to entities.TransactionStatus, reason string) (*entities.Transaction, error)
	BulkExpire(ctx context.Context, sqlExec db.SQLExecuter, cutoff time.Time) ([]*entities.Transaction, error)
}

var (
	_ accountStore     = (*data.AccountModel)(nil)
	_ transactionStore = (*data.TransactionModel)(nil)
)

type transactionService struct {
	db             db.ConnectionPool
	accounts       accountStore
	transactions   transactionStore
	dispatcher     *notifications.Dispatcher
	metricsService metrics.MetricsService
}

func NewTransactionService(models *data.Models, dispatcher *notifications.Dispatcher, metricsService metrics.MetricsService) (*transactionService, error) {
	if models == nil {
		return nil, errors.New("models cannot be nil")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher cannot be nil")
	}
	if metricsService == nil {
		metricsService = metrics.NoopMetricsService{}
	}

	return &transactionService{
		db:             models.DB,
		accounts:       models.Accounts,
		transactions:   models.Transactions,
		dispatcher:     dispatcher,
		metricsService: metricsService,
	}, nil
}

func (s *transactionService) Create(ctx context.Context, accountID, buyerID string) (*TransitionResult, error) {
	transaction, err := db.RunInTransactionWithResult(ctx, s.db, nil, func(dbTx db.Transaction) (*entities.Transaction, error) {
		account, err := s.accounts.GetByID(ctx, dbTx, accountID)
		if err != nil {
			return nil, fmt.Errorf("loading account: %w", err)
		}

		if account.SellerID == buyerID {
			return nil, entities.ErrSelfPurchase
		}
		if !account.Purchasable() {
			return nil, entities.ErrAccountNotPurchasable
		}

		held, err := s.accounts.Hold(ctx, dbTx, accountID)
		if err != nil {
			return nil, fmt.Errorf("holding account: %w", err)
		}
		if !held {
			return nil, entities.ErrActiveTransactionExists
		}

		inserted, err := s.transactions.ConditionalInsert(ctx, dbTx, uuid.NewString(), accountID, buyerID, account.SellerID, account.AmountCents)
		if err != nil {
			return nil, fmt.Errorf("creating transaction: %w", err)
		}
		return inserted, nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating purchase for account %s: %w", accountID, err)
	}

	s.metricsService.IncTransactionTransition(string(entities.TransactionStatusPending))
	s.dispatcher.Dispatch(notifications.Event{
		Kind:        notifications.KindNewTransaction,
		RecipientID: transaction.SellerID,
		PayloadRef:  transaction.ID,
	})

	return &TransitionResult{Transaction: transaction}, nil
}

func (s *transactionService) MarkPaymentReceived(ctx context.Context, transactionID, actorID string) (*TransitionResult, error) {
	result, err := db.RunInTransactionWithResult(ctx, s.db, nil, func(dbTx db.Transaction) (*TransitionResult, error) {
		current, err := s.transactions.GetByID(ctx, dbTx, transactionID)
		if err != nil {
			return nil, fmt.Errorf("loading transaction: %w", err)
		}
		if current.BuyerID != actorID {
			return nil, entities.ErrNotParticipant
		}
		if current.Status.IsTerminal() {
			// A re-delivered confirmation can land after completion. The
			// stamp is only ever set by this transition, so a stamped
			// terminal transaction means this exact call already took
			// effect.
			if current.PaymentReceivedAt.Valid {
				return &TransitionResult{Transaction: current, AlreadyApplied: true}, nil
			}
			return nil, fmt.Errorf("%w: transaction is %s", entities.ErrInvalidTransition, current.Status)
		}

		updated, err := s.transactions.MarkPaymentReceived(ctx, dbTx, transactionID)
		if err != nil {
			return nil, fmt.Errorf("marking payment received: %w", err)
		}
		if updated == nil {
			// The conditional update matched no row: either payment was
			// already stamped or a concurrent transition fired. Re-read
			// to tell the two apart.
			return s.resolveNoRowUpdate(ctx, dbTx, transactionID, func(t *entities.Transaction) bool {
				return t.PaymentReceivedAt.Valid
			})
		}
		return &TransitionResult{Transaction: updated}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("confirming payment for transaction %s: %w", transactionID, err)
	}

	if !result.AlreadyApplied {
		s.dispatcher.Dispatch(notifications.Event{
			Kind:        notifications.KindPaymentReceived,
			RecipientID: result.Transaction.SellerID,
			PayloadRef:  result.Transaction.ID,
		})
	}
	return result, nil
}

func (s *transactionService) Complete(ctx context.Context, transactionID, actorID string) (*TransitionResult, error) {
	result, err := db.RunInTransactionWithResult(ctx, s.db, nil, func(dbTx db.Transaction) (*TransitionResult, error) {
		current, err := s.transactions.GetByID(ctx, dbTx, transactionID)
		if err != nil {
			return nil, fmt.Errorf("loading transaction: %w", err)
		}
		if current.BuyerID != actorID {
			return nil, entities.ErrNotParticipant
		}
		if current.Status == entities.TransactionStatusCompleted {
			return &TransitionResult{Transaction: current, AlreadyApplied: true}, nil
		}
		if current.Status.IsTerminal() {
			return nil, fmt.Errorf("%w: transaction is %s", entities.ErrInvalidTransition, current.Status)
		}
		if !current.PaymentReceivedAt.Valid {
			return nil, fmt.Errorf("%w: payment not yet received", entities.ErrInvalidTransition)
		}

		updated, err := s.transactions.UpdateStatusIfPending(ctx, dbTx, transactionID, entities.TransactionStatusCompleted, "")
		if err != nil {
			return nil, fmt.Errorf("completing transaction: %w", err)
		}
		if updated == nil {
			return s.resolveNoRowUpdate(ctx, dbTx, transactionID, func(t *entities.Transaction) bool {
				return t.Status == entities.TransactionStatusCompleted
			})
		}

		if err := s.accounts.TransferToBuyer(ctx, dbTx, updated.AccountID, updated.BuyerID); err != nil {
			return nil, fmt.Errorf("transferring account to buyer: %w", err)
		}
		return &TransitionResult{Transaction: updated}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("completing transaction %s: %w", transactionID, err)
	}

	if !result.AlreadyApplied {
		s.metricsService.IncTransactionTransition(string(entities.TransactionStatusCompleted))
		for _, recipientID := range []string{result.Transaction.BuyerID, result.Transaction.SellerID} {
			s.dispatcher.Dispatch(notifications.Event{
				Kind:        notifications.KindAccountSold,
				RecipientID: recipientID,
				PayloadRef:  result.Transaction.AccountID,
			})
		}
	}
	return result, nil
}

func (s *transactionService) Cancel(ctx context.Context, transactionID, actorID, reason string) (*TransitionResult, error) {
	result, err := s.terminate(ctx, transactionID, entities.TransactionStatusCancelled, reason, func(current *entities.Transaction) error {
		if current.BuyerID != actorID && current.SellerID != actorID {
			return entities.ErrNotParticipant
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cancelling transaction %s: %w", transactionID, err)
	}
	return result, nil
}

func (s *transactionService) Expire(ctx context.Context, transactionID string) (*TransitionResult, error) {
	result, err := s.terminate(ctx, transactionID, entities.TransactionStatusExpired, expiryReason, func(*entities.Transaction) error { return nil })
	if err != nil {
		return nil, fmt.Errorf("expiring transaction %s: %w", transactionID, err)
	}
	return result, nil
}

const expiryReason = "purchase window elapsed"

// terminate drives the shared CANCELLED/EXPIRED path: conditional
// transition out of PENDING, release of the held account, and a
// notification to both parties.
func (s *transactionService) terminate(ctx context.Context, transactionID string, to entities.TransactionStatus, reason string, authorize func(*entities.Transaction) error) (*TransitionResult, error) {
	result, err := db.RunInTransactionWithResult(ctx, s.db, nil, func(dbTx db.Transaction) (*TransitionResult, error) {
		current, err := s.transactions.GetByID(ctx, dbTx, transactionID)
		if err != nil {
			return nil, fmt.Errorf("loading transaction: %w", err)
		}
		if err := authorize(current); err != nil {
			return nil, err
		}
		if current.Status == to {
			return &TransitionResult{Transaction: current, AlreadyApplied: true}, nil
		}
		if current.Status.IsTerminal() {
			return nil, fmt.Errorf("%w: transaction is %s", entities.ErrInvalidTransition, current.Status)
		}

		updated, err := s.transactions.UpdateStatusIfPending(ctx, dbTx, transactionID, to, reason)
		if err != nil {
			return nil, fmt.Errorf("transitioning transaction to %s: %w", to, err)
		}
		if updated == nil {
			return s.resolveNoRowUpdate(ctx, dbTx, transactionID, func(t *entities.Transaction) bool {
				return t.Status == to
			})
		}

		if err := s.accounts.Release(ctx, dbTx, []string{updated.AccountID}); err != nil {
			return nil, fmt.Errorf("releasing account: %w", err)
		}
		return &TransitionResult{Transaction: updated}, nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyApplied {
		s.metricsService.IncTransactionTransition(string(to))
		for _, recipientID := range []string{result.Transaction.BuyerID, result.Transaction.SellerID} {
			s.dispatcher.Dispatch(notifications.Event{
				Kind:        notifications.KindNewTransaction,
				RecipientID: recipientID,
				PayloadRef:  result.Transaction.ID,
			})
		}
	}
	return result, nil
}

// resolveNoRowUpdate re-reads a transaction after a conditional update
// matched nothing and decides between an idempotent re-apply and a
// genuine invalid transition.
func (s *transactionService) resolveNoRowUpdate(ctx context.Context, dbTx db.Transaction, transactionID string, satisfied func(*entities.Transaction) bool) (*TransitionResult, error) {
	current, err := s.transactions.GetByID(ctx, dbTx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("re-reading transaction: %w", err)
	}
	if satisfied(current) {
		return &TransitionResult{Transaction: current, AlreadyApplied: true}, nil
	}
	return nil, fmt.Errorf("%w: transaction is %s", entities.ErrInvalidTransition, current.Status)
}

func (s *transactionService) ExpireStale(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	expired, err := db.RunInTransactionWithResult(ctx, s.db, nil, func(dbTx db.Transaction) ([]*entities.Transaction, error) {
		rows, err := s.transactions.BulkExpire(ctx, dbTx, cutoff)
		if err != nil {
			return nil, fmt.Errorf("expiring stale transactions: %w", err)
		}
		if len(rows) == 0 {
			return rows, nil
		}

		accountIDs := mapset.NewSet[string]()
		for _, row := range rows {
			accountIDs.Add(row.AccountID)
		}
		if err := s.accounts.Release(ctx, dbTx, accountIDs.ToSlice()); err != nil {
			return nil, fmt.Errorf("releasing expired accounts: %w", err)
		}
		return rows, nil
	})
	if err != nil {
		return 0, fmt.Errorf("expiring transactions older than %s: %w", cutoff.Format(time.RFC3339), err)
	}

	if len(expired) > 0 {
		s.metricsService.IncTransactionsExpired(len(expired))
		for _, transaction := range expired {
			logrus.WithFields(logrus.Fields{
				"transaction_id": transaction.ID,
				"account_id":     transaction.AccountID,
			}).Info("expired stale pending transaction")
			for _, recipientID := range []string{transaction.BuyerID, transaction.SellerID} {
				s.dispatcher.Dispatch(notifications.Event{
					Kind:        notifications.KindNewTransaction,
					RecipientID: recipientID,
					PayloadRef:  transaction.ID,
				})
			}
		}
	}
	return len(expired), nil
}

func (s *transactionService) GetForParticipant(ctx context.Context, transactionID, actorID string) (*entities.Transaction, error) {
	transaction, err := s.transactions.GetByID(ctx, nil, transactionID)
	if err != nil {
		return nil, fmt.Errorf("loading transaction %s: %w", transactionID, err)
	}
	if transaction.BuyerID != actorID && transaction.SellerID != actorID {
		return nil, entities.ErrNotParticipant
	}
	return transaction, nil
}
