package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/playvault/marketplace-backend/internal/data"
	"github.com/playvault/marketplace-backend/internal/entities"
	"github.com/playvault/marketplace-backend/internal/notifications"
)

type AccountService interface {
	// CreateListing registers a seller's account for sale. New listings
	// start in PENDING approval and are invisible to buyers until
	// approved.
	CreateListing(ctx context.Context, account *entities.Account) (*entities.Account, error)
	// GetByID returns the account. Credential redaction for callers other
	// than the seller or post-sale buyer happens at the transport layer.
	GetByID(ctx context.Context, id string) (*entities.Account, error)
	// Approve moves a PENDING listing to APPROVED and notifies the
	// seller. Re-approving an approved listing is a no-op.
	Approve(ctx context.Context, id string) (*entities.Account, error)
	// Reject moves a PENDING listing to REJECTED and notifies the seller.
	Reject(ctx context.Context, id string) (*entities.Account, error)
}

var _ AccountService = (*accountService)(nil)

type accountService struct {
	models     *data.Models
	dispatcher *notifications.Dispatcher
}

func NewAccountService(models *data.Models, dispatcher *notifications.Dispatcher) (*accountService, error) {
	if models == nil {
		return nil, errors.New("models cannot be nil")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher cannot be nil")
	}

	return &accountService{
		models:     models,
		dispatcher: dispatcher,
	}, nil
}

func (s *accountService) CreateListing(ctx context.Context, account *entities.Account) (*entities.Account, error) {
	account.ID = uuid.NewString()
	account.ApprovalStatus = entities.ApprovalStatusPending
	account.Available = true

	inserted, err := s.models.Accounts.Insert(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("creating listing: %w", err)
	}
	return inserted, nil
}

func (s *accountService) GetByID(ctx context.Context, id string) (*entities.Account, error) {
	account, err := s.models.Accounts.GetByID(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("loading account %s: %w", id, err)
	}
	return account, nil
}

func (s *accountService) Approve(ctx context.Context, id string) (*entities.Account, error) {
	return s.moderate(ctx, id, entities.ApprovalStatusApproved, notifications.KindAccountApproved)
}

func (s *accountService) Reject(ctx context.Context, id string) (*entities.Account, error) {
	return s.moderate(ctx, id, entities.ApprovalStatusRejected, notifications.KindAccountRejected)
}

func (s *accountService) moderate(ctx context.Context, id string, to entities.ApprovalStatus, kind notifications.Kind) (*entities.Account, error) {
	moved, err := s.models.Accounts.SetApprovalStatus(ctx, id, entities.ApprovalStatusPending, to)
	if err != nil {
		return nil, fmt.Errorf("moderating account %s: %w", id, err)
	}

	account, err := s.models.Accounts.GetByID(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("loading moderated account %s: %w", id, err)
	}
	if !moved {
		if account.ApprovalStatus == to {
			// Repeated moderation call; nothing changed, no second
			// notification.
			return account, nil
		}
		return nil, fmt.Errorf("%w: account is %s", entities.ErrInvalidTransition, account.ApprovalStatus)
	}

	s.dispatcher.Dispatch(notifications.Event{
		Kind:        kind,
		RecipientID: account.SellerID,
		PayloadRef:  account.ID,
	})
	return account, nil
}
