package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/playvault/marketplace-backend/internal/entities"
)

type MockTransactionService struct {
	mock.Mock
}

var _ TransactionService = (*MockTransactionService)(nil)

func (m *MockTransactionService) Create(ctx context.Context, accountID, buyerID string) (*TransitionResult, error) {
	args := m.Called(ctx, accountID, buyerID)
	if result := args.Get(0); result != nil {
		return result.(*TransitionResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTransactionService) MarkPaymentReceived(ctx context.Context, transactionID, actorID string) (*TransitionResult, error) {
	args := m.Called(ctx, transactionID, actorID)
	if result := args.Get(0); result != nil {
		return result.(*TransitionResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTransactionService) Complete(ctx context.Context, transactionID, actorID string) (*TransitionResult, error) {
	args := m.Called(ctx, transactionID, actorID)
	if result := args.Get(0); result != nil {
		return result.(*TransitionResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTransactionService) Cancel(ctx context.Context, transactionID, actorID, reason string) (*TransitionResult, error) {
	args := m.Called(ctx, transactionID, actorID, reason)
	if result := args.Get(0); result != nil {
		return result.(*TransitionResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTransactionService) Expire(ctx context.Context, transactionID string) (*TransitionResult, error) {
	args := m.Called(ctx, transactionID)
	if result := args.Get(0); result != nil {
		return result.(*TransitionResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTransactionService) ExpireStale(ctx context.Context, olderThan time.Duration) (int, error) {
	args := m.Called(ctx, olderThan)
	return args.Int(0), args.Error(1)
}

func (m *MockTransactionService) GetForParticipant(ctx context.Context, transactionID, actorID string) (*entities.Transaction, error) {
	args := m.Called(ctx, transactionID, actorID)
	if result := args.Get(0); result != nil {
		return result.(*entities.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockListingService struct {
	mock.Mock
}

var _ ListingService = (*MockListingService)(nil)

func (m *MockListingService) List(ctx context.Context, req ListingRequest) (*ListingPage, error) {
	args := m.Called(ctx, req)
	if result := args.Get(0); result != nil {
		return result.(*ListingPage), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockAccountService struct {
	mock.Mock
}

var _ AccountService = (*MockAccountService)(nil)

func (m *MockAccountService) CreateListing(ctx context.Context, account *entities.Account) (*entities.Account, error) {
	args := m.Called(ctx, account)
	if result := args.Get(0); result != nil {
		return result.(*entities.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountService) GetByID(ctx context.Context, id string) (*entities.Account, error) {
	args := m.Called(ctx, id)
	if result := args.Get(0); result != nil {
		return result.(*entities.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountService) Approve(ctx context.Context, id string) (*entities.Account, error) {
	args := m.Called(ctx, id)
	if result := args.Get(0); result != nil {
		return result.(*entities.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountService) Reject(ctx context.Context, id string) (*entities.Account, error) {
	args := m.Called(ctx, id)
	if result := args.Get(0); result != nil {
		return result.(*entities.Account), args.Error(1)
	}
	return nil, args.Error(1)
}
