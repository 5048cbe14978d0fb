package data

import (
	"errors"

	"github.com/playvault/marketplace-backend/internal/db"
	"github.com/playvault/marketplace-backend/internal/metrics"
)

type Models struct {
	DB           db.ConnectionPool
	Accounts     *AccountModel
	Transactions *TransactionModel
}

func NewModels(dbConnectionPool db.ConnectionPool, metricsService metrics.MetricsService) (*Models, error) {
	if dbConnectionPool == nil {
		return nil, errors.New("ConnectionPool must be initialized")
	}

	return &Models{
		DB:           dbConnectionPool,
		Accounts:     &AccountModel{DB: dbConnectionPool, MetricsService: metricsService},
		Transactions: &TransactionModel{DB: dbConnectionPool, MetricsService: metricsService},
	}, nil
}
