package services

//go:generate mockgen -source=transaction.go -destination=transaction_mock.go -package=services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sbilibin2017/gw-transaction-feed/internal/logger"
	"github.com/sbilibin2017/gw-transaction-feed/internal/models"
)

// ErrTransactionsUnavailable is returned when the transaction store cannot serve the feed.
var ErrTransactionsUnavailable = errors.New("transactions unavailable")

// TransactionReader reads transaction documents from the primary store.
type TransactionReader interface {
	GetLatest(ctx context.Context, limit int64) ([]models.Document, error) // Returns up to limit documents, newest first
}

// TransactionCache stores the most recent feed.
type TransactionCache interface {
	GetLatest(ctx context.Context) ([]models.Document, error)    // Returns the cached feed or an error on miss
	SetLatest(ctx context.Context, docs []models.Document) error // Stores the feed
}

// TransactionService serves the latest transactions feed.
type TransactionService struct {
	reader TransactionReader
	cache  TransactionCache
}

// NewTransactionService creates a new TransactionService. cache may be nil.
func NewTransactionService(reader TransactionReader, cache TransactionCache) *TransactionService {
	return &TransactionService{
		reader: reader,
		cache:  cache,
	}
}

// ListLatest returns the newest transactions ordered by blockTime descending.
// Cache failures are logged and fall through to the store; store failures are
// wrapped in ErrTransactionsUnavailable.
func (s *TransactionService) ListLatest(ctx context.Context) ([]models.Document, error) {
	if s.cache != nil {
		docs, err := s.cache.GetLatest(ctx)
		if err == nil {
			return docs, nil
		}
		logger.Log.Debugw("transactions cache unavailable, reading store", "error", err)
	}

	docs, err := s.reader.GetLatest(ctx, models.TransactionFeedLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransactionsUnavailable, err)
	}
	if docs == nil {
		docs = []models.Document{}
	}

	if s.cache != nil {
		if err := s.cache.SetLatest(ctx, docs); err != nil {
			logger.Log.Warnw("failed to cache transactions", "error", err)
		}
	}

	return docs, nil
}
