package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/playvault/marketplace-backend/internal/data"
	"github.com/playvault/marketplace-backend/internal/entities"
	"github.com/playvault/marketplace-backend/internal/metrics"
	"github.com/playvault/marketplace-backend/internal/pagination"
	"github.com/playvault/marketplace-backend/internal/queryguard"
)

const (
	defaultPageSize int32 = 20
	maxPageSize     int32 = 100
)

// ListingRequest carries one paginated listing read. CallerID is the
// authenticated user id, or empty for anonymous reads.
type ListingRequest struct {
	Query       string
	First       int32
	After       string
	IncludeHeld bool
	CallerID    string
}

// ListingPage is one window of the listing scan plus the cursors needed
// to continue it in either direction.
type ListingPage struct {
	Accounts        []*entities.Account
	StartCursor     string
	EndCursor       string
	HasNextPage     bool
	HasPreviousPage bool
}

type ListingService interface {
	// List validates the read against the query guard, resolves the
	// cursor and returns a stable page of purchasable accounts. The
	// guard runs before any store access.
	List(ctx context.Context, req ListingRequest) (*ListingPage, error)
}

var _ ListingService = (*listingService)(nil)

// listingStore is the single data-layer call the listing read needs.
type listingStore interface {
	ListPage(ctx context.Context, filter data.ListingFilter, cursor *data.PageCursor, limit int32, sortOrder data.SortOrder) ([]*entities.AccountWithCursor, error)
}

var _ listingStore = (*data.AccountModel)(nil)

type listingService struct {
	accounts       listingStore
	guard          *queryguard.Guard
	metricsService metrics.MetricsService
}

func NewListingService(models *data.Models, guard *queryguard.Guard, metricsService metrics.MetricsService) (*listingService, error) {
	if models == nil {
		return nil, errors.New("models cannot be nil")
	}
	if guard == nil {
		return nil, errors.New("guard cannot be nil")
	}
	if metricsService == nil {
		metricsService = metrics.NoopMetricsService{}
	}

	return &listingService{
		accounts:       models.Accounts,
		guard:          guard,
		metricsService: metricsService,
	}, nil
}

func (s *listingService) List(ctx context.Context, req ListingRequest) (*ListingPage, error) {
	filter := data.ListingFilter{}
	if req.Query != "" {
		stats, err := s.guard.Validate(req.Query)
		s.metricsService.ObserveQueryComplexity(stats.Complexity)
		s.metricsService.ObserveQueryDepth(stats.Depth)
		if err != nil {
			s.metricsService.IncGuardRejection(guardRejectionReason(err))
			return nil, fmt.Errorf("validating listing query: %w", err)
		}

		filter, err = extractListingFilter(req.Query)
		if err != nil {
			return nil, fmt.Errorf("reading listing query filters: %w", err)
		}
	}

	// Held accounts are only visible to the seller browsing their own
	// listings.
	if req.IncludeHeld && filter.SellerID != "" && filter.SellerID == req.CallerID {
		filter.IncludeHeld = true
	}

	var cursor *data.PageCursor
	if req.After != "" {
		decoded, err := pagination.Decode(req.After)
		if err != nil {
			return nil, fmt.Errorf("decoding page cursor: %w", err)
		}
		cursor = &data.PageCursor{CreatedAt: decoded.SortKey, ID: decoded.TieBreakID}
	}

	limit := req.First
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	// Fetch one extra row past the page to learn whether a next page
	// exists without a second query.
	rows, err := s.accounts.ListPage(ctx, filter, cursor, limit+1, data.ASC)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}

	// HasPreviousPage only records that this read was cursor-anchored;
	// it does not probe the store for rows before the position.
	page := &ListingPage{HasPreviousPage: cursor != nil}
	if len(rows) > int(limit) {
		page.HasNextPage = true
		rows = rows[:limit]
	}

	for _, row := range rows {
		account := row.Account
		account.Credentials = ""
		page.Accounts = append(page.Accounts, &account)
	}

	if len(rows) > 0 {
		first, last := rows[0], rows[len(rows)-1]
		if page.StartCursor, err = pagination.Encode(first.CursorCreatedAt, first.CursorID); err != nil {
			return nil, fmt.Errorf("encoding start cursor: %w", err)
		}
		if page.EndCursor, err = pagination.Encode(last.CursorCreatedAt, last.CursorID); err != nil {
			return nil, fmt.Errorf("encoding end cursor: %w", err)
		}
	}
	return page, nil
}

func guardRejectionReason(err error) string {
	switch {
	case errors.Is(err, queryguard.ErrQueryTooComplex):
		return "complexity"
	case errors.Is(err, queryguard.ErrQueryTooDeep):
		return "depth"
	default:
		return "malformed"
	}
}

// extractListingFilter pulls the game and sellerId arguments off the
// top-level accounts field of an already guard-validated query.
func extractListingFilter(query string) (data.ListingFilter, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	if err != nil {
		return data.ListingFilter{}, fmt.Errorf("%w: %s", queryguard.ErrMalformedQuery, err.Error())
	}

	filter := data.ListingFilter{}
	for _, operation := range doc.Operations {
		for _, selection := range operation.SelectionSet {
			field, ok := selection.(*ast.Field)
			if !ok || field.Name != "accounts" {
				continue
			}
			for _, arg := range field.Arguments {
				if arg.Value == nil || arg.Value.Kind != ast.StringValue {
					continue
				}
				switch arg.Name {
				case "game":
					filter.Game = arg.Value.Raw
				case "sellerId":
					filter.SellerID = arg.Value.Raw
				}
			}
		}
	}
	return filter, nil
}
