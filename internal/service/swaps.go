package service

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/sethvargo/go-retry"

	"calswap/internal/clock"
	"calswap/internal/errs"
	"calswap/internal/model"
	"calswap/internal/repository"
)

// SwapService drives swap requests through their lifecycle: it validates
// proposals, locks both events, and finalizes the exchange or the release
// when the recipient responds. Transient lock races are retried a bounded
// number of times before the conflict is surfaced to the caller.
type SwapService interface {
	// Propose creates a pending request between the requester's event and
	// a swappable event owned by someone else, locking both.
	Propose(ctx context.Context, requesterID, myEventID, theirEventID uuid.UUID) (*model.SwapRequest, error)
	// Respond accepts or rejects a pending request addressed to responderID.
	Respond(ctx context.Context, requestID, responderID uuid.UUID, accept bool) (*model.SwapRequest, error)
	// ListIncoming returns requests addressed to the user, newest first.
	ListIncoming(ctx context.Context, userID uuid.UUID) ([]model.SwapRequest, error)
	// ListOutgoing returns requests created by the user, newest first.
	ListOutgoing(ctx context.Context, userID uuid.UUID) ([]model.SwapRequest, error)
}

type SwapServiceImpl struct {
	repo       repository.SwapRepository
	clk        clock.Clock
	maxRetries uint64
	backoff    time.Duration
}

// NewSwapService constructs SwapService.
func NewSwapService(repo repository.SwapRepository, clk clock.Clock, opts ...SwapServiceOption) *SwapServiceImpl {
	s := &SwapServiceImpl{
		repo:       repo,
		clk:        clk,
		maxRetries: 3,
		backoff:    25 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type SwapServiceOption func(*SwapServiceImpl)

// WithRetryPolicy overrides the bounded retry policy for transient conflicts.
func WithRetryPolicy(maxRetries uint64, backoff time.Duration) SwapServiceOption {
	return func(s *SwapServiceImpl) {
		s.maxRetries = maxRetries
		if backoff > 0 {
			s.backoff = backoff
		}
	}
}

// Propose validates input and creates the pending request plus the pair
// lock as one unit. Business-rule rejections (NotSwappable, Forbidden,
// SelfSwap) are final; only TransientConflict is retried.
func (s *SwapServiceImpl) Propose(
	ctx context.Context, requesterID, myEventID, theirEventID uuid.UUID,
) (*model.SwapRequest, error) {
	if requesterID == uuid.Nil || myEventID == uuid.Nil || theirEventID == uuid.Nil {
		return nil, errors.New("validation: empty requesterID/eventID")
	}
	if myEventID == theirEventID {
		return nil, errs.ErrSelfSwap
	}

	var req *model.SwapRequest
	err := s.withRetry(ctx, func(ctx context.Context) error {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		attempt := &model.SwapRequest{
			ID:               id,
			RequesterID:      requesterID,
			RequesterEventID: myEventID,
			RecipientEventID: theirEventID,
			Status:           model.SwapPending,
			CreatedAt:        s.clk.Now(),
		}
		if err := s.repo.CreateWithLock(ctx, attempt); err != nil {
			return err
		}
		req = attempt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Respond finalizes a pending request. On accept the two events exchange
// owners and become busy; on reject both return to swappable. A failed
// event-side effect rolls the whole transaction back, so the request stays
// pending and the caller may retry.
func (s *SwapServiceImpl) Respond(
	ctx context.Context, requestID, responderID uuid.UUID, accept bool,
) (*model.SwapRequest, error) {
	if requestID == uuid.Nil || responderID == uuid.Nil {
		return nil, errors.New("validation: empty requestID/responderID")
	}

	var req *model.SwapRequest
	err := s.withRetry(ctx, func(ctx context.Context) error {
		res, err := s.repo.Resolve(ctx, requestID, responderID, accept, s.clk.Now())
		if err != nil {
			return err
		}
		req = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// ListIncoming returns requests addressed to the user.
func (s *SwapServiceImpl) ListIncoming(ctx context.Context, userID uuid.UUID) ([]model.SwapRequest, error) {
	if userID == uuid.Nil {
		return nil, errors.New("validation: empty userID")
	}
	return s.repo.ListIncoming(ctx, userID)
}

// ListOutgoing returns requests created by the user.
func (s *SwapServiceImpl) ListOutgoing(ctx context.Context, userID uuid.UUID) ([]model.SwapRequest, error) {
	if userID == uuid.Nil {
		return nil, errors.New("validation: empty userID")
	}
	return s.repo.ListOutgoing(ctx, userID)
}

// withRetry runs fn, retrying only ErrTransientConflict with fibonacci
// backoff up to maxRetries attempts. The last conflict is surfaced as-is.
func (s *SwapServiceImpl) withRetry(ctx context.Context, fn func(context.Context) error) error {
	b := retry.WithMaxRetries(s.maxRetries, retry.NewFibonacci(s.backoff))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, errs.ErrTransientConflict) {
			return retry.RetryableError(err)
		}
		return err
	})
}
