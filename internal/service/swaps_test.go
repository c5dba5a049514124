package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"

	"calswap/internal/clock"
	"calswap/internal/errs"
	"calswap/internal/model"
	"calswap/internal/repository"
)

type fakeSwapRepo struct {
	createCalls int
	createIn    *model.SwapRequest
	createErrs  []error // one per call; last one repeats
	recipientID uuid.UUID

	resolveCalls int
	resolveInID  uuid.UUID
	resolveInRsp uuid.UUID
	resolveInAcc bool
	resolveOut   *model.SwapRequest
	resolveErrs  []error

	incomingOut []model.SwapRequest
	outgoingOut []model.SwapRequest
	listErr     error
}

var _ repository.SwapRepository = (*fakeSwapRepo)(nil)

func nthErr(errs []error, n int) error {
	if len(errs) == 0 {
		return nil
	}
	if n >= len(errs) {
		return errs[len(errs)-1]
	}
	return errs[n]
}

func (f *fakeSwapRepo) CreateWithLock(_ context.Context, req *model.SwapRequest) error {
	err := nthErr(f.createErrs, f.createCalls)
	f.createCalls++
	if err != nil {
		return err
	}
	req.RecipientID = f.recipientID
	cpy := *req
	f.createIn = &cpy
	return nil
}

func (f *fakeSwapRepo) GetByID(_ context.Context, id uuid.UUID) (*model.SwapRequest, error) {
	return nil, errs.ErrNotFound
}

func (f *fakeSwapRepo) Resolve(_ context.Context, requestID, responderID uuid.UUID, accept bool, now time.Time) (*model.SwapRequest, error) {
	err := nthErr(f.resolveErrs, f.resolveCalls)
	f.resolveCalls++
	if err != nil {
		return nil, err
	}
	f.resolveInID, f.resolveInRsp, f.resolveInAcc = requestID, responderID, accept
	return f.resolveOut, nil
}

func (f *fakeSwapRepo) ListIncoming(_ context.Context, userID uuid.UUID) ([]model.SwapRequest, error) {
	return append([]model.SwapRequest(nil), f.incomingOut...), f.listErr
}

func (f *fakeSwapRepo) ListOutgoing(_ context.Context, userID uuid.UUID) ([]model.SwapRequest, error) {
	return append([]model.SwapRequest(nil), f.outgoingOut...), f.listErr
}

func (f *fakeSwapRepo) ReleaseOrphanedLocks(_ context.Context) ([]uuid.UUID, error) {
	return nil, nil
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newSwapService(repo *fakeSwapRepo) *SwapServiceImpl {
	return NewSwapService(repo, clock.NewFixed(testNow), WithRetryPolicy(2, time.Millisecond))
}

func TestSwapService_Propose_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := &fakeSwapRepo{}
	s := newSwapService(repo)

	user := uuid.Must(uuid.NewV4())
	ev := uuid.Must(uuid.NewV4())

	if _, err := s.Propose(ctx, uuid.Nil, ev, ev); err == nil {
		t.Fatalf("want validation error on empty requesterID")
	}
	if _, err := s.Propose(ctx, user, uuid.Nil, ev); err == nil {
		t.Fatalf("want validation error on empty myEventID")
	}
	if _, err := s.Propose(ctx, user, ev, ev); !errors.Is(err, errs.ErrSelfSwap) {
		t.Fatalf("want ErrSelfSwap on identical event ids, got %v", err)
	}
	if repo.createCalls != 0 {
		t.Fatalf("repo should not be called on validation failure")
	}
}

func TestSwapService_Propose_OK(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	recipient := uuid.Must(uuid.NewV4())
	repo := &fakeSwapRepo{recipientID: recipient}
	s := newSwapService(repo)

	requester := uuid.Must(uuid.NewV4())
	mine := uuid.Must(uuid.NewV4())
	theirs := uuid.Must(uuid.NewV4())

	req, err := s.Propose(ctx, requester, mine, theirs)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if req.RequesterID != requester || req.RequesterEventID != mine || req.RecipientEventID != theirs {
		t.Fatalf("request fields not propagated: %+v", req)
	}
	if req.RecipientID != recipient {
		t.Fatalf("recipient not taken from repo: got %s want %s", req.RecipientID, recipient)
	}
	if req.Status != model.SwapPending {
		t.Fatalf("want pending, got %s", req.Status)
	}
	if !req.CreatedAt.Equal(testNow) {
		t.Fatalf("want clock time %v, got %v", testNow, req.CreatedAt)
	}
	if req.ID == uuid.Nil {
		t.Fatalf("want generated request id")
	}
}

func TestSwapService_Propose_RetriesTransientConflict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := &fakeSwapRepo{
		createErrs: []error{errs.ErrTransientConflict, errs.ErrTransientConflict, nil},
	}
	s := newSwapService(repo)

	_, err := s.Propose(ctx, uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4()))
	if err != nil {
		t.Fatalf("propose should succeed after retries: %v", err)
	}
	if repo.createCalls != 3 {
		t.Fatalf("want 3 attempts, got %d", repo.createCalls)
	}
}

func TestSwapService_Propose_BoundedRetries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := &fakeSwapRepo{createErrs: []error{errs.ErrTransientConflict}}
	s := newSwapService(repo)

	_, err := s.Propose(ctx, uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4()))
	if !errors.Is(err, errs.ErrTransientConflict) {
		t.Fatalf("want ErrTransientConflict after exhausted retries, got %v", err)
	}
	// initial attempt + 2 retries
	if repo.createCalls != 3 {
		t.Fatalf("want 3 attempts, got %d", repo.createCalls)
	}
}

func TestSwapService_Propose_BusinessErrorsNotRetried(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for _, want := range []error{errs.ErrNotSwappable, errs.ErrForbidden, errs.ErrSelfSwap, errs.ErrNotFound} {
		repo := &fakeSwapRepo{createErrs: []error{want}}
		s := newSwapService(repo)

		_, err := s.Propose(ctx, uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4()))
		if !errors.Is(err, want) {
			t.Fatalf("want %v, got %v", want, err)
		}
		if repo.createCalls != 1 {
			t.Fatalf("%v: business rejection must not be retried, got %d attempts", want, repo.createCalls)
		}
	}
}

func TestSwapService_Respond_OK(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	resolved := testNow
	out := &model.SwapRequest{
		ID:         uuid.Must(uuid.NewV4()),
		Status:     model.SwapAccepted,
		ResolvedAt: &resolved,
	}
	repo := &fakeSwapRepo{resolveOut: out}
	s := newSwapService(repo)

	responder := uuid.Must(uuid.NewV4())
	got, err := s.Respond(ctx, out.ID, responder, true)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if got != out {
		t.Fatalf("want repo result passed through")
	}
	if repo.resolveInID != out.ID || repo.resolveInRsp != responder || !repo.resolveInAcc {
		t.Fatalf("resolve args not propagated")
	}
}

func TestSwapService_Respond_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := &fakeSwapRepo{}
	s := newSwapService(repo)

	if _, err := s.Respond(ctx, uuid.Nil, uuid.Must(uuid.NewV4()), true); err == nil {
		t.Fatalf("want validation error on empty requestID")
	}
	if repo.resolveCalls != 0 {
		t.Fatalf("repo should not be called on validation failure")
	}
}

func TestSwapService_Respond_AlreadyResolvedNotRetried(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := &fakeSwapRepo{resolveErrs: []error{errs.ErrAlreadyResolved}}
	s := newSwapService(repo)

	_, err := s.Respond(ctx, uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4()), false)
	if !errors.Is(err, errs.ErrAlreadyResolved) {
		t.Fatalf("want ErrAlreadyResolved, got %v", err)
	}
	if repo.resolveCalls != 1 {
		t.Fatalf("want single attempt, got %d", repo.resolveCalls)
	}
}

func TestSwapService_Lists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	in := model.SwapRequest{ID: uuid.Must(uuid.NewV4())}
	out := model.SwapRequest{ID: uuid.Must(uuid.NewV4())}
	repo := &fakeSwapRepo{
		incomingOut: []model.SwapRequest{in},
		outgoingOut: []model.SwapRequest{out},
	}
	s := newSwapService(repo)

	user := uuid.Must(uuid.NewV4())
	got, err := s.ListIncoming(ctx, user)
	if err != nil || len(got) != 1 || got[0].ID != in.ID {
		t.Fatalf("incoming: got=%v err=%v", got, err)
	}
	got, err = s.ListOutgoing(ctx, user)
	if err != nil || len(got) != 1 || got[0].ID != out.ID {
		t.Fatalf("outgoing: got=%v err=%v", got, err)
	}

	if _, err := s.ListIncoming(ctx, uuid.Nil); err == nil {
		t.Fatalf("want validation error on empty userID")
	}
}
