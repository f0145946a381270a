package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	admissiondomain "lexgate/backend/internal/admission/domain"
	"lexgate/backend/internal/session/domain"
	"lexgate/backend/internal/session/repository"
)

func seed(t *testing.T, repo *repository.MemoryRepository, userID string, ids ...string) {
	t.Helper()
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	for i, id := range ids {
		err := repo.Create(context.Background(), &domain.Session{
			ID:        id,
			UserID:    userID,
			TenantID:  "firm-1",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}
}

func activeIDs(t *testing.T, repo *repository.MemoryRepository, userID string) []string {
	t.Helper()
	list, err := repo.ListActiveByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListActiveByUser: %v", err)
	}
	ids := make([]string, len(list))
	for i, s := range list {
		ids[i] = s.ID
	}
	return ids
}

func statusOf(t *testing.T, repo *repository.MemoryRepository, id string) domain.Status {
	t.Helper()
	s, err := repo.GetByID(context.Background(), id)
	if err != nil || s == nil {
		t.Fatalf("GetByID %s: %v, %v", id, s, err)
	}
	return s.Status
}

func TestEnforce_TriggeringSessionWins(t *testing.T) {
	repo := repository.NewMemoryRepository()
	seed(t, repo, "user-1", "A", "B", "C")
	e := NewEnforcer(repo)

	res, err := e.Enforce(context.Background(), "user-1", "B")
	if err != nil {
		t.Fatalf("Enforce: %v", err)
	}
	if !res.Decision.Allowed {
		t.Fatalf("Decision = %v, want allow", res.Decision)
	}
	if len(res.Revoked) != 2 {
		t.Errorf("Revoked = %v, want A and C", res.Revoked)
	}
	if got := activeIDs(t, repo, "user-1"); len(got) != 1 || got[0] != "B" {
		t.Errorf("active = %v, want [B]", got)
	}
	if statusOf(t, repo, "A") != domain.StatusRevoked || statusOf(t, repo, "C") != domain.StatusRevoked {
		t.Error("A and C should be revoked")
	}

	// Second run with the same inputs converges to the same state.
	res, err = e.Enforce(context.Background(), "user-1", "B")
	if err != nil {
		t.Fatalf("Enforce again: %v", err)
	}
	if !res.Decision.Allowed || len(res.Revoked) != 0 {
		t.Errorf("second Enforce = %+v, want allow with nothing revoked", res)
	}
	if got := activeIDs(t, repo, "user-1"); len(got) != 1 || got[0] != "B" {
		t.Errorf("active after second run = %v, want [B]", got)
	}
}

func TestEnforce_SingleActiveSessionIsNoop(t *testing.T) {
	repo := repository.NewMemoryRepository()
	seed(t, repo, "user-1", "A")
	res, err := NewEnforcer(repo).Enforce(context.Background(), "user-1", "A")
	if err != nil {
		t.Fatalf("Enforce: %v", err)
	}
	if !res.Decision.Allowed || len(res.Revoked) != 0 || res.FailedOpen {
		t.Errorf("Enforce = %+v", res)
	}
}

func TestEnforce_SupersededSessionDenied(t *testing.T) {
	repo := repository.NewMemoryRepository()
	seed(t, repo, "user-1", "A", "B")
	_ = repo.Revoke(context.Background(), "A")

	res, err := NewEnforcer(repo).Enforce(context.Background(), "user-1", "A")
	if err != nil {
		t.Fatalf("Enforce: %v", err)
	}
	if res.Decision.Allowed || res.Decision.Reason != admissiondomain.ReasonSessionSuperseded {
		t.Errorf("Decision = %v, want deny(session_superseded)", res.Decision)
	}
	if statusOf(t, repo, "B") != domain.StatusActive {
		t.Error("superseded request must not revoke the winning session")
	}
}

func TestEnforce_UnknownSessionDenied(t *testing.T) {
	repo := repository.NewMemoryRepository()
	res, err := NewEnforcer(repo).Enforce(context.Background(), "user-1", "ghost")
	if err != nil {
		t.Fatalf("Enforce: %v", err)
	}
	if res.Decision.Reason != admissiondomain.ReasonSessionSuperseded {
		t.Errorf("Decision = %v, want deny(session_superseded)", res.Decision)
	}
}

func TestEnforce_MissingIdentity(t *testing.T) {
	e := NewEnforcer(repository.NewMemoryRepository())
	if _, err := e.Enforce(context.Background(), "", "A"); !errors.Is(err, ErrMissingIdentity) {
		t.Errorf("err = %v, want ErrMissingIdentity", err)
	}
	if _, err := e.Enforce(context.Background(), "user-1", ""); !errors.Is(err, ErrMissingIdentity) {
		t.Errorf("err = %v, want ErrMissingIdentity", err)
	}
}

// stubAuthority implements repository.Authority with injectable failures.
type stubAuthority struct {
	*repository.MemoryRepository
	listErr   error
	revokeErr error
	block     bool
}

func (s *stubAuthority) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.MemoryRepository.ListActiveByUser(ctx, userID)
}

func (s *stubAuthority) Revoke(ctx context.Context, id string) error {
	if s.revokeErr != nil {
		return s.revokeErr
	}
	return s.MemoryRepository.Revoke(ctx, id)
}

func TestEnforce_AuthorityErrorFailsOpen(t *testing.T) {
	stub := &stubAuthority{MemoryRepository: repository.NewMemoryRepository(), listErr: errors.New("503 from identity service")}
	res, err := NewEnforcer(stub).Enforce(context.Background(), "user-1", "A")
	if err != nil {
		t.Fatalf("Enforce: %v", err)
	}
	if !res.Decision.Allowed || !res.FailedOpen {
		t.Errorf("Enforce = %+v, want allowed and failed open", res)
	}
}

func TestEnforce_AuthorityTimeoutFailsOpen(t *testing.T) {
	stub := &stubAuthority{MemoryRepository: repository.NewMemoryRepository(), block: true}
	e := NewEnforcer(stub, WithTimeout(20*time.Millisecond))

	start := time.Now()
	res, err := e.Enforce(context.Background(), "user-1", "A")
	if err != nil {
		t.Fatalf("Enforce: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Enforce took %v, want bounded by timeout", elapsed)
	}
	if !res.Decision.Allowed || !res.FailedOpen {
		t.Errorf("Enforce = %+v, want allowed and failed open", res)
	}
}

func TestEnforce_AuthorityErrorFailsClosedWhenConfigured(t *testing.T) {
	stub := &stubAuthority{MemoryRepository: repository.NewMemoryRepository(), listErr: errors.New("down")}
	e := NewEnforcer(stub, WithFailurePolicy(admissiondomain.FailClosed))
	res, err := e.Enforce(context.Background(), "user-1", "A")
	if err != nil {
		t.Fatalf("Enforce: %v", err)
	}
	if res.Decision.Allowed || !res.Decision.Unavailable || res.FailedOpen {
		t.Errorf("Enforce = %+v, want unavailable deny", res)
	}
}

func TestEnforce_RevokeErrorFailsOpen(t *testing.T) {
	stub := &stubAuthority{MemoryRepository: repository.NewMemoryRepository()}
	seed(t, stub.MemoryRepository, "user-1", "A", "B")
	stub.revokeErr = errors.New("write timeout")

	res, err := NewEnforcer(stub).Enforce(context.Background(), "user-1", "B")
	if err != nil {
		t.Fatalf("Enforce: %v", err)
	}
	if !res.Decision.Allowed || !res.FailedOpen {
		t.Errorf("Enforce = %+v, want allowed and failed open", res)
	}

	// Once the authority recovers, a retry finishes the job.
	stub.revokeErr = nil
	res, _ = NewEnforcer(stub).Enforce(context.Background(), "user-1", "B")
	if !res.Decision.Allowed || len(res.Revoked) != 1 || res.Revoked[0] != "A" {
		t.Errorf("retry = %+v, want A revoked", res)
	}
}

func TestEnforce_CancelledCallerLeavesConvergentState(t *testing.T) {
	repo := repository.NewMemoryRepository()
	seed(t, repo, "user-1", "A", "B", "C")
	e := NewEnforcer(repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Enforce(ctx, "user-1", "C"); err != nil {
		t.Fatalf("Enforce cancelled: %v", err)
	}

	res, err := e.Enforce(context.Background(), "user-1", "C")
	if err != nil {
		t.Fatalf("Enforce: %v", err)
	}
	if !res.Decision.Allowed {
		t.Fatalf("Decision = %v", res.Decision)
	}
	if got := activeIDs(t, repo, "user-1"); len(got) != 1 || got[0] != "C" {
		t.Errorf("active = %v, want [C]", got)
	}
}

func TestEnforce_ConcurrentSessionsOfSameUser(t *testing.T) {
	repo := repository.NewMemoryRepository()
	seed(t, repo, "user-1", "A", "B")

	e := NewEnforcer(repo)

	results := make([]Result, 2)
	var wg sync.WaitGroup
	for i, id := range []string{"A", "B"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.Enforce(context.Background(), "user-1", id)
			if err != nil {
				t.Errorf("Enforce %s: %v", id, err)
			}
			results[i] = res
		}()
	}
	wg.Wait()

	allowed, revokedTotal := 0, 0
	for _, r := range results {
		revokedTotal += len(r.Revoked)
		if r.Decision.Allowed {
			allowed++
		} else if r.Decision.Reason != admissiondomain.ReasonSessionSuperseded {
			t.Errorf("loser decision = %v", r.Decision)
		}
	}
	if allowed != 1 {
		t.Errorf("allowed = %d, want exactly 1", allowed)
	}
	if got := activeIDs(t, repo, "user-1"); len(got) != 1 {
		t.Errorf("active = %v, want one session", got)
	}
	if revokedTotal != 1 {
		t.Errorf("revoked total = %d, want 1", revokedTotal)
	}
	if n := e.locks.len(); n != 0 {
		t.Errorf("key locks leaked: %d", n)
	}
}

func TestEnforce_UsersAreIsolated(t *testing.T) {
	repo := repository.NewMemoryRepository()
	seed(t, repo, "user-1", "A1", "B1")
	seed(t, repo, "user-2", "A2", "B2")

	if _, err := NewEnforcer(repo).Enforce(context.Background(), "user-1", "B1"); err != nil {
		t.Fatalf("Enforce: %v", err)
	}
	if got := activeIDs(t, repo, "user-2"); len(got) != 2 {
		t.Errorf("user-2 active = %v, want untouched", got)
	}
}

func TestEnforce_WaitForUserLockHonoursCallerDeadline(t *testing.T) {
	stub := &stubAuthority{MemoryRepository: repository.NewMemoryRepository(), block: true}
	e := NewEnforcer(stub, WithTimeout(time.Second))

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, _ = e.Enforce(context.Background(), "user-1", "A")
	}()
	// Wait until the first enforcement holds the user's lock.
	deadline := time.Now().Add(time.Second)
	for e.locks.len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	res, err := e.Enforce(ctx, "user-1", "B")
	if err != nil {
		t.Fatalf("Enforce: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("second Enforce took %v, want bounded by its own deadline", elapsed)
	}
	if !res.Decision.Allowed || !res.FailedOpen {
		t.Errorf("Enforce = %+v, want allowed and failed open", res)
	}
	<-firstDone
	if n := e.locks.len(); n != 0 {
		t.Errorf("key locks leaked: %d", n)
	}
}

func TestEnforce_ExpiredCallerFailsClosedWhenConfigured(t *testing.T) {
	repo := repository.NewMemoryRepository()
	seed(t, repo, "user-1", "A")
	e := NewEnforcer(repo, WithFailurePolicy(admissiondomain.FailClosed))

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	res, err := e.Enforce(ctx, "user-1", "A")
	if err != nil {
		t.Fatalf("Enforce: %v", err)
	}
	if res.Decision.Allowed || !res.Decision.Unavailable {
		t.Errorf("Enforce = %+v, want unavailable deny", res)
	}
}

func TestEnforce_RegistrarAdmitsFirstSightSession(t *testing.T) {
	repo := repository.NewMemoryRepository()
	e := NewEnforcer(repo, WithRegistrar(repo))

	res, err := e.Enforce(context.Background(), "user-1", "A")
	if err != nil {
		t.Fatalf("Enforce: %v", err)
	}
	if !res.Decision.Allowed {
		t.Fatalf("Decision = %v, want allow for an unseen session", res.Decision)
	}

	// A newer login wins; the older session stays revoked rather than being registered again.
	res, _ = e.Enforce(context.Background(), "user-1", "B")
	if !res.Decision.Allowed || len(res.Revoked) != 1 || res.Revoked[0] != "A" {
		t.Fatalf("newer session = %+v, want A revoked", res)
	}
	res, _ = e.Enforce(context.Background(), "user-1", "A")
	if res.Decision.Allowed || res.Decision.Reason != admissiondomain.ReasonSessionSuperseded {
		t.Errorf("old session = %v, want deny(session_superseded)", res.Decision)
	}
	if got := activeIDs(t, repo, "user-1"); len(got) != 1 || got[0] != "B" {
		t.Errorf("active = %v, want [B]", got)
	}
}
