package rbac

import (
	"context"
	"sync"
)

type storeCall struct {
	userID    int64
	companyID *int64
	guard     string
}

// fakeStore answers from in-memory grants keyed by company id; 0 is global.
type fakeStore struct {
	mu     sync.Mutex
	grants map[int64][]string
	all    []string
	err    error
	calls  []storeCall
	allHit int
}

func (f *fakeStore) EffectivePermissionNames(_ context.Context, userID int64, companyID *int64, guard string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, storeCall{userID: userID, companyID: companyID, guard: guard})
	if f.err != nil {
		return nil, f.err
	}
	if companyID == nil {
		return f.grants[0], nil
	}
	return f.grants[*companyID], nil
}

func (f *fakeStore) PermissionNames(context.Context, string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allHit++
	if f.err != nil {
		return nil, f.err
	}
	return f.all, nil
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type decision struct {
	resource string
	rule     string
	allowed  bool
}

type fakeRecorder struct {
	decisions []decision
}

func (f *fakeRecorder) RecordAuthzDecision(resource, rule string, allowed bool) {
	f.decisions = append(f.decisions, decision{resource: resource, rule: rule, allowed: allowed})
}
