// Package filing is the boundary to the external case-management service.
// Only the interface is owned here; the production HTTP client lives outside
// this core.
package filing

import (
	"context"
	"fmt"
	"sync"
	"time"

	id "renoflow/pkg/domain"
	"renoflow/pkg/platform/sentinel"
)

// FileRef identifies a case file created in the external service.
type FileRef struct {
	FileID     string
	FileNumber string
	URL        string
}

// FileState is one observation of an external file's status.
type FileState struct {
	Status      id.CaseStatus
	SubmittedAt *time.Time
	ProcessedAt *time.Time
}

// Client is the consumed case-management API.
type Client interface {
	CreateFile(ctx context.Context, userID id.UserID, step id.Step, data map[string]string) (FileRef, error)
	GetFile(ctx context.Context, userID id.UserID, step id.Step) (FileState, error)
}

// Fake is an in-memory Client for tests and the dev wiring path. Statuses
// are scripted per (user, step).
type Fake struct {
	mu      sync.Mutex
	seq     int
	states  map[fakeKey]FileState
	created map[fakeKey]FileRef

	// CreateErr and GetErr, when set, fail the corresponding call.
	CreateErr error
	GetErr    error
}

type fakeKey struct {
	userID id.UserID
	step   id.Step
}

func NewFake() *Fake {
	return &Fake{
		states:  make(map[fakeKey]FileState),
		created: make(map[fakeKey]FileRef),
	}
}

func (f *Fake) CreateFile(_ context.Context, userID id.UserID, step id.Step, _ map[string]string) (FileRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return FileRef{}, f.CreateErr
	}
	f.seq++
	ref := FileRef{
		FileID:     "file-" + step.String(),
		FileNumber: fmt.Sprintf("N-%06d", f.seq),
		URL:        "https://cases.example/" + step.String(),
	}
	key := fakeKey{userID: userID, step: step}
	f.created[key] = ref
	if _, ok := f.states[key]; !ok {
		f.states[key] = FileState{Status: id.CaseStatusDrafting}
	}
	return ref, nil
}

func (f *Fake) GetFile(_ context.Context, userID id.UserID, step id.Step) (FileState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetErr != nil {
		return FileState{}, f.GetErr
	}
	state, ok := f.states[fakeKey{userID: userID, step: step}]
	if !ok {
		return FileState{}, sentinel.ErrNotFound
	}
	return state, nil
}

// SetState scripts the external status for a (user, step) pair.
func (f *Fake) SetState(userID id.UserID, step id.Step, state FileState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[fakeKey{userID: userID, step: step}] = state
}
