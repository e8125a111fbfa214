package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cgcardona/maestro/internal/variation/statemachine"
	"github.com/cgcardona/maestro/pkg/merrors"
)

// VariationStore is the in-process map of variationId -> Record.
type VariationStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewVariationStore builds an empty VariationStore.
func NewVariationStore() *VariationStore {
	return &VariationStore{records: make(map[string]*Record)}
}

// Create mints a fresh variationId and registers a CREATED record.
func (s *VariationStore) Create(projectID, baseStateID, intent string) *Record {
	now := time.Now()

	r := &Record{
		VariationID: uuid.NewString(),
		ProjectID:   projectID,
		BaseStateID: baseStateID,
		Intent:      intent,
		Status:      statemachine.Created,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	s.records[r.VariationID] = r
	s.mu.Unlock()

	return r
}

// Get returns the record for variationID.
func (s *VariationStore) Get(variationID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[variationID]
	if !ok {
		return nil, merrors.NotFoundError{EntityType: "variation", Message: "variation not found: " + variationID}
	}

	return r, nil
}

// Transition validates and applies a state-machine transition on the
// record for variationID.
func (s *VariationStore) Transition(variationID string, to statemachine.Status) error {
	r, err := s.Get(variationID)
	if err != nil {
		return err
	}

	return r.Transition(to)
}

// Delete removes a record outright (used by tests and administrative
// cleanup, not by the normal lifecycle which prefers terminal states).
func (s *VariationStore) Delete(variationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, variationID)
}

// ListForProject returns records for projectID, optionally filtered to a
// single status.
func (s *VariationStore) ListForProject(projectID string, status *statemachine.Status) []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Record

	for _, r := range s.records {
		if r.ProjectID != projectID {
			continue
		}

		if status != nil && r.SnapshotStatus() != *status {
			continue
		}

		out = append(out, r)
	}

	return out
}

// CleanupExpired transitions every non-terminal record older than
// maxAge to EXPIRED, returning the transitioned variation IDs.
func (s *VariationStore) CleanupExpired(maxAge time.Duration) []string {
	s.mu.RLock()
	candidates := make([]*Record, 0, len(s.records))

	for _, r := range s.records {
		candidates = append(candidates, r)
	}

	s.mu.RUnlock()

	var expired []string

	now := time.Now()

	for _, r := range candidates {
		status := r.SnapshotStatus()
		if statemachine.IsTerminal(status) {
			continue
		}

		if now.Sub(r.CreatedAt) <= maxAge {
			continue
		}

		if err := r.Transition(statemachine.Expired); err == nil {
			expired = append(expired, r.VariationID)
		}
	}

	return expired
}
