package musehub

import (
	"context"
	"sync"

	"github.com/cgcardona/maestro/pkg/mlog"
	"github.com/cgcardona/maestro/pkg/mredis"
)

// Service implements the VCS core's repository, branch, commit, PR,
// push/pull/fetch/clone, and merge operations against a Store.
type Service struct {
	Store   Store
	Cache   *mredis.BranchHeadCache // optional; nil disables caching
	Objects ObjectStore             // optional; nil disables asset delivery
	Events  EventPublisher          // optional; nil disables event publishing
	Logger  mlog.Logger

	mu          sync.Mutex
	branchLocks map[string]*sync.Mutex
}

// NewService builds a Service. cache, objects, and events may all be
// nil.
func NewService(store Store, cache *mredis.BranchHeadCache, objects ObjectStore, logger mlog.Logger) *Service {
	if logger == nil {
		logger = &mlog.NoneLogger{}
	}

	return &Service{
		Store:       store,
		Cache:       cache,
		Objects:     objects,
		Logger:      logger,
		branchLocks: make(map[string]*sync.Mutex),
	}
}

func (s *Service) branchLock(repoID, name string) *sync.Mutex {
	if im, ok := s.Store.(*InMemoryStore); ok {
		return im.BranchLock(repoID, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := repoID + "/" + name

	l, ok := s.branchLocks[key]
	if !ok {
		l = &sync.Mutex{}
		s.branchLocks[key] = l
	}

	return l
}

func (s *Service) invalidateBranchHeadCache(ctx context.Context, repoID, branch string) {
	if s.Cache == nil {
		return
	}

	if err := s.Cache.Invalidate(ctx, repoID, branch); err != nil {
		s.Logger.Warnf("musehub: branch head cache invalidation failed for %s/%s: %v", repoID, branch, err)
	}
}

// resolveBranchHead reads a branch head through the cache when present,
// falling back to the durable store on a miss and writing through.
func (s *Service) resolveBranchHead(ctx context.Context, repoID, branch string) (string, error) {
	if s.Cache != nil {
		if head, ok := s.Cache.Get(ctx, repoID, branch); ok {
			return head, nil
		}
	}

	b, err := s.Store.GetBranch(ctx, repoID, branch)
	if err != nil {
		return "", err
	}

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, repoID, branch, b.HeadCommitID); err != nil {
			s.Logger.Warnf("musehub: branch head cache write failed for %s/%s: %v", repoID, branch, err)
		}
	}

	return b.HeadCommitID, nil
}
