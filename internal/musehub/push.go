package musehub

import (
	"context"

	"github.com/cgcardona/maestro/pkg/merrors"
)

// PushRequest is the push protocol's request body.
type PushRequest struct {
	Branch             string
	HeadCommitID       string
	Commits            []Commit
	Objects            []Object
	Force              bool
	ForceWithLease      bool
	ExpectedRemoteHead string
	Tags               []Tag
}

// PushResult reports the branch's new head after a successful push.
type PushResult struct {
	Branch    string
	HeadID    string
	Message   string
}

// Push applies req against repoID's branch, enforcing fast-forward
// unless force or force-with-lease authorizes an overwrite. Branch head
// updates are serialised per branch.
func (s *Service) Push(ctx context.Context, repoID string, req PushRequest) (PushResult, error) {
	if _, err := s.Store.GetRepo(ctx, repoID); err != nil {
		return PushResult{}, err
	}

	lock := s.branchLock(repoID, req.Branch)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.Store.GetBranch(ctx, repoID, req.Branch)
	currentHead := ""

	if err == nil {
		currentHead = current.HeadCommitID
	} else if _, ok := err.(merrors.NotFoundError); !ok {
		return PushResult{}, err
	}

	fastForward, err := s.isFastForward(ctx, repoID, currentHead, req.HeadCommitID)
	if err != nil {
		return PushResult{}, err
	}

	switch {
	case fastForward:
		// accept below
	case req.ForceWithLease:
		if req.ExpectedRemoteHead != currentHead {
			return PushResult{}, merrors.ConflictError{
				Code:    "LEASE_MISMATCH",
				Message: "remote advanced since expected_remote_head was read",
				Details: map[string]any{"currentHead": currentHead},
			}
		}
	case req.Force:
		// accept below unconditionally
	default:
		return PushResult{}, merrors.ConflictError{
			Code:    "NON_FAST_FORWARD",
			Message: "push rejected: not a fast-forward of the current branch head",
			Details: map[string]any{"currentHead": currentHead},
		}
	}

	for _, c := range req.Commits {
		exists, err := s.Store.HasCommit(ctx, repoID, c.CommitID)
		if err != nil {
			return PushResult{}, err
		}

		if exists {
			continue
		}

		if err := s.Store.PutCommit(ctx, c); err != nil {
			return PushResult{}, err
		}
	}

	for _, o := range req.Objects {
		exists, err := s.Store.HasObject(ctx, repoID, o.ObjectID)
		if err != nil {
			return PushResult{}, err
		}

		if exists {
			continue
		}

		if err := s.Store.PutObject(ctx, repoID, o); err != nil {
			return PushResult{}, err
		}
	}

	if err := s.Store.UpsertBranch(ctx, Branch{RepoID: repoID, Name: req.Branch, HeadCommitID: req.HeadCommitID}); err != nil {
		return PushResult{}, err
	}

	for _, t := range req.Tags {
		t.RepoID = repoID
		if err := s.Store.UpsertTag(ctx, t); err != nil {
			return PushResult{}, err
		}
	}

	s.invalidateBranchHeadCache(ctx, repoID, req.Branch)

	s.publishEvent(ctx, "push", map[string]any{
		"repoId": repoID,
		"branch": req.Branch,
		"headId": req.HeadCommitID,
	})

	return PushResult{Branch: req.Branch, HeadID: req.HeadCommitID, Message: "ok"}, nil
}

// isFastForward reports whether moving a branch from currentHead to
// newHead is a fast-forward: currentHead is absent (new branch), equal to
// newHead, or an ancestor of newHead.
func (s *Service) isFastForward(ctx context.Context, repoID, currentHead, newHead string) (bool, error) {
	if currentHead == "" {
		return true, nil
	}

	ancestors, err := s.Store.Ancestors(ctx, repoID, newHead)
	if err != nil {
		return false, err
	}

	return ancestors[currentHead], nil
}
