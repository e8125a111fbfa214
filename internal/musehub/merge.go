package musehub

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cgcardona/maestro/pkg/merrors"
)

// CreatePullRequest opens a new PR proposing fromBranch merge into
// toBranch.
func (s *Service) CreatePullRequest(ctx context.Context, repoID, title, body, fromBranch, toBranch string) (PullRequest, error) {
	pr := PullRequest{
		PRID:       uuid.NewString(),
		RepoID:     repoID,
		Title:      title,
		Body:       body,
		State:      PROpen,
		FromBranch: fromBranch,
		ToBranch:   toBranch,
		CreatedAt:  time.Now(),
	}

	if err := s.Store.CreatePullRequest(ctx, pr); err != nil {
		return PullRequest{}, err
	}

	return pr, nil
}

// MergeResult carries the newly created merge commit.
type MergeResult struct {
	MergeCommitID string
	ToBranch      string
	NewHead       string
}

// Merge applies the merge_commit strategy (the only one supported at
// v1): creates a commit on pr.ToBranch whose parents are
// [toBranch.head, fromBranch.head] (order matters — first parent is the
// receiving branch), advances ToBranch's head, and transitions the PR
// open->merged atomically with the new commit's creation. Rejects if
// either branch has no commits.
func (s *Service) Merge(ctx context.Context, repoID, prID, author, message string) (MergeResult, error) {
	pr, err := s.Store.GetPullRequest(ctx, repoID, prID)
	if err != nil {
		return MergeResult{}, err
	}

	if pr.State != PROpen {
		return MergeResult{}, merrors.ConflictError{
			Code:    "PR_NOT_OPEN",
			Message: "pull request is not open",
			Details: map[string]any{"currentState": string(pr.State)},
		}
	}

	lock := s.branchLock(repoID, pr.ToBranch)
	lock.Lock()
	defer lock.Unlock()

	toBranch, err := s.Store.GetBranch(ctx, repoID, pr.ToBranch)
	if err != nil {
		return MergeResult{}, merrors.ConflictError{Code: "EMPTY_BRANCH", Message: "to_branch has no commits"}
	}

	fromBranch, err := s.Store.GetBranch(ctx, repoID, pr.FromBranch)
	if err != nil {
		return MergeResult{}, merrors.ConflictError{Code: "EMPTY_BRANCH", Message: "from_branch has no commits"}
	}

	if toBranch.HeadCommitID == "" || fromBranch.HeadCommitID == "" {
		return MergeResult{}, merrors.ConflictError{Code: "EMPTY_BRANCH", Message: "both branches must have at least one commit"}
	}

	now := time.Now()
	parents := []string{toBranch.HeadCommitID, fromBranch.HeadCommitID}
	commitID := CommitID(parents, "", message, author, now)

	mergeCommit := Commit{
		CommitID:  commitID,
		RepoID:    repoID,
		Branch:    pr.ToBranch,
		ParentIDs: parents,
		Message:   message,
		Author:    author,
		Timestamp: now,
		Metadata:  map[string]any{"merge": true, "prId": pr.PRID},
	}

	if err := s.Store.PutCommit(ctx, mergeCommit); err != nil {
		return MergeResult{}, err
	}

	if err := s.Store.UpsertBranch(ctx, Branch{RepoID: repoID, Name: pr.ToBranch, HeadCommitID: commitID}); err != nil {
		return MergeResult{}, err
	}

	s.invalidateBranchHeadCache(ctx, repoID, pr.ToBranch)

	pr.State = PRMerged
	pr.MergeCommitID = commitID

	if err := s.Store.UpdatePullRequest(ctx, pr); err != nil {
		return MergeResult{}, err
	}

	s.publishEvent(ctx, "merge", map[string]any{
		"repoId":        repoID,
		"prId":          pr.PRID,
		"toBranch":      pr.ToBranch,
		"mergeCommitId": commitID,
	})

	return MergeResult{MergeCommitID: commitID, ToBranch: pr.ToBranch, NewHead: commitID}, nil
}

// ClosePullRequest transitions an open PR to closed without merging.
func (s *Service) ClosePullRequest(ctx context.Context, repoID, prID string) error {
	pr, err := s.Store.GetPullRequest(ctx, repoID, prID)
	if err != nil {
		return err
	}

	if pr.State != PROpen {
		return merrors.ConflictError{Code: "PR_NOT_OPEN", Message: "pull request is not open"}
	}

	pr.State = PRClosed

	return s.Store.UpdatePullRequest(ctx, pr)
}
