package musehub

import "context"

// PullRequestParams is the pull protocol's request body (distinct from
// the PullRequest domain type).
type PullRequestParams struct {
	Branch      string
	HaveCommits []string
	HaveObjects []string
	Rebase      bool
	FFOnly      bool
}

// PullResult carries the commits/objects the client lacks.
type PullResult struct {
	Commits    []Commit
	Objects    []Object
	RemoteHead string
	Diverged   bool
}

// Pull returns everything reachable from the branch's current head that
// the client's have-sets don't already contain, plus whether any of the
// client's have_commits is not ancestral to the remote head (diverged).
func (s *Service) Pull(ctx context.Context, repoID string, req PullRequestParams) (PullResult, error) {
	branch, err := s.Store.GetBranch(ctx, repoID, req.Branch)
	if err != nil {
		return PullResult{}, err
	}

	ancestors, err := s.Store.Ancestors(ctx, repoID, branch.HeadCommitID)
	if err != nil {
		return PullResult{}, err
	}

	have := make(map[string]bool, len(req.HaveCommits))
	for _, id := range req.HaveCommits {
		have[id] = true
	}

	var missing []Commit

	for id := range ancestors {
		if have[id] {
			continue
		}

		c, err := s.Store.GetCommit(ctx, repoID, id)
		if err != nil {
			continue
		}

		missing = append(missing, c)
	}

	haveObjects := make(map[string]bool, len(req.HaveObjects))
	for _, id := range req.HaveObjects {
		haveObjects[id] = true
	}

	objects := objectsForCommits(missing, haveObjects)

	diverged := false

	for _, id := range req.HaveCommits {
		if !ancestors[id] {
			diverged = true
			break
		}
	}

	return PullResult{
		Commits:    missing,
		Objects:    objects,
		RemoteHead: branch.HeadCommitID,
		Diverged:   diverged,
	}, nil
}

func objectsForCommits(commits []Commit, have map[string]bool) []Object {
	var out []Object

	for _, c := range commits {
		if c.SnapshotID == "" || have[c.SnapshotID] {
			continue
		}

		out = append(out, Object{ObjectID: c.SnapshotID})
	}

	return out
}
