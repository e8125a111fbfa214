package musehub

import "context"

// FetchRequest lists branches to fetch; empty means all.
type FetchRequest struct {
	Branches []string
}

// FetchBranchResult is one branch's head, without transferring objects.
// IsNew is advisory: the CLI overrides it from local tracking state.
type FetchBranchResult struct {
	Branch       string
	HeadCommitID string
	IsNew        bool
}

// Fetch returns per-branch heads for the requested branches (or all
// branches when req.Branches is empty), without transferring any
// objects.
func (s *Service) Fetch(ctx context.Context, repoID string, req FetchRequest) ([]FetchBranchResult, error) {
	var branches []Branch

	if len(req.Branches) == 0 {
		all, err := s.Store.ListBranches(ctx, repoID)
		if err != nil {
			return nil, err
		}

		branches = all
	} else {
		for _, name := range req.Branches {
			b, err := s.Store.GetBranch(ctx, repoID, name)
			if err != nil {
				continue
			}

			branches = append(branches, b)
		}
	}

	out := make([]FetchBranchResult, 0, len(branches))
	for _, b := range branches {
		out = append(out, FetchBranchResult{Branch: b.Name, HeadCommitID: b.HeadCommitID, IsNew: true})
	}

	return out, nil
}
