package musehub

import (
	"context"
	"strings"

	"github.com/cgcardona/maestro/pkg/merrors"
)

// CloneRequest is the clone protocol's request body.
type CloneRequest struct {
	Branch      string
	Depth       int
	SingleTrack string
}

// CloneResult is everything the client needs to build a local .muse/
// structure and (optionally) a working directory.
type CloneResult struct {
	RepoID        string
	DefaultBranch string
	RemoteHead    string
	Commits       []Commit
	Objects       []Object
}

// Clone returns the repo's commits and objects reachable from the
// requested branch (or its default branch), optionally shallow (Depth)
// and/or filtered to a single track's first path component
// (SingleTrack).
func (s *Service) Clone(ctx context.Context, repoID string, req CloneRequest) (CloneResult, error) {
	repo, err := s.Store.GetRepo(ctx, repoID)
	if err != nil {
		return CloneResult{}, err
	}

	branchName := req.Branch
	if branchName == "" {
		branchName = repo.DefaultBranch
	}

	branch, err := s.Store.GetBranch(ctx, repoID, branchName)
	if err != nil {
		// A repo whose default branch has no commits yet clones as empty.
		if _, ok := err.(merrors.NotFoundError); !ok || req.Branch != "" {
			return CloneResult{}, err
		}
	}

	commits, err := s.commitChain(ctx, repoID, branch.HeadCommitID, req.Depth)
	if err != nil {
		return CloneResult{}, err
	}

	if req.SingleTrack != "" {
		commits = filterSingleTrack(commits, req.SingleTrack)
	}

	var objects []Object

	for _, c := range commits {
		if c.SnapshotID == "" {
			continue
		}

		exists, err := s.Store.HasObject(ctx, repoID, c.SnapshotID)
		if err != nil || !exists {
			continue
		}

		objects = append(objects, Object{ObjectID: c.SnapshotID})
	}

	return CloneResult{
		RepoID:        repoID,
		DefaultBranch: repo.DefaultBranch,
		RemoteHead:    branch.HeadCommitID,
		Commits:       commits,
		Objects:       objects,
	}, nil
}

// commitChain walks a commit's first-parent history up to depth commits
// (0 = unbounded), returning them oldest-last (head first).
func (s *Service) commitChain(ctx context.Context, repoID, headID string, depth int) ([]Commit, error) {
	var chain []Commit

	id := headID

	for id != "" {
		if depth > 0 && len(chain) >= depth {
			break
		}

		c, err := s.Store.GetCommit(ctx, repoID, id)
		if err != nil {
			if _, ok := err.(merrors.NotFoundError); ok {
				break
			}

			return nil, err
		}

		chain = append(chain, c)

		if len(c.ParentIDs) == 0 {
			break
		}

		id = c.ParentIDs[0]
	}

	return chain, nil
}

// filterSingleTrack keeps only commits whose metadata["paths"] includes
// an entry whose first path component matches track.
func filterSingleTrack(commits []Commit, track string) []Commit {
	var out []Commit

	for _, c := range commits {
		var paths []string

		switch v := c.Metadata["paths"].(type) {
		case []string:
			paths = v
		case []any:
			for _, p := range v {
				if s, ok := p.(string); ok {
					paths = append(paths, s)
				}
			}
		}

		for _, p := range paths {
			if strings.SplitN(p, "/", 2)[0] == track {
				out = append(out, c)
				break
			}
		}
	}

	return out
}
