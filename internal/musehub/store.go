package musehub

import "context"

// Store is the durable persistence port the VCS core depends on. The
// default in-process implementation is InMemoryStore; musehub/postgres
// provides the durable pgx-backed implementation.
type Store interface {
	GetRepo(ctx context.Context, repoID string) (Repo, error)
	GetRepoByOwnerSlug(ctx context.Context, owner, slug string) (Repo, error)
	CreateRepo(ctx context.Context, repo Repo) error

	GetBranch(ctx context.Context, repoID, name string) (Branch, error)
	UpsertBranch(ctx context.Context, branch Branch) error
	ListBranches(ctx context.Context, repoID string) ([]Branch, error)
	DeleteBranch(ctx context.Context, repoID, name string) error

	GetCommit(ctx context.Context, repoID, commitID string) (Commit, error)
	HasCommit(ctx context.Context, repoID, commitID string) (bool, error)
	PutCommit(ctx context.Context, commit Commit) error
	// Ancestors returns commitID's full ancestor set (inclusive), walking
	// ParentIDs transitively. Used for fast-forward and divergence checks.
	Ancestors(ctx context.Context, repoID, commitID string) (map[string]bool, error)

	HasObject(ctx context.Context, repoID, objectID string) (bool, error)
	PutObject(ctx context.Context, repoID string, obj Object) error

	GetTag(ctx context.Context, repoID, name string) (Tag, error)
	UpsertTag(ctx context.Context, tag Tag) error

	GetPullRequest(ctx context.Context, repoID, prID string) (PullRequest, error)
	CreatePullRequest(ctx context.Context, pr PullRequest) error
	UpdatePullRequest(ctx context.Context, pr PullRequest) error
	ListPullRequests(ctx context.Context, repoID string, state *PRState) ([]PullRequest, error)
}
