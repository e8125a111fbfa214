package musehub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pushChain(t *testing.T, svc *Service, repoID, branch string, commits ...Commit) {
	t.Helper()

	for _, c := range commits {
		force := len(c.ParentIDs) == 0
		_, err := svc.Push(context.Background(), repoID, PushRequest{
			Branch:       branch,
			HeadCommitID: c.CommitID,
			Commits:      []Commit{c},
			Force:        force,
		})
		require.NoError(t, err)
	}
}

func TestPullReturnsOnlyMissingCommits(t *testing.T) {
	svc := newTestService()
	seedRepo(t, svc, "repo1")

	c1 := Commit{CommitID: "c1", RepoID: "repo1", Branch: "main", Timestamp: time.Unix(1, 0)}
	c2 := Commit{CommitID: "c2", RepoID: "repo1", Branch: "main", ParentIDs: []string{"c1"}, Timestamp: time.Unix(2, 0)}
	pushChain(t, svc, "repo1", "main", c1, c2)

	res, err := svc.Pull(context.Background(), "repo1", PullRequestParams{Branch: "main", HaveCommits: []string{"c1"}})
	require.NoError(t, err)

	require.Len(t, res.Commits, 1)
	assert.Equal(t, "c2", res.Commits[0].CommitID)
	assert.Equal(t, "c2", res.RemoteHead)
	assert.False(t, res.Diverged)
}

func TestPullDetectsDivergence(t *testing.T) {
	svc := newTestService()
	seedRepo(t, svc, "repo1")

	c1 := Commit{CommitID: "c1", RepoID: "repo1", Branch: "main", Timestamp: time.Unix(1, 0)}
	pushChain(t, svc, "repo1", "main", c1)

	res, err := svc.Pull(context.Background(), "repo1", PullRequestParams{
		Branch:      "main",
		HaveCommits: []string{"some-other-commit-not-ancestral"},
	})
	require.NoError(t, err)
	assert.True(t, res.Diverged)
}

func TestFetchListsAllBranchesWhenNoneRequested(t *testing.T) {
	svc := newTestService()
	seedRepo(t, svc, "repo1")

	c1 := Commit{CommitID: "c1", RepoID: "repo1", Branch: "main", Timestamp: time.Unix(1, 0)}
	pushChain(t, svc, "repo1", "main", c1)

	feat := Commit{CommitID: "f1", RepoID: "repo1", Branch: "feature", Timestamp: time.Unix(1, 0)}
	pushChain(t, svc, "repo1", "feature", feat)

	results, err := svc.Fetch(context.Background(), "repo1", FetchRequest{})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestFetchSkipsUnknownBranches(t *testing.T) {
	svc := newTestService()
	seedRepo(t, svc, "repo1")

	c1 := Commit{CommitID: "c1", RepoID: "repo1", Branch: "main", Timestamp: time.Unix(1, 0)}
	pushChain(t, svc, "repo1", "main", c1)

	results, err := svc.Fetch(context.Background(), "repo1", FetchRequest{Branches: []string{"main", "does-not-exist"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "main", results[0].Branch)
}

func TestCloneWalksFirstParentChainWithDepthBound(t *testing.T) {
	svc := newTestService()
	seedRepo(t, svc, "repo1")

	c1 := Commit{CommitID: "c1", RepoID: "repo1", Branch: "main", Timestamp: time.Unix(1, 0)}
	c2 := Commit{CommitID: "c2", RepoID: "repo1", Branch: "main", ParentIDs: []string{"c1"}, Timestamp: time.Unix(2, 0)}
	c3 := Commit{CommitID: "c3", RepoID: "repo1", Branch: "main", ParentIDs: []string{"c2"}, Timestamp: time.Unix(3, 0)}
	pushChain(t, svc, "repo1", "main", c1, c2, c3)

	res, err := svc.Clone(context.Background(), "repo1", CloneRequest{Branch: "main", Depth: 2})
	require.NoError(t, err)

	require.Len(t, res.Commits, 2)
	assert.Equal(t, "c3", res.Commits[0].CommitID)
	assert.Equal(t, "c2", res.Commits[1].CommitID)
	assert.Equal(t, "c3", res.RemoteHead)
}

func TestCloneFallsBackToDefaultBranch(t *testing.T) {
	svc := newTestService()
	seedRepo(t, svc, "repo1")

	c1 := Commit{CommitID: "c1", RepoID: "repo1", Branch: "main", Timestamp: time.Unix(1, 0)}
	pushChain(t, svc, "repo1", "main", c1)

	res, err := svc.Clone(context.Background(), "repo1", CloneRequest{})
	require.NoError(t, err)
	assert.Equal(t, "main", res.DefaultBranch)
	assert.Equal(t, "c1", res.RemoteHead)
}
