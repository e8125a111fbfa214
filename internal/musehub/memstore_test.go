package musehub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRepoRejectsDuplicateOwnerSlug(t *testing.T) {
	store := NewInMemoryStore()

	repo := Repo{RepoID: "r1", Owner: "alice", Slug: "song", CreatedAt: time.Unix(0, 0)}
	require.NoError(t, store.CreateRepo(context.Background(), repo))

	dup := Repo{RepoID: "r2", Owner: "alice", Slug: "song", CreatedAt: time.Unix(0, 0)}
	err := store.CreateRepo(context.Background(), dup)
	require.Error(t, err)
}

func TestGetRepoByOwnerSlugResolvesCreatedRepo(t *testing.T) {
	store := NewInMemoryStore()

	repo := Repo{RepoID: "r1", Owner: "alice", Slug: "song", CreatedAt: time.Unix(0, 0)}
	require.NoError(t, store.CreateRepo(context.Background(), repo))

	found, err := store.GetRepoByOwnerSlug(context.Background(), "alice", "song")
	require.NoError(t, err)
	assert.Equal(t, "r1", found.RepoID)
}

func TestAncestorsWalksTransitiveParents(t *testing.T) {
	store := NewInMemoryStore()

	require.NoError(t, store.PutCommit(context.Background(), Commit{CommitID: "c1", RepoID: "repo1"}))
	require.NoError(t, store.PutCommit(context.Background(), Commit{CommitID: "c2", RepoID: "repo1", ParentIDs: []string{"c1"}}))
	require.NoError(t, store.PutCommit(context.Background(), Commit{CommitID: "c3", RepoID: "repo1", ParentIDs: []string{"c2"}}))

	ancestors, err := store.Ancestors(context.Background(), "repo1", "c3")
	require.NoError(t, err)

	assert.True(t, ancestors["c1"])
	assert.True(t, ancestors["c2"])
	assert.True(t, ancestors["c3"])
}

func TestBranchLockReturnsSameInstanceForSameKey(t *testing.T) {
	store := NewInMemoryStore()

	l1 := store.BranchLock("repo1", "main")
	l2 := store.BranchLock("repo1", "main")
	l3 := store.BranchLock("repo1", "other")

	assert.Same(t, l1, l2)
	assert.NotSame(t, l1, l3)
}

func TestUpdatePullRequestOverwritesExistingRecord(t *testing.T) {
	store := NewInMemoryStore()

	pr := PullRequest{PRID: "pr1", RepoID: "repo1", State: PROpen, CreatedAt: time.Unix(0, 0)}
	require.NoError(t, store.CreatePullRequest(context.Background(), pr))

	pr.State = PRMerged
	pr.MergeCommitID = "mc1"
	require.NoError(t, store.UpdatePullRequest(context.Background(), pr))

	got, err := store.GetPullRequest(context.Background(), "repo1", "pr1")
	require.NoError(t, err)
	assert.Equal(t, PRMerged, got.State)
	assert.Equal(t, "mc1", got.MergeCommitID)
}

func TestListPullRequestsFiltersByState(t *testing.T) {
	store := NewInMemoryStore()

	require.NoError(t, store.CreatePullRequest(context.Background(), PullRequest{PRID: "pr1", RepoID: "repo1", State: PROpen}))
	require.NoError(t, store.CreatePullRequest(context.Background(), PullRequest{PRID: "pr2", RepoID: "repo1", State: PRMerged}))

	open := PROpen
	results, err := store.ListPullRequests(context.Background(), "repo1", &open)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "pr1", results[0].PRID)
}
