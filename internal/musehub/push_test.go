package musehub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	return NewService(NewInMemoryStore(), nil, nil, nil)
}

func seedRepo(t *testing.T, svc *Service, repoID string) {
	t.Helper()

	err := svc.Store.CreateRepo(context.Background(), Repo{
		RepoID:        repoID,
		Owner:         "alice",
		Slug:          "song",
		DefaultBranch: "main",
		CreatedAt:     time.Unix(0, 0),
	})
	require.NoError(t, err)
}

func TestPushFastForwardFromEmptyBranchAccepted(t *testing.T) {
	svc := newTestService()
	seedRepo(t, svc, "repo1")

	c1 := Commit{CommitID: "c1", RepoID: "repo1", Branch: "main", Timestamp: time.Unix(1, 0)}

	res, err := svc.Push(context.Background(), "repo1", PushRequest{
		Branch:       "main",
		HeadCommitID: "c1",
		Commits:      []Commit{c1},
	})

	require.NoError(t, err)
	assert.Equal(t, "c1", res.HeadID)

	b, err := svc.Store.GetBranch(context.Background(), "repo1", "main")
	require.NoError(t, err)
	assert.Equal(t, "c1", b.HeadCommitID)
}

func TestPushNonFastForwardWithoutForceRejected(t *testing.T) {
	svc := newTestService()
	seedRepo(t, svc, "repo1")

	c1 := Commit{CommitID: "c1", RepoID: "repo1", Branch: "main", Timestamp: time.Unix(1, 0)}
	_, err := svc.Push(context.Background(), "repo1", PushRequest{Branch: "main", HeadCommitID: "c1", Commits: []Commit{c1}})
	require.NoError(t, err)

	// c2 has no parent relationship to c1, so pushing it is not a fast-forward.
	c2 := Commit{CommitID: "c2", RepoID: "repo1", Branch: "main", Timestamp: time.Unix(2, 0)}
	_, err = svc.Push(context.Background(), "repo1", PushRequest{Branch: "main", HeadCommitID: "c2", Commits: []Commit{c2}})

	require.Error(t, err)

	conflict, ok := err.(interface{ Error() string })
	require.True(t, ok)
	assert.Contains(t, conflict.Error(), "not a fast-forward")

	b, _ := svc.Store.GetBranch(context.Background(), "repo1", "main")
	assert.Equal(t, "c1", b.HeadCommitID, "branch head must be unchanged after a rejected push")
}

func TestPushForceWithLeaseAcceptsOnMatchingExpectedHead(t *testing.T) {
	svc := newTestService()
	seedRepo(t, svc, "repo1")

	c1 := Commit{CommitID: "c1", RepoID: "repo1", Branch: "main", Timestamp: time.Unix(1, 0)}
	_, err := svc.Push(context.Background(), "repo1", PushRequest{Branch: "main", HeadCommitID: "c1", Commits: []Commit{c1}})
	require.NoError(t, err)

	c2 := Commit{CommitID: "c2", RepoID: "repo1", Branch: "main", Timestamp: time.Unix(2, 0)}
	res, err := svc.Push(context.Background(), "repo1", PushRequest{
		Branch:             "main",
		HeadCommitID:       "c2",
		Commits:            []Commit{c2},
		ForceWithLease:     true,
		ExpectedRemoteHead: "c1",
	})

	require.NoError(t, err)
	assert.Equal(t, "c2", res.HeadID)
}

func TestPushForceWithLeaseRejectsOnStaleExpectedHead(t *testing.T) {
	svc := newTestService()
	seedRepo(t, svc, "repo1")

	c1 := Commit{CommitID: "c1", RepoID: "repo1", Branch: "main", Timestamp: time.Unix(1, 0)}
	_, err := svc.Push(context.Background(), "repo1", PushRequest{Branch: "main", HeadCommitID: "c1", Commits: []Commit{c1}})
	require.NoError(t, err)

	c2 := Commit{CommitID: "c2", RepoID: "repo1", Branch: "main", Timestamp: time.Unix(2, 0)}
	_, err = svc.Push(context.Background(), "repo1", PushRequest{
		Branch:             "main",
		HeadCommitID:       "c2",
		Commits:            []Commit{c2},
		ForceWithLease:     true,
		ExpectedRemoteHead: "stale-head",
	})

	require.Error(t, err)

	b, _ := svc.Store.GetBranch(context.Background(), "repo1", "main")
	assert.Equal(t, "c1", b.HeadCommitID)
}

func TestPushIsIdempotentForAlreadyPresentCommits(t *testing.T) {
	svc := newTestService()
	seedRepo(t, svc, "repo1")

	c1 := Commit{CommitID: "c1", RepoID: "repo1", Branch: "main", Timestamp: time.Unix(1, 0)}

	_, err := svc.Push(context.Background(), "repo1", PushRequest{Branch: "main", HeadCommitID: "c1", Commits: []Commit{c1}})
	require.NoError(t, err)

	// Re-push the same commit, this time with Force; moving main from c1 to
	// c1 also counts as a fast-forward.
	_, err = svc.Push(context.Background(), "repo1", PushRequest{Branch: "main", HeadCommitID: "c1", Commits: []Commit{c1}, Force: true})
	require.NoError(t, err)

	exists, err := svc.Store.HasCommit(context.Background(), "repo1", "c1")
	require.NoError(t, err)
	assert.True(t, exists)
}
