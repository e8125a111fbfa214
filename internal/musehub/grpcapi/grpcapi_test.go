package grpcapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cgcardona/maestro/internal/musehub"
	"github.com/cgcardona/maestro/internal/variation/store"
)

func newTestServer(t *testing.T) (*Server, *musehub.Service, *store.VariationStore) {
	t.Helper()

	musehubSvc := musehub.NewService(musehub.NewInMemoryStore(), nil, nil, nil)
	variations := store.NewVariationStore()

	return NewServer(Dependencies{MuseHub: musehubSvc, Variations: variations}), musehubSvc, variations
}

func TestGetRepoStatsCountsBranchesAndOpenPullRequests(t *testing.T) {
	srv, musehubSvc, _ := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, musehubSvc.Store.CreateRepo(ctx, musehub.Repo{RepoID: "r1", Owner: "alice", Slug: "song"}))
	require.NoError(t, musehubSvc.Store.UpsertBranch(ctx, musehub.Branch{RepoID: "r1", Name: "main", HeadCommitID: "c1"}))
	require.NoError(t, musehubSvc.Store.UpsertBranch(ctx, musehub.Branch{RepoID: "r1", Name: "feat", HeadCommitID: "c2"}))
	require.NoError(t, musehubSvc.Store.CreatePullRequest(ctx, musehub.PullRequest{PRID: "pr1", RepoID: "r1", State: musehub.PROpen}))
	require.NoError(t, musehubSvc.Store.CreatePullRequest(ctx, musehub.PullRequest{PRID: "pr2", RepoID: "r1", State: musehub.PRClosed}))

	req, err := structpb.NewStruct(map[string]any{"repoId": "r1"})
	require.NoError(t, err)

	resp, err := srv.GetRepoStats(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, float64(2), resp.Fields["branchCount"].GetNumberValue())
	assert.Equal(t, float64(2), resp.Fields["pullRequestCount"].GetNumberValue())
	assert.Equal(t, float64(1), resp.Fields["openPullRequests"].GetNumberValue())
}

func TestGetVariationStatsCountsByProject(t *testing.T) {
	srv, _, variations := newTestServer(t)

	variations.Create("proj1", "state1", "add strings")
	variations.Create("proj1", "state1", "add drums")
	variations.Create("proj2", "state1", "add bass")

	req, err := structpb.NewStruct(map[string]any{"projectId": "proj1"})
	require.NoError(t, err)

	resp, err := srv.GetVariationStats(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, float64(2), resp.Fields["total"].GetNumberValue())
}
