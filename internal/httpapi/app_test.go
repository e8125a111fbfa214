package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgcardona/maestro/internal/daw"
	"github.com/cgcardona/maestro/internal/musehub"
	"github.com/cgcardona/maestro/internal/planner"
	"github.com/cgcardona/maestro/internal/registry"
	"github.com/cgcardona/maestro/internal/statestore"
	"github.com/cgcardona/maestro/internal/variation/pipeline"
	"github.com/cgcardona/maestro/internal/variation/store"
	"github.com/cgcardona/maestro/pkg/mhttp"
	"github.com/cgcardona/maestro/pkg/mlog"
)

func testDeps(t *testing.T) (Dependencies, *musehub.Service) {
	t.Helper()

	logger := &mlog.NoneLogger{}
	museHub := musehub.NewService(musehub.NewInMemoryStore(), nil, nil, logger)

	pl := &pipeline.Pipeline{
		Variations: store.NewVariationStore(),
		Broadcast:  store.NewSSEBroadcaster(16, logger),
		States:     statestore.NewManager(),
		Planner:    planner.DefaultPlanner{},
		DAW:        daw.DefaultAdapter{},
		Budget:     daw.UnlimitedBudget{},
		Now:        func() int64 { return 0 },
		Logger:     logger,
		Config:     pipeline.DefaultConfig(),
	}

	deps := Dependencies{
		Pipeline:     pl,
		States:       pl.States,
		Registries:   registry.NewManager(),
		MuseHub:      museHub,
		Logger:       logger,
		JWT:          mhttp.JWTConfig{SigningKey: []byte("test-signing-key"), Issuer: "maestro-test", ExpiresIn: time.Hour},
		Version:      "test",
		SSEHeartbeat: 30,
	}

	return deps, museHub
}

func doJSON(t *testing.T, app interface {
	Test(*http.Request, ...int) (*http.Response, error)
}, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader

	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	return resp
}

func TestHealthAndVersion(t *testing.T) {
	deps, _ := testDeps(t)
	app := NewRouter(deps)

	resp := doJSON(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/version", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateAndGetRepoRoundTrip(t *testing.T) {
	deps, _ := testDeps(t)
	app := NewRouter(deps)

	token, _, err := deps.JWT.IssueToken("user-1", nil)
	require.NoError(t, err)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/musehub/repos", token, map[string]any{
		"owner": "alice",
		"slug":  "song-one",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var repo musehub.Repo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&repo))
	assert.Equal(t, "alice/song-one", repo.RepoID)
	assert.Equal(t, musehub.VisibilityPrivate, repo.Visibility)
	assert.Equal(t, "main", repo.DefaultBranch)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/musehub/repos/"+repo.RepoID, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPushRequiresBearerToken(t *testing.T) {
	deps, _ := testDeps(t)
	app := NewRouter(deps)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/musehub/repos/alice/song-one/push", "", map[string]any{
		"branch":         "main",
		"head_commit_id": "c1",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestClonePublicRepoNoToken(t *testing.T) {
	deps, museHub := testDeps(t)
	app := NewRouter(deps)

	ctx := context.Background()

	require.NoError(t, museHub.Store.CreateRepo(ctx, musehub.Repo{
		RepoID:        "alice/public-song",
		Owner:         "alice",
		Slug:          "public-song",
		Visibility:    musehub.VisibilityPublic,
		DefaultBranch: "main",
	}))

	resp := doJSON(t, app, http.MethodPost, "/api/v1/musehub/repos/alice/public-song/clone", "", map[string]any{})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProposeAndPollVariation(t *testing.T) {
	deps, _ := testDeps(t)
	app := NewRouter(deps)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/variation/propose", "", map[string]any{
		"projectId":   "proj-1",
		"baseStateId": "0",
		"intent":      "make the bridge more energetic",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var proposed struct {
		VariationID string `json:"variationId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&proposed))
	require.NotEmpty(t, proposed.VariationID)

	require.Eventually(t, func() bool {
		resp := doJSON(t, app, http.MethodGet, "/api/v1/variation/"+proposed.VariationID, "", nil)
		defer resp.Body.Close()

		var poll pipeline.PollResult
		if json.NewDecoder(resp.Body).Decode(&poll) != nil {
			return false
		}

		return poll.Status == "ready" || poll.Status == "failed"
	}, time.Second, 5*time.Millisecond)
}

func TestProposeRejectsStaleBaseState(t *testing.T) {
	deps, _ := testDeps(t)
	app := NewRouter(deps)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/variation/propose", "", map[string]any{
		"projectId":   "proj-2",
		"baseStateId": "not-the-current-state",
		"intent":      "anything",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
