package musecli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigOnMissingFileReturnsEmptyWritable(t *testing.T) {
	root := t.TempDir()

	cfg, err := LoadConfig(root)
	require.NoError(t, err)

	assert.Empty(t, cfg.Auth.Token)
	assert.Empty(t, cfg.Remotes)
	assert.Empty(t, cfg.Upstream)
}

func TestConfigPersistRoundTrip(t *testing.T) {
	root := t.TempDir()

	cfg, err := LoadConfig(root)
	require.NoError(t, err)

	cfg.Auth.Token = "tok-123"
	cfg.User.Name = "Alice Example"
	cfg.User.Email = "alice@example.com"
	cfg.SetRemote("origin", "https://muse.example.com", "alice/song-one")
	cfg.SetUpstream("main", "origin", "main")

	require.NoError(t, cfg.Persist())

	reloaded, err := LoadConfig(root)
	require.NoError(t, err)

	assert.Equal(t, "tok-123", reloaded.Auth.Token)
	assert.Equal(t, "Alice Example", reloaded.User.Name)

	remote, err := reloaded.Remote("origin")
	require.NoError(t, err)
	assert.Equal(t, "https://muse.example.com", remote.URL)
	assert.Equal(t, "alice/song-one", remote.RepoID)

	upstream, ok := reloaded.Upstream["main"]
	require.True(t, ok)
	assert.Equal(t, "origin", upstream.Remote)
	assert.Equal(t, "main", upstream.Branch)
}

func TestRemoteDefaultsToOrigin(t *testing.T) {
	root := t.TempDir()

	cfg, err := LoadConfig(root)
	require.NoError(t, err)

	cfg.SetRemote("origin", "https://muse.example.com", "alice/song-one")

	remote, err := cfg.Remote("")
	require.NoError(t, err)
	assert.Equal(t, "alice/song-one", remote.RepoID)
}

func TestRemoteUnknownNameErrors(t *testing.T) {
	root := t.TempDir()

	cfg, err := LoadConfig(root)
	require.NoError(t, err)

	_, err = cfg.Remote("upstream")
	assert.Error(t, err)
}

func TestRemoveRemoteAlsoDropsItsUpstreams(t *testing.T) {
	root := t.TempDir()

	cfg, err := LoadConfig(root)
	require.NoError(t, err)

	cfg.SetRemote("origin", "https://muse.example.com", "alice/song-one")
	cfg.SetUpstream("main", "origin", "main")

	cfg.RemoveRemote("origin")

	_, ok := cfg.Upstream["main"]
	assert.False(t, ok)

	_, err = cfg.Remote("origin")
	assert.Error(t, err)
}
