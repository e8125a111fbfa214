package musecli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRepoRootWalksUpToMuseDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, configDirName), 0o755))

	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	wd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(wd)

	require.NoError(t, os.Chdir(nested))

	found, err := findRepoRoot()
	require.NoError(t, err)

	resolvedRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	resolvedFound, err := filepath.EvalSymlinks(found)
	require.NoError(t, err)

	assert.Equal(t, resolvedRoot, resolvedFound)
}

func TestFindRepoRootErrorsOutsideAnyRepo(t *testing.T) {
	root := t.TempDir()

	wd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(wd)

	require.NoError(t, os.Chdir(root))

	_, err = findRepoRoot()
	assert.Error(t, err)
}

func TestHeadReadWriteRoundTrip(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, InitRefsLayout(root))
	require.NoError(t, WriteHead(root, "develop"))

	branch, err := ReadHead(root)
	require.NoError(t, err)
	assert.Equal(t, "develop", branch)
}

func TestBranchHeadMissingReturnsEmptyNotError(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, InitRefsLayout(root))

	head, err := ReadBranchHead(root, "main")
	require.NoError(t, err)
	assert.Empty(t, head)
}

func TestBranchHeadWriteThenRead(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, InitRefsLayout(root))
	require.NoError(t, WriteBranchHead(root, "main", "c1"))

	head, err := ReadBranchHead(root, "main")
	require.NoError(t, err)
	assert.Equal(t, "c1", head)
}

func TestRemoteBranchHeadWriteReadAndPrune(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, InitRefsLayout(root))
	require.NoError(t, WriteRemoteBranchHead(root, "origin", "main", "c1"))
	require.NoError(t, WriteRemoteBranchHead(root, "origin", "feature", "c2"))

	branches, err := listRemoteBranches(root, "origin")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main", "feature"}, branches)

	require.NoError(t, removeRemoteBranchHead(root, "origin", "feature"))

	branches, err = listRemoteBranches(root, "origin")
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, branches)
}

func TestListRemoteBranchesOnUnknownRemoteReturnsEmpty(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, InitRefsLayout(root))

	branches, err := listRemoteBranches(root, "nope")
	require.NoError(t, err)
	assert.Empty(t, branches)
}
