package musecli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgcardona/maestro/internal/musehub"
)

func TestLocalDBCommitRoundTrip(t *testing.T) {
	root := t.TempDir()

	db, err := OpenLocalDB(root)
	require.NoError(t, err)
	defer db.Close()

	commit := musehub.Commit{
		CommitID:   "c1",
		RepoID:     "alice/song-one",
		Branch:     "main",
		ParentIDs:  []string{"c0"},
		SnapshotID: "obj1",
		Message:    "add verse",
		Author:     "alice",
		Timestamp:  time.Now().UTC().Truncate(time.Second),
		Metadata:   map[string]any{"tempo": float64(120)},
	}

	require.NoError(t, db.PutCommit(commit))

	has, err := db.HasCommit("c1")
	require.NoError(t, err)
	assert.True(t, has)

	got, err := db.GetCommit("c1")
	require.NoError(t, err)
	assert.Equal(t, commit.RepoID, got.RepoID)
	assert.Equal(t, commit.ParentIDs, got.ParentIDs)
	assert.Equal(t, commit.SnapshotID, got.SnapshotID)
	assert.Equal(t, commit.Timestamp, got.Timestamp)
	assert.Equal(t, commit.Metadata["tempo"], got.Metadata["tempo"])

	ids, err := db.CommitsOnBranch("main")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids)
}

func TestLocalDBPutCommitIsIdempotent(t *testing.T) {
	root := t.TempDir()

	db, err := OpenLocalDB(root)
	require.NoError(t, err)
	defer db.Close()

	commit := musehub.Commit{CommitID: "c1", Branch: "main"}
	require.NoError(t, db.PutCommit(commit))
	require.NoError(t, db.PutCommit(commit))

	ids, err := db.CommitsOnBranch("main")
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestLocalDBObjectRoundTrip(t *testing.T) {
	root := t.TempDir()

	db, err := OpenLocalDB(root)
	require.NoError(t, err)
	defer db.Close()

	obj := musehub.Object{ObjectID: "obj1", SizeBytes: 2048, ContentType: "audio/wav"}
	require.NoError(t, db.PutObject(obj))

	has, err := db.HasObject("obj1")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = db.HasObject("missing")
	require.NoError(t, err)
	assert.False(t, has)

	ids, err := db.KnownObjectIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"obj1"}, ids)
}

func TestLocalDBHasCommitMissing(t *testing.T) {
	root := t.TempDir()

	db, err := OpenLocalDB(root)
	require.NoError(t, err)
	defer db.Close()

	has, err := db.HasCommit("nope")
	require.NoError(t, err)
	assert.False(t, has)
}
