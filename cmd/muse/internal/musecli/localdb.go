package musecli

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cgcardona/maestro/internal/musehub"
)

const localDBSchema = `
CREATE TABLE IF NOT EXISTS commits (
	commit_id   TEXT PRIMARY KEY,
	branch      TEXT NOT NULL,
	parent_ids  TEXT NOT NULL,
	snapshot_id TEXT,
	message     TEXT,
	author      TEXT,
	timestamp   TEXT,
	metadata    TEXT
);
CREATE INDEX IF NOT EXISTS commits_branch_idx ON commits (branch);

CREATE TABLE IF NOT EXISTS objects (
	object_id    TEXT PRIMARY KEY,
	size_bytes   INTEGER,
	content_type TEXT
);
`

// LocalDB is the pure-Go sqlite mirror of every commit/object the client
// has seen, queried by push to compute what the server is missing and
// by pull/clone to persist what it downloads.
type LocalDB struct {
	db *sql.DB
}

// OpenLocalDB opens (creating if absent) .muse/local.db under root.
func OpenLocalDB(root string) (*LocalDB, error) {
	path := filepath.Join(root, configDirName, "local.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("musecli: opening local db: %w", err)
	}

	if _, err := db.Exec(localDBSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("musecli: initializing local db schema: %w", err)
	}

	return &LocalDB{db: db}, nil
}

func (l *LocalDB) Close() error { return l.db.Close() }

// HasCommit reports whether commitID is already mirrored locally.
func (l *LocalDB) HasCommit(commitID string) (bool, error) {
	var n int
	err := l.db.QueryRow(`SELECT COUNT(1) FROM commits WHERE commit_id = ?`, commitID).Scan(&n)
	return n > 0, err
}

// PutCommit mirrors a server-side commit locally, used by pull/clone.
func (l *LocalDB) PutCommit(c musehub.Commit) error {
	parentIDs, err := json.Marshal(c.ParentIDs)
	if err != nil {
		return err
	}

	metadata, err := json.Marshal(c.Metadata)
	if err != nil {
		return err
	}

	_, err = l.db.Exec(
		`INSERT OR IGNORE INTO commits (commit_id, branch, parent_ids, snapshot_id, message, author, timestamp, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.CommitID, c.Branch, string(parentIDs), c.SnapshotID, c.Message, c.Author, c.Timestamp.Format(time.RFC3339Nano), string(metadata),
	)

	return err
}

// CommitsOnBranch returns every locally mirrored commit id on branch,
// used to build push's commits[] payload.
func (l *LocalDB) CommitsOnBranch(branch string) ([]string, error) {
	rows, err := l.db.Query(`SELECT commit_id FROM commits WHERE branch = ?`, branch)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// GetCommit reconstructs a Commit from the local mirror.
func (l *LocalDB) GetCommit(commitID string) (musehub.Commit, error) {
	var (
		c                   musehub.Commit
		parentIDs, metadata string
		ts                  string
	)

	row := l.db.QueryRow(`SELECT commit_id, branch, parent_ids, snapshot_id, message, author, timestamp, metadata FROM commits WHERE commit_id = ?`, commitID)
	if err := row.Scan(&c.CommitID, &c.Branch, &parentIDs, &c.SnapshotID, &c.Message, &c.Author, &ts, &metadata); err != nil {
		return musehub.Commit{}, err
	}

	if err := json.Unmarshal([]byte(parentIDs), &c.ParentIDs); err != nil {
		return musehub.Commit{}, err
	}

	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &c.Metadata); err != nil {
			return musehub.Commit{}, err
		}
	}

	if ts != "" {
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return musehub.Commit{}, err
		}

		c.Timestamp = parsed
	}

	return c, nil
}

// PutObject records an object's metadata locally.
func (l *LocalDB) PutObject(o musehub.Object) error {
	_, err := l.db.Exec(
		`INSERT OR IGNORE INTO objects (object_id, size_bytes, content_type) VALUES (?, ?, ?)`,
		o.ObjectID, o.SizeBytes, o.ContentType,
	)

	return err
}

// HasObject reports whether objectID is already mirrored locally.
func (l *LocalDB) HasObject(objectID string) (bool, error) {
	var n int
	err := l.db.QueryRow(`SELECT COUNT(1) FROM objects WHERE object_id = ?`, objectID).Scan(&n)
	return n > 0, err
}

// KnownObjectIDs returns every object id mirrored locally, used to build
// pull's have_objects payload.
func (l *LocalDB) KnownObjectIDs() ([]string, error) {
	rows, err := l.db.Query(`SELECT object_id FROM objects`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}
