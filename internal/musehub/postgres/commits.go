package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cgcardona/maestro/internal/musehub"
)

func (s *Store) GetCommit(ctx context.Context, repoID, commitID string) (musehub.Commit, error) {
	db, err := s.conn.GetDB(ctx)
	if err != nil {
		return musehub.Commit{}, err
	}

	query, args, err := psql.Select("commit_id", "repo_id", "branch", "snapshot_id", "message", "author", "timestamp", "metadata").
		From("musehub_commits").
		Where(sqrlEq("repo_id", repoID)).
		Where(sqrlEq("commit_id", commitID)).
		ToSql()
	if err != nil {
		return musehub.Commit{}, err
	}

	var (
		c        musehub.Commit
		metadata []byte
	)

	row := db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&c.CommitID, &c.RepoID, &c.Branch, &c.SnapshotID, &c.Message, &c.Author, &c.Timestamp, &metadata); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return musehub.Commit{}, notFound("commit", "commit not found: "+commitID)
		}

		return musehub.Commit{}, err
	}

	c.Metadata, err = unmarshalMap(metadata)
	if err != nil {
		return musehub.Commit{}, err
	}

	c.ParentIDs, err = s.parentIDs(ctx, db, repoID, commitID)
	if err != nil {
		return musehub.Commit{}, err
	}

	return c, nil
}

func (s *Store) HasCommit(ctx context.Context, repoID, commitID string) (bool, error) {
	db, err := s.conn.GetDB(ctx)
	if err != nil {
		return false, err
	}

	query, args, err := psql.Select("1").
		From("musehub_commits").
		Where(sqrlEq("repo_id", repoID)).
		Where(sqrlEq("commit_id", commitID)).
		ToSql()
	if err != nil {
		return false, err
	}

	var one int

	err = db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	return err == nil, err
}

// PutCommit inserts the commit row and its ordered parent edges inside a
// transaction, since commit_parents.position must record storage order
// exactly as given (merge commits rely on parents[0] being the branch
// that received the merge).
func (s *Store) PutCommit(ctx context.Context, commit musehub.Commit) error {
	db, err := s.conn.GetDB(ctx)
	if err != nil {
		return err
	}

	metadata, err := marshalMap(commit.Metadata)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	insertCommit, args, err := psql.Insert("musehub_commits").
		Columns("commit_id", "repo_id", "branch", "snapshot_id", "message", "author", "timestamp", "metadata").
		Values(commit.CommitID, commit.RepoID, commit.Branch, commit.SnapshotID, commit.Message, commit.Author, commit.Timestamp, metadata).
		Suffix("ON CONFLICT (repo_id, commit_id) DO NOTHING").
		ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, insertCommit, args...); err != nil {
		return err
	}

	deleteParents, args, err := psql.Delete("musehub_commit_parents").
		Where(sqrlEq("repo_id", commit.RepoID)).
		Where(sqrlEq("commit_id", commit.CommitID)).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, deleteParents, args...); err != nil {
		return err
	}

	for i, parentID := range commit.ParentIDs {
		insertParent, args, err := psql.Insert("musehub_commit_parents").
			Columns("repo_id", "commit_id", "position", "parent_id").
			Values(commit.RepoID, commit.CommitID, i, parentID).
			ToSql()
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, insertParent, args...); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) parentIDs(ctx context.Context, db interface {
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
}, repoID, commitID string) ([]string, error) {
	query, args, err := psql.Select("parent_id").
		From("musehub_commit_parents").
		Where(sqrlEq("repo_id", repoID)).
		Where(sqrlEq("commit_id", commitID)).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parents []string

	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}

		parents = append(parents, p)
	}

	return parents, rows.Err()
}

// Ancestors walks the transitive parent closure of commitID with a
// recursive CTE over commit_parents, mirroring the in-memory stack walk.
func (s *Store) Ancestors(ctx context.Context, repoID, commitID string) (map[string]bool, error) {
	db, err := s.conn.GetDB(ctx)
	if err != nil {
		return nil, err
	}

	const query = `
WITH RECURSIVE anc(commit_id) AS (
	SELECT $2::text
	UNION
	SELECT cp.parent_id
	FROM musehub_commit_parents cp
	JOIN anc ON anc.commit_id = cp.commit_id
	WHERE cp.repo_id = $1
)
SELECT commit_id FROM anc`

	rows, err := db.QueryContext(ctx, query, repoID, commitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	visited := make(map[string]bool)

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		visited[id] = true
	}

	return visited, rows.Err()
}

func (s *Store) HasObject(ctx context.Context, repoID, objectID string) (bool, error) {
	db, err := s.conn.GetDB(ctx)
	if err != nil {
		return false, err
	}

	query, args, err := psql.Select("1").
		From("musehub_objects").
		Where(sqrlEq("repo_id", repoID)).
		Where(sqrlEq("object_id", objectID)).
		ToSql()
	if err != nil {
		return false, err
	}

	var one int

	err = db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	return err == nil, err
}

func (s *Store) PutObject(ctx context.Context, repoID string, obj musehub.Object) error {
	db, err := s.conn.GetDB(ctx)
	if err != nil {
		return err
	}

	query, args, err := psql.Insert("musehub_objects").
		Columns("repo_id", "object_id", "size_bytes", "content_type").
		Values(repoID, obj.ObjectID, obj.SizeBytes, obj.ContentType).
		Suffix("ON CONFLICT (repo_id, object_id) DO NOTHING").
		ToSql()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, query, args...)

	return err
}
