package postgres

import (
	"context"
	"database/sql"
	"errors"

	sqrl "github.com/Masterminds/squirrel"

	"github.com/cgcardona/maestro/internal/musehub"
	"github.com/cgcardona/maestro/pkg/merrors"
)

func (s *Store) GetRepo(ctx context.Context, repoID string) (musehub.Repo, error) {
	db, err := s.conn.GetDB(ctx)
	if err != nil {
		return musehub.Repo{}, err
	}

	query, args, err := psql.Select("repo_id", "owner", "slug", "visibility", "default_branch", "settings", "created_at").
		From("musehub_repos").
		Where(sqrlEq("repo_id", repoID)).
		ToSql()
	if err != nil {
		return musehub.Repo{}, err
	}

	var (
		repo     musehub.Repo
		settings []byte
	)

	row := db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&repo.RepoID, &repo.Owner, &repo.Slug, &repo.Visibility, &repo.DefaultBranch, &settings, &repo.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return musehub.Repo{}, notFound("repo", "repo not found: "+repoID)
		}

		return musehub.Repo{}, err
	}

	repo.Settings, err = unmarshalMap(settings)
	if err != nil {
		return musehub.Repo{}, err
	}

	return repo, nil
}

func (s *Store) GetRepoByOwnerSlug(ctx context.Context, owner, slug string) (musehub.Repo, error) {
	db, err := s.conn.GetDB(ctx)
	if err != nil {
		return musehub.Repo{}, err
	}

	query, args, err := psql.Select("repo_id", "owner", "slug", "visibility", "default_branch", "settings", "created_at").
		From("musehub_repos").
		Where(sqrlEq("owner", owner)).
		Where(sqrlEq("slug", slug)).
		ToSql()
	if err != nil {
		return musehub.Repo{}, err
	}

	var (
		repo     musehub.Repo
		settings []byte
	)

	row := db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&repo.RepoID, &repo.Owner, &repo.Slug, &repo.Visibility, &repo.DefaultBranch, &settings, &repo.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return musehub.Repo{}, notFound("repo", "repo not found: "+owner+"/"+slug)
		}

		return musehub.Repo{}, err
	}

	repo.Settings, err = unmarshalMap(settings)
	if err != nil {
		return musehub.Repo{}, err
	}

	return repo, nil
}

func (s *Store) CreateRepo(ctx context.Context, repo musehub.Repo) error {
	db, err := s.conn.GetDB(ctx)
	if err != nil {
		return err
	}

	settings, err := marshalMap(repo.Settings)
	if err != nil {
		return err
	}

	query, args, err := psql.Insert("musehub_repos").
		Columns("repo_id", "owner", "slug", "visibility", "default_branch", "settings", "created_at").
		Values(repo.RepoID, repo.Owner, repo.Slug, string(repo.Visibility), repo.DefaultBranch, settings, repo.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return merrors.ConflictError{Code: "REPO_EXISTS", Message: "repo already exists: " + repo.Owner + "/" + repo.Slug}
		}

		return err
	}

	return nil
}

func (s *Store) GetBranch(ctx context.Context, repoID, name string) (musehub.Branch, error) {
	db, err := s.conn.GetDB(ctx)
	if err != nil {
		return musehub.Branch{}, err
	}

	query, args, err := psql.Select("repo_id", "name", "head_commit_id").
		From("musehub_branches").
		Where(sqrlEq("repo_id", repoID)).
		Where(sqrlEq("name", name)).
		ToSql()
	if err != nil {
		return musehub.Branch{}, err
	}

	var b musehub.Branch

	row := db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&b.RepoID, &b.Name, &b.HeadCommitID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return musehub.Branch{}, notFound("branch", "branch not found: "+name)
		}

		return musehub.Branch{}, err
	}

	return b, nil
}

func (s *Store) UpsertBranch(ctx context.Context, branch musehub.Branch) error {
	db, err := s.conn.GetDB(ctx)
	if err != nil {
		return err
	}

	query, args, err := psql.Insert("musehub_branches").
		Columns("repo_id", "name", "head_commit_id").
		Values(branch.RepoID, branch.Name, branch.HeadCommitID).
		Suffix("ON CONFLICT (repo_id, name) DO UPDATE SET head_commit_id = EXCLUDED.head_commit_id").
		ToSql()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, query, args...)

	return err
}

func (s *Store) ListBranches(ctx context.Context, repoID string) ([]musehub.Branch, error) {
	db, err := s.conn.GetDB(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := psql.Select("repo_id", "name", "head_commit_id").
		From("musehub_branches").
		Where(sqrlEq("repo_id", repoID)).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []musehub.Branch

	for rows.Next() {
		var b musehub.Branch
		if err := rows.Scan(&b.RepoID, &b.Name, &b.HeadCommitID); err != nil {
			return nil, err
		}

		out = append(out, b)
	}

	return out, rows.Err()
}

func (s *Store) DeleteBranch(ctx context.Context, repoID, name string) error {
	db, err := s.conn.GetDB(ctx)
	if err != nil {
		return err
	}

	query, args, err := psql.Delete("musehub_branches").
		Where(sqrlEq("repo_id", repoID)).
		Where(sqrlEq("name", name)).
		ToSql()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, query, args...)

	return err
}

func (s *Store) GetTag(ctx context.Context, repoID, name string) (musehub.Tag, error) {
	db, err := s.conn.GetDB(ctx)
	if err != nil {
		return musehub.Tag{}, err
	}

	query, args, err := psql.Select("repo_id", "name", "commit_id").
		From("musehub_tags").
		Where(sqrlEq("repo_id", repoID)).
		Where(sqrlEq("name", name)).
		ToSql()
	if err != nil {
		return musehub.Tag{}, err
	}

	var t musehub.Tag

	row := db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&t.RepoID, &t.Name, &t.CommitID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return musehub.Tag{}, notFound("tag", "tag not found: "+name)
		}

		return musehub.Tag{}, err
	}

	return t, nil
}

func (s *Store) UpsertTag(ctx context.Context, tag musehub.Tag) error {
	db, err := s.conn.GetDB(ctx)
	if err != nil {
		return err
	}

	query, args, err := psql.Insert("musehub_tags").
		Columns("repo_id", "name", "commit_id").
		Values(tag.RepoID, tag.Name, tag.CommitID).
		Suffix("ON CONFLICT (repo_id, name) DO UPDATE SET commit_id = EXCLUDED.commit_id").
		ToSql()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, query, args...)

	return err
}

// sqrlEq is a one-field equality predicate, named to keep call sites
// readable across the Where chains above.
func sqrlEq(col string, val any) sqrl.Eq {
	return sqrl.Eq{col: val}
}
