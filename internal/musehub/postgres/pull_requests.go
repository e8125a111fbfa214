package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cgcardona/maestro/internal/musehub"
)

func (s *Store) GetPullRequest(ctx context.Context, repoID, prID string) (musehub.PullRequest, error) {
	db, err := s.conn.GetDB(ctx)
	if err != nil {
		return musehub.PullRequest{}, err
	}

	query, args, err := psql.Select("pr_id", "repo_id", "title", "body", "state", "from_branch", "to_branch", "merge_commit_id", "created_at").
		From("musehub_pull_requests").
		Where(sqrlEq("repo_id", repoID)).
		Where(sqrlEq("pr_id", prID)).
		ToSql()
	if err != nil {
		return musehub.PullRequest{}, err
	}

	var (
		pr            musehub.PullRequest
		mergeCommitID sql.NullString
	)

	row := db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&pr.PRID, &pr.RepoID, &pr.Title, &pr.Body, &pr.State, &pr.FromBranch, &pr.ToBranch, &mergeCommitID, &pr.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return musehub.PullRequest{}, notFound("pull_request", "pull request not found: "+prID)
		}

		return musehub.PullRequest{}, err
	}

	pr.MergeCommitID = mergeCommitID.String

	return pr, nil
}

func (s *Store) CreatePullRequest(ctx context.Context, pr musehub.PullRequest) error {
	db, err := s.conn.GetDB(ctx)
	if err != nil {
		return err
	}

	query, args, err := psql.Insert("musehub_pull_requests").
		Columns("pr_id", "repo_id", "title", "body", "state", "from_branch", "to_branch", "merge_commit_id", "created_at").
		Values(pr.PRID, pr.RepoID, pr.Title, pr.Body, string(pr.State), pr.FromBranch, pr.ToBranch, nullString(pr.MergeCommitID), pr.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, query, args...)

	return err
}

func (s *Store) UpdatePullRequest(ctx context.Context, pr musehub.PullRequest) error {
	db, err := s.conn.GetDB(ctx)
	if err != nil {
		return err
	}

	query, args, err := psql.Update("musehub_pull_requests").
		Set("title", pr.Title).
		Set("body", pr.Body).
		Set("state", string(pr.State)).
		Set("from_branch", pr.FromBranch).
		Set("to_branch", pr.ToBranch).
		Set("merge_commit_id", nullString(pr.MergeCommitID)).
		Where(sqrlEq("repo_id", pr.RepoID)).
		Where(sqrlEq("pr_id", pr.PRID)).
		ToSql()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, query, args...)

	return err
}

func (s *Store) ListPullRequests(ctx context.Context, repoID string, state *musehub.PRState) ([]musehub.PullRequest, error) {
	db, err := s.conn.GetDB(ctx)
	if err != nil {
		return nil, err
	}

	q := psql.Select("pr_id", "repo_id", "title", "body", "state", "from_branch", "to_branch", "merge_commit_id", "created_at").
		From("musehub_pull_requests").
		Where(sqrlEq("repo_id", repoID)).
		OrderBy("created_at DESC")

	if state != nil {
		q = q.Where(sqrlEq("state", string(*state)))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []musehub.PullRequest

	for rows.Next() {
		var (
			pr            musehub.PullRequest
			mergeCommitID sql.NullString
		)

		if err := rows.Scan(&pr.PRID, &pr.RepoID, &pr.Title, &pr.Body, &pr.State, &pr.FromBranch, &pr.ToBranch, &mergeCommitID, &pr.CreatedAt); err != nil {
			return nil, err
		}

		pr.MergeCommitID = mergeCommitID.String
		out = append(out, pr)
	}

	return out, rows.Err()
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
