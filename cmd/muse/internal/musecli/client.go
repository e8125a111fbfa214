package musecli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cgcardona/maestro/internal/musehub"
	"github.com/cgcardona/maestro/pkg/mhttp"
)

// Client is the HTTP client the porcelain commands drive against a
// maestro server's Muse Hub API. Every request carries the bearer token
// from .muse/config.toml's [auth] section.
type Client struct {
	BaseURL string
	Token   string
	http    *http.Client
}

// NewClient builds a Client with a bounded per-request timeout.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// apiError is the envelope mhttp.WithError sends back; checkResponse
// turns it into a Go error without the caller seeing raw JSON.
type apiError struct {
	Code    string         `json:"code"`
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader

	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}

		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return err
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// checkResponse maps a non-2xx response to a formatted error, mirroring
// how a porcelain client turns a server's error envelope into readable
// text instead of surfacing raw JSON to the terminal.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(resp.Body)

	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Message == "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	return formatAPIError(resp.StatusCode, apiErr)
}

func formatAPIError(status int, e apiError) error {
	if e.Code != "" {
		return fmt.Errorf("%s: %s (%d)", e.Code, e.Message, status)
	}

	return fmt.Errorf("%s (%d)", e.Message, status)
}

// RedactedAuthHeader is what a request log line should print instead of
// the real Authorization header value.
func (c *Client) RedactedAuthHeader() string {
	return mhttp.RedactBearer("Bearer " + c.Token)
}

func (c *Client) CreateRepo(ctx context.Context, owner, slug, visibility, defaultBranch string) (musehub.Repo, error) {
	var repo musehub.Repo

	body := map[string]any{
		"owner":         owner,
		"slug":          slug,
		"visibility":    visibility,
		"defaultBranch": defaultBranch,
	}

	err := c.do(ctx, http.MethodPost, "/api/v1/musehub/repos", body, &repo)

	return repo, err
}

func (c *Client) GetRepo(ctx context.Context, repoID string) (musehub.Repo, error) {
	var repo musehub.Repo
	err := c.do(ctx, http.MethodGet, "/api/v1/musehub/repos/"+repoID, nil, &repo)

	return repo, err
}

func (c *Client) Push(ctx context.Context, repoID string, req musehub.PushRequest) (musehub.PushResult, error) {
	var res musehub.PushResult

	body := map[string]any{
		"branch":               req.Branch,
		"head_commit_id":       req.HeadCommitID,
		"commits":              req.Commits,
		"objects":              req.Objects,
		"force":                req.Force,
		"force_with_lease":     req.ForceWithLease,
		"expected_remote_head": req.ExpectedRemoteHead,
		"tags":                 req.Tags,
	}

	err := c.do(ctx, http.MethodPost, "/api/v1/musehub/repos/"+repoID+"/push", body, &res)

	return res, err
}

func (c *Client) Pull(ctx context.Context, repoID string, req musehub.PullRequestParams) (musehub.PullResult, error) {
	var res musehub.PullResult

	body := map[string]any{
		"branch":       req.Branch,
		"have_commits": req.HaveCommits,
		"have_objects": req.HaveObjects,
		"rebase":       req.Rebase,
		"ff_only":      req.FFOnly,
	}

	err := c.do(ctx, http.MethodPost, "/api/v1/musehub/repos/"+repoID+"/pull", body, &res)

	return res, err
}

func (c *Client) Fetch(ctx context.Context, repoID string, branches []string) ([]musehub.FetchBranchResult, error) {
	var res []musehub.FetchBranchResult

	body := map[string]any{"branches": branches}

	err := c.do(ctx, http.MethodPost, "/api/v1/musehub/repos/"+repoID+"/fetch", body, &res)

	return res, err
}

func (c *Client) Clone(ctx context.Context, repoID string, req musehub.CloneRequest) (musehub.CloneResult, error) {
	var res musehub.CloneResult

	body := map[string]any{
		"branch":       req.Branch,
		"depth":        req.Depth,
		"single_track": req.SingleTrack,
	}

	err := c.do(ctx, http.MethodPost, "/api/v1/musehub/repos/"+repoID+"/clone", body, &res)

	return res, err
}
