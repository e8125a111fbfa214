package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/cgcardona/maestro/internal/musehub"
	"github.com/cgcardona/maestro/pkg/merrors"
	"github.com/cgcardona/maestro/pkg/mhttp"
)

const presignedURLTTL = 15 * time.Minute

// registerMuseHubRoutes binds repo/branch/push/pull/fetch/clone routes
// under /musehub/repos/{id}/... and pull-request CRUD+merge under
// /repos/{id}/pull-requests, per the external interface.
func registerMuseHubRoutes(r fiber.Router, deps Dependencies) {
	bearer := mhttp.RequireBearer(deps.JWT)

	r.Post("/musehub/repos", bearer, mhttp.WithBody(createRepoHandler(deps)))
	r.Get("/musehub/repos/:repo_id", getRepoHandler(deps))

	r.Post("/musehub/repos/:repo_id/push", bearer, mhttp.WithBody(pushHandler(deps)))
	r.Post("/musehub/repos/:repo_id/pull", bearer, mhttp.WithBody(pullHandler(deps)))
	r.Post("/musehub/repos/:repo_id/fetch", bearer, mhttp.WithBody(fetchHandler(deps)))
	r.Post("/musehub/repos/:repo_id/clone", clonePublicOrBearer(deps), mhttp.WithBody(cloneHandler(deps)))
	r.Get("/musehub/repos/:repo_id/objects/:object_id/url", bearer, objectURLHandler(deps))

	r.Post("/repos/:repo_id/pull-requests", bearer, mhttp.WithBody(createPRHandler(deps)))
	r.Get("/repos/:repo_id/pull-requests", bearer, listPRHandler(deps))
	r.Get("/repos/:repo_id/pull-requests/:pr_id", bearer, getPRHandler(deps))
	r.Post("/repos/:repo_id/pull-requests/:pr_id/merge", bearer, mhttp.WithBody(mergePRHandler(deps)))
	r.Post("/repos/:repo_id/pull-requests/:pr_id/close", bearer, closePRHandler(deps))
}

// clonePublicOrBearer allows clone without a bearer token when the repo
// is public; private repos still require one. This is the one place the
// "JWT Bearer required except for public-repo reads" carve-out is
// enforced, rather than inside the clone handler itself.
func clonePublicOrBearer(deps Dependencies) fiber.Handler {
	bearer := mhttp.RequireBearer(deps.JWT)

	return func(c *fiber.Ctx) error {
		repo, err := deps.MuseHub.Store.GetRepo(c.UserContext(), c.Params("repo_id"))
		if err != nil {
			return mhttp.WithError(c, err)
		}

		if repo.Visibility == musehub.VisibilityPrivate {
			return bearer(c)
		}

		return c.Next()
	}
}

type createRepoBody struct {
	Owner         string `json:"owner" validate:"required"`
	Slug          string `json:"slug" validate:"required"`
	Visibility    string `json:"visibility"`
	DefaultBranch string `json:"defaultBranch"`
}

func createRepoHandler(deps Dependencies) mhttp.DecodeHandlerFunc[createRepoBody] {
	return func(body *createRepoBody, c *fiber.Ctx) error {
		visibility := musehub.VisibilityPrivate
		if body.Visibility == string(musehub.VisibilityPublic) {
			visibility = musehub.VisibilityPublic
		}

		defaultBranch := body.DefaultBranch
		if defaultBranch == "" {
			defaultBranch = "main"
		}

		repo := musehub.Repo{
			RepoID:        repoID(body.Owner, body.Slug),
			Owner:         body.Owner,
			Slug:          body.Slug,
			Visibility:    visibility,
			DefaultBranch: defaultBranch,
		}

		if err := deps.MuseHub.Store.CreateRepo(c.UserContext(), repo); err != nil {
			return mhttp.WithError(c, err)
		}

		return c.Status(fiber.StatusCreated).JSON(repo)
	}
}

func repoID(owner, slug string) string { return owner + "/" + slug }

func getRepoHandler(deps Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		repo, err := deps.MuseHub.Store.GetRepo(c.UserContext(), c.Params("repo_id"))
		if err != nil {
			return mhttp.WithError(c, err)
		}

		return c.JSON(repo)
	}
}

type pushBody struct {
	Branch             string          `json:"branch" validate:"required"`
	HeadCommitID       string          `json:"head_commit_id" validate:"required"`
	Commits            []musehub.Commit `json:"commits"`
	Objects            []musehub.Object `json:"objects"`
	Force              bool            `json:"force"`
	ForceWithLease     bool            `json:"force_with_lease"`
	ExpectedRemoteHead string          `json:"expected_remote_head"`
	Tags               []musehub.Tag   `json:"tags"`
}

func pushHandler(deps Dependencies) mhttp.DecodeHandlerFunc[pushBody] {
	return func(body *pushBody, c *fiber.Ctx) error {
		res, err := deps.MuseHub.Push(c.UserContext(), c.Params("repo_id"), musehub.PushRequest{
			Branch:             body.Branch,
			HeadCommitID:       body.HeadCommitID,
			Commits:            body.Commits,
			Objects:            body.Objects,
			Force:              body.Force,
			ForceWithLease:     body.ForceWithLease,
			ExpectedRemoteHead: body.ExpectedRemoteHead,
			Tags:               body.Tags,
		})
		if err != nil {
			return mhttp.WithError(c, err)
		}

		return c.JSON(res)
	}
}

type pullBody struct {
	Branch      string   `json:"branch" validate:"required"`
	HaveCommits []string `json:"have_commits"`
	HaveObjects []string `json:"have_objects"`
	Rebase      bool     `json:"rebase"`
	FFOnly      bool     `json:"ff_only"`
}

func pullHandler(deps Dependencies) mhttp.DecodeHandlerFunc[pullBody] {
	return func(body *pullBody, c *fiber.Ctx) error {
		res, err := deps.MuseHub.Pull(c.UserContext(), c.Params("repo_id"), musehub.PullRequestParams{
			Branch:      body.Branch,
			HaveCommits: body.HaveCommits,
			HaveObjects: body.HaveObjects,
			Rebase:      body.Rebase,
			FFOnly:      body.FFOnly,
		})
		if err != nil {
			return mhttp.WithError(c, err)
		}

		return c.JSON(res)
	}
}

type fetchBody struct {
	Branches []string `json:"branches"`
}

func fetchHandler(deps Dependencies) mhttp.DecodeHandlerFunc[fetchBody] {
	return func(body *fetchBody, c *fiber.Ctx) error {
		res, err := deps.MuseHub.Fetch(c.UserContext(), c.Params("repo_id"), musehub.FetchRequest{Branches: body.Branches})
		if err != nil {
			return mhttp.WithError(c, err)
		}

		return c.JSON(res)
	}
}

type cloneBody struct {
	Branch      string `json:"branch"`
	Depth       int    `json:"depth"`
	SingleTrack string `json:"single_track"`
}

func cloneHandler(deps Dependencies) mhttp.DecodeHandlerFunc[cloneBody] {
	return func(body *cloneBody, c *fiber.Ctx) error {
		res, err := deps.MuseHub.Clone(c.UserContext(), c.Params("repo_id"), musehub.CloneRequest{
			Branch:      body.Branch,
			Depth:       body.Depth,
			SingleTrack: body.SingleTrack,
		})
		if err != nil {
			return mhttp.WithError(c, err)
		}

		return c.JSON(res)
	}
}

type createPRBody struct {
	Title      string `json:"title" validate:"required"`
	Body       string `json:"body"`
	FromBranch string `json:"fromBranch" validate:"required"`
	ToBranch   string `json:"toBranch" validate:"required"`
}

func createPRHandler(deps Dependencies) mhttp.DecodeHandlerFunc[createPRBody] {
	return func(body *createPRBody, c *fiber.Ctx) error {
		pr, err := deps.MuseHub.CreatePullRequest(c.UserContext(), c.Params("repo_id"), body.Title, body.Body, body.FromBranch, body.ToBranch)
		if err != nil {
			return mhttp.WithError(c, err)
		}

		return c.Status(fiber.StatusCreated).JSON(pr)
	}
}

func getPRHandler(deps Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pr, err := deps.MuseHub.Store.GetPullRequest(c.UserContext(), c.Params("repo_id"), c.Params("pr_id"))
		if err != nil {
			return mhttp.WithError(c, err)
		}

		return c.JSON(pr)
	}
}

func listPRHandler(deps Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var statePtr *musehub.PRState

		if s := c.Query("state"); s != "" {
			state := musehub.PRState(s)
			statePtr = &state
		}

		prs, err := deps.MuseHub.Store.ListPullRequests(c.UserContext(), c.Params("repo_id"), statePtr)
		if err != nil {
			return mhttp.WithError(c, err)
		}

		return c.JSON(prs)
	}
}

type mergePRBody struct {
	Message string `json:"message"`
}

func mergePRHandler(deps Dependencies) mhttp.DecodeHandlerFunc[mergePRBody] {
	return func(body *mergePRBody, c *fiber.Ctx) error {
		claims, _ := mhttp.ClaimsFromContext(c)

		author := "unknown"
		if claims != nil {
			author = claims.UserID
		}

		message := body.Message
		if message == "" {
			message = "Merge pull request"
		}

		res, err := deps.MuseHub.Merge(c.UserContext(), c.Params("repo_id"), c.Params("pr_id"), author, message)
		if err != nil {
			return mhttp.WithError(c, err)
		}

		return c.JSON(res)
	}
}

// objectURLHandler returns a presigned, time-limited download URL for a
// content-addressed object. No object bytes pass through this service.
func objectURLHandler(deps Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.MuseHub.Objects == nil {
			return mhttp.WithError(c, merrors.ValidationError{Code: "OBJECTS_UNAVAILABLE", Message: "asset delivery is not configured"})
		}

		url, expiresAt, err := deps.MuseHub.Objects.PresignedURL(c.UserContext(), c.Params("repo_id"), c.Params("object_id"), presignedURLTTL)
		if err != nil {
			return mhttp.WithError(c, err)
		}

		return c.JSON(fiber.Map{
			"url":       url,
			"expiresAt": expiresAt,
		})
	}
}

func closePRHandler(deps Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.MuseHub.ClosePullRequest(c.UserContext(), c.Params("repo_id"), c.Params("pr_id")); err != nil {
			return mhttp.WithError(c, err)
		}

		return c.JSON(fiber.Map{"ok": true})
	}
}
