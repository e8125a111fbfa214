package httpapi

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/cgcardona/maestro/internal/variation/pipeline"
	"github.com/cgcardona/maestro/pkg/merrors"
	"github.com/cgcardona/maestro/pkg/mhttp"
)

func registerVariationRoutes(r fiber.Router, deps Dependencies) {
	r.Post("/variation/propose", mhttp.WithBody(proposeHandler(deps)))
	r.Get("/variation/stream", streamHandler(deps))
	r.Get("/variation/:variation_id", pollHandler(deps))
	r.Post("/variation/commit", mhttp.WithBody(commitHandler(deps)))
	r.Post("/variation/discard", mhttp.WithBody(discardHandler(deps)))
}

// proposeRequestBody is the wire shape of POST /variation/propose.
type proposeRequestBody struct {
	ProjectID   string `json:"projectId" validate:"required"`
	UserID      string `json:"userId"`
	BaseStateID string `json:"baseStateId" validate:"required"`
	Intent      string `json:"intent" validate:"required"`
}

func proposeHandler(deps Dependencies) mhttp.DecodeHandlerFunc[proposeRequestBody] {
	return func(body *proposeRequestBody, c *fiber.Ctx) error {
		res, err := deps.Pipeline.Propose(c.UserContext(), pipeline.ProposeRequest{
			ProjectID:   body.ProjectID,
			UserID:      body.UserID,
			BaseStateID: body.BaseStateID,
			Intent:      body.Intent,
		})
		if err != nil {
			return mhttp.WithError(c, err)
		}

		return c.JSON(fiber.Map{
			"variationId": res.VariationID,
			"projectId":   res.ProjectID,
			"baseStateId": res.BaseStateID,
			"intent":      body.Intent,
			"streamUrl":   res.StreamURL,
		})
	}
}

func streamHandler(deps Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		variationID := c.Query("variation_id")
		if variationID == "" {
			return mhttp.WithError(c, merrors.ValidationError{Code: "MISSING_PARAM", Message: "variation_id is required"})
		}

		fromSequence, _ := strconv.ParseInt(c.Query("from_sequence", "0"), 10, 64)

		history, live, terminal, err := deps.Pipeline.Subscribe(variationID, fromSequence)
		if err != nil {
			return mhttp.WithError(c, err)
		}

		heartbeat := time.Duration(deps.SSEHeartbeat) * time.Second
		if heartbeat <= 0 {
			heartbeat = 30 * time.Second
		}

		events := make(chan mhttp.SSEEvent, len(history)+1)

		if terminal {
			for _, env := range history {
				events <- mhttp.SSEEvent{Type: string(env.Type), Payload: env}
			}

			close(events)
			mhttp.StreamSSE(c, events, heartbeat)

			return nil
		}

		go func() {
			defer close(events)

			for env := range live {
				events <- mhttp.SSEEvent{Type: string(env.Type), Payload: env}
			}
		}()

		mhttp.StreamSSE(c, events, heartbeat)

		return nil
	}
}

func pollHandler(deps Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		variationID := c.Params("variation_id")

		res, err := deps.Pipeline.Poll(variationID)
		if err != nil {
			return mhttp.WithError(c, err)
		}

		return c.JSON(res)
	}
}

// commitRequestBody is the wire shape of POST /variation/commit.
type commitRequestBody struct {
	ProjectID         string   `json:"project_id" validate:"required"`
	BaseStateID       string   `json:"base_state_id" validate:"required"`
	VariationID       string   `json:"variation_id" validate:"required"`
	AcceptedPhraseIDs []string `json:"accepted_phrase_ids"`
}

func commitHandler(deps Dependencies) mhttp.DecodeHandlerFunc[commitRequestBody] {
	return func(body *commitRequestBody, c *fiber.Ctx) error {
		res, err := deps.Pipeline.Commit(c.UserContext(), pipeline.CommitRequest{
			ProjectID:         body.ProjectID,
			VariationID:       body.VariationID,
			BaseStateID:       body.BaseStateID,
			AcceptedPhraseIDs: body.AcceptedPhraseIDs,
		})
		if err != nil {
			return mhttp.WithError(c, err)
		}

		return c.JSON(fiber.Map{
			"projectId":        res.ProjectID,
			"newStateId":       res.NewStateID,
			"appliedPhraseIds": res.AppliedPhraseIDs,
			"undoLabel":        "Undo " + body.VariationID,
			"updatedRegions":   res.UpdatedRegions,
		})
	}
}

// discardRequestBody is the wire shape of POST /variation/discard.
type discardRequestBody struct {
	ProjectID   string `json:"project_id" validate:"required"`
	VariationID string `json:"variation_id" validate:"required"`
}

func discardHandler(deps Dependencies) mhttp.DecodeHandlerFunc[discardRequestBody] {
	return func(body *discardRequestBody, c *fiber.Ctx) error {
		if err := deps.Pipeline.Discard(c.UserContext(), pipeline.DiscardRequest{
			ProjectID:   body.ProjectID,
			VariationID: body.VariationID,
		}); err != nil {
			return mhttp.WithError(c, err)
		}

		return c.JSON(fiber.Map{"ok": true})
	}
}
