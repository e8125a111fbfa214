package mhttp

import (
	"bufio"
	"encoding/json"
	"time"

	"github.com/cgcardona/maestro/pkg/mlog"
	"github.com/gofiber/fiber/v2"
)

// SSEEvent is a single frame written to an event-stream response.
type SSEEvent struct {
	Type    string
	Payload any
}

// StreamSSE sets the event-stream headers and drives w with events pulled
// from events until it closes or the client disconnects. A heartbeat is
// written whenever idle exceeds heartbeat, so intermediary proxies don't
// time out the connection.
func StreamSSE(c *fiber.Ctx, events <-chan SSEEvent, heartbeat time.Duration) {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx := c.UserContext()
	logger := mlog.FromContext(ctx)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}

				if err := writeSSEEvent(w, ev); err != nil {
					logger.Warnf("sse write failed: %v", err)
					return
				}
			case <-ticker.C:
				if err := writeSSEEvent(w, SSEEvent{Type: "heartbeat"}); err != nil {
					logger.Warnf("sse heartbeat failed: %v", err)
					return
				}
			}
		}
	})
}

func writeSSEEvent(w *bufio.Writer, ev SSEEvent) error {
	body, err := json.Marshal(ev.Payload)
	if err != nil {
		return err
	}

	if _, err := w.WriteString("event: " + ev.Type + "\n"); err != nil {
		return err
	}

	if _, err := w.WriteString("data: " + string(body) + "\n\n"); err != nil {
		return err
	}

	return w.Flush()
}
