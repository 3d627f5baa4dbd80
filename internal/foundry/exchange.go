// ABOUTME: The four-step message exchange: post message, start run, poll, fetch reply
// ABOUTME: Bounded 1s x 45 poll loop with a soft-timeout fallback instead of an error

package foundry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"
)

type runResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	LastError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_error"`
}

type contentBlock struct {
	// Structured shape: {"text": {"value": "..."}}
	Text *struct {
		Value string `json:"value"`
	} `json:"text"`

	// Flat shape: {"value": "..."}
	Value string `json:"value"`
}

type threadMessage struct {
	Role      string         `json:"role"`
	CreatedAt int64          `json:"created_at"`
	Content   []contentBlock `json:"content"`
}

type messageList struct {
	Data []threadMessage `json:"data"`
}

// Exchange posts userText to the thread, starts a run, polls it to a
// terminal state, and returns the newest assistant reply text.
//
// Three outcomes are possible without an error: the extracted reply, the
// soft-timeout apology when the poll budget runs out, and a fixed fallback
// when a completed run produced no extractable text. Terminal run failures
// and non-success statuses surface as errors; nothing is retried beyond the
// poll loop itself.
func (c *Client) Exchange(ctx context.Context, threadID, userText string) (string, error) {
	start := time.Now()
	reply, err := c.exchange(ctx, threadID, userText)
	c.recorder.ExchangeFinished(exchangeOutcome(reply, err), time.Since(start))
	return reply, err
}

func exchangeOutcome(reply string, err error) string {
	switch {
	case err != nil:
		return "error"
	case reply == SoftTimeoutReply:
		return "soft_timeout"
	case reply == MissingTextReply:
		return "no_text"
	default:
		return "ok"
	}
}

func (c *Client) exchange(ctx context.Context, threadID, userText string) (string, error) {
	if err := c.postMessage(ctx, threadID, userText); err != nil {
		return "", err
	}

	runID, err := c.startRun(ctx, threadID)
	if err != nil {
		return "", err
	}

	completed, err := c.pollRun(ctx, threadID, runID)
	if err != nil {
		return "", err
	}
	if !completed {
		// Poll budget exhausted without a terminal state. Deliberately not
		// an error: the user is asked to retry rather than shown plumbing.
		c.logger.Warn("run did not complete within poll budget",
			"thread_id", threadID, "run_id", runID, "attempts", c.maxPolls)
		return SoftTimeoutReply, nil
	}

	return c.latestAssistantText(ctx, threadID)
}

// postMessage appends userText as a user-authored message to the thread.
func (c *Client) postMessage(ctx context.Context, threadID, userText string) error {
	const op = "post message"

	payload := map[string]string{"role": "user", "content": userText}
	status, body, err := c.do(ctx, op, http.MethodPost, c.url("/threads/"+threadID+"/messages"), payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return remoteError(op, status, body)
	}
	return nil
}

// startRun starts an agent run against the thread and returns the run id.
func (c *Client) startRun(ctx context.Context, threadID string) (string, error) {
	const op = "start run"

	payload := map[string]string{"assistant_id": c.agentID}
	status, body, err := c.do(ctx, op, http.MethodPost, c.url("/threads/"+threadID+"/runs"), payload)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return "", remoteError(op, status, body)
	}

	var rr runResponse
	if err := json.Unmarshal(body, &rr); err != nil || rr.ID == "" {
		return "", &ProtocolError{Op: op, Detail: "response carried no run id"}
	}
	return rr.ID, nil
}

// pollRun reads the run status at a fixed interval until it reaches a
// terminal state or the attempt budget runs out. Returns true on completed,
// false on budget exhaustion, and an error for terminal failures or
// non-200 status reads.
func (c *Client) pollRun(ctx context.Context, threadID, runID string) (bool, error) {
	const op = "poll run"

	statusURL := c.url("/threads/" + threadID + "/runs/" + runID)
	for attempt := 0; attempt < c.maxPolls; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return false, &TransportError{Op: op, Err: ctx.Err()}
			case <-time.After(c.pollInterval):
			}
		}

		status, body, err := c.do(ctx, op, http.MethodGet, statusURL, nil)
		if err != nil {
			return false, err
		}
		if status != http.StatusOK {
			return false, remoteError(op, status, body)
		}

		var rr runResponse
		if err := json.Unmarshal(body, &rr); err != nil {
			return false, &ProtocolError{Op: op, Detail: "unparseable run status body"}
		}

		c.logger.Debug("run status", "thread_id", threadID, "run_id", runID, "status", rr.Status)
		c.recorder.RunPolled(rr.Status)

		switch rr.Status {
		case runCompleted:
			return true, nil
		case runFailed, runCancelled, runExpired:
			re := &RemoteError{Op: op, Status: status, Message: fmt.Sprintf("run ended with status %s", rr.Status)}
			if rr.LastError != nil {
				re.Code = rr.LastError.Code
				re.Message = rr.LastError.Message
			}
			return false, re
		}
		// queued, in_progress, anything unknown: keep polling
	}

	return false, nil
}

// latestAssistantText fetches the thread's messages and extracts the text of
// the newest assistant message.
func (c *Client) latestAssistantText(ctx context.Context, threadID string) (string, error) {
	const op = "fetch messages"

	status, body, err := c.do(ctx, op, http.MethodGet, c.url("/threads/"+threadID+"/messages"), nil)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", remoteError(op, status, body)
	}

	var list messageList
	if err := json.Unmarshal(body, &list); err != nil {
		return "", &ProtocolError{Op: op, Detail: "unparseable message list"}
	}

	if text, ok := newestAssistantText(list.Data); ok {
		return text, nil
	}

	// The run completed but nothing displayable came back. Protocol-level
	// success; the caller still gets text.
	c.logger.Warn("completed run produced no extractable text", "thread_id", threadID)
	return MissingTextReply, nil
}

// newestAssistantText scans messages newest-first by created_at and returns
// the first non-empty text value from an assistant message. The listing is
// usually already newest-first, but ordering is not assumed.
func newestAssistantText(msgs []threadMessage) (string, bool) {
	sorted := make([]threadMessage, len(msgs))
	copy(sorted, msgs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt > sorted[j].CreatedAt
	})

	for _, msg := range sorted {
		if msg.Role != "assistant" {
			continue
		}
		for _, block := range msg.Content {
			if block.Text != nil && block.Text.Value != "" {
				return block.Text.Value, true
			}
			if block.Value != "" {
				return block.Value, true
			}
		}
	}
	return "", false
}
