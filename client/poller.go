package client

import (
	"context"
	"errors"
	"time"
)

// PollResult polls getTaskResult until the task leaves the "processing"
// state, sleeping the configured interval between attempts. The query body
// is built once and reused verbatim for every attempt.
//
// Terminal outcomes:
//   - "ready": the solution token is returned.
//   - any other status: RemoteError with the response's errorCode.
//   - undecodable body, or "ready" without a token: MalformedResponseError.
//   - attempt cap reached (when WithMaxAttempts is set): ErrPollTimeout.
//   - context cancelled or expired: the context's error.
//
// With no cap and no context deadline the loop runs as long as the service
// keeps answering "processing".
func (c *Client) PollResult(ctx context.Context, taskID string) (string, error) {
	if taskID == "" {
		return "", ErrEmptyTaskID
	}

	query := resultQuery{ClientKey: c.clientKey, TaskID: taskID}

	for attempt := 1; ; attempt++ {
		var res Result
		if err := c.post(ctx, "/getTaskResult", query, &res); err != nil {
			c.log.Error().Err(err).Str("taskId", taskID).Msg("getTaskResult failed")
			return "", err
		}

		switch res.Status {
		case StatusReady:
			if res.Solution == nil || res.Solution.GRecaptchaResponse == "" {
				err := &MalformedResponseError{Err: errors.New("status is ready but solution token is missing")}
				c.log.Error().Err(err).Str("taskId", taskID).Msg("unusable result")
				return "", err
			}
			c.log.Debug().Str("taskId", taskID).Int("attempts", attempt).Msg("task solved")
			return res.Solution.GRecaptchaResponse, nil

		case StatusProcessing:
			c.log.Info().Str("taskId", taskID).Int("attempt", attempt).Msg("task still processing")
			if c.maxAttempts > 0 && attempt >= c.maxAttempts {
				return "", ErrPollTimeout
			}
			if err := sleep(ctx, c.pollInterval); err != nil {
				return "", err
			}

		default:
			c.log.Error().Str("taskId", taskID).Str("errorCode", res.ErrorCode).Msg("task failed")
			return "", &RemoteError{Code: res.ErrorCode}
		}
	}
}

// SolveRecaptchaV2 submits a challenge and polls until it resolves,
// returning the challenge-response token.
func (c *Client) SolveRecaptchaV2(ctx context.Context, websiteURL, websiteKey string) (string, error) {
	taskID, err := c.CreateTask(ctx, websiteURL, websiteKey)
	if err != nil {
		return "", err
	}
	return c.PollResult(ctx, taskID)
}

// sleep blocks for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
