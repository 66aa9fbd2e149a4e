// Demo: submit a ReCaptchaV2 task and poll until it is solved.
//
// Run the bundled server first (see server/), register a client account and
// paste its API key below, or point the client at any compatible service.
package main

import (
	"context"
	"os"

	"captcha-client/client"

	"github.com/rs/zerolog"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	c := client.New("YOUR_CLIENT_KEY",
		client.WithBaseURL("http://localhost:8080"),
		client.WithLogger(log),
	)

	ctx := context.Background()

	taskID, err := c.CreateTask(ctx,
		"https://deathbycaptcha.com/register",
		"6LeEnRsTAAAAAPHVIS06iy22BKCxrBsvyC7IrTVi",
	)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create task")
	}
	log.Info().Str("taskId", taskID).Msg("task created, polling for result")

	token, err := c.PollResult(ctx, taskID)
	if err != nil {
		log.Fatal().Err(err).Msg("could not get result")
	}

	log.Info().Str("token", token).Msg("captcha solved")
}
