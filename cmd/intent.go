package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/desertthunder/aura/internal/intents"
	"github.com/urfave/cli/v3"
)

// Intent decodes an intent payload and dispatches it for the owner.
//
// The payload comes from --data, then --file, then standard input. Pending confirmations
// do not outlive the process, so --yes answers one in the same run.
func (r *Runner) Intent(ctx context.Context, cmd *cli.Command) error {
	payload, err := r.readPayload(cmd)
	if err != nil {
		return err
	}
	owner, err := r.owner(cmd)
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	replies, err := r.dispatcher.DispatchPayload(ctx, owner, payload)
	if err != nil && len(replies) == 0 {
		return err
	}

	if err == nil && cmd.Bool("yes") && r.sessions.Get(owner).Pending != nil {
		reply, aerr := r.dispatcher.Answer(ctx, owner, true)
		if aerr != nil {
			return aerr
		}
		replies = append(replies, reply)
	}

	if cmd.Bool("json") {
		if werr := r.writeJSON(replies, cmd.Bool("pretty")); werr != nil {
			return werr
		}
		return err
	}

	for _, reply := range replies {
		r.writeReply(reply)
	}
	return err
}

func (r *Runner) readPayload(cmd *cli.Command) ([]byte, error) {
	if data := cmd.String("data"); data != "" {
		return []byte(data), nil
	}
	if path := cmd.String("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read payload file: %w", err)
		}
		return data, nil
	}
	data, err := io.ReadAll(r.input)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	return data, nil
}

func (r *Runner) writeReply(reply intents.Reply) {
	if reply.Message != "" {
		r.writePlain("%s\n", reply.Message)
	}
	for _, item := range reply.Items {
		if item.Index > 0 {
			r.writePlain("  %d. %s\n", item.Index, item.Title)
		} else {
			r.writePlain("  - %s\n", item.Title)
		}
	}
	if reply.Question != "" {
		r.writePlain("? %s\n", reply.Question)
	}
}
