package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/aura/internal/shared"
	"github.com/urfave/cli/v3"
)

// ProfileGet prints the owner's profile, creating an empty one on first use.
func (r *Runner) ProfileGet(ctx context.Context, cmd *cli.Command) error {
	owner, err := r.owner(cmd)
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	profile, err := r.engine.GetUserProfile(ctx, owner)
	if err != nil {
		return err
	}
	return r.writeJSON(profile, true)
}

// ProfileSet applies key=value pairs to the owner's profile.
func (r *Runner) ProfileSet(ctx context.Context, cmd *cli.Command) error {
	fields, err := parseFields(args(cmd))
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

	profile, err := r.engine.UpdateUserProfile(ctx, owner, fields)
	if err != nil {
		return err
	}
	r.logger.Info("profile updated", "owner", owner, "fields", len(fields))
	return r.writeJSON(profile, true)
}

func parseFields(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: at least one key=value pair", shared.ErrMissingArgument)
	}
	fields := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q is not key=value", shared.ErrInvalidArgument, pair)
		}
		fields[key] = strings.TrimSpace(value)
	}
	return fields, nil
}
