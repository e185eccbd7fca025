package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/aura/internal/models"
	"github.com/desertthunder/aura/internal/shared"
	"github.com/urfave/cli/v3"
)

// ListsShow prints the owner's live lists in creation order.
func (r *Runner) ListsShow(ctx context.Context, cmd *cli.Command) error {
	owner, err := r.owner(cmd)
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	lists, err := r.engine.GetAllLists(ctx, owner)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(lists, true)
	}

	if len(lists) == 0 {
		return r.writePlain("No lists yet.\n")
	}
	for i, list := range lists {
		r.writePlain("%d. %s\n", i+1, list.Title)
	}
	return nil
}

// ListsCreate gets or creates a list and reports what happened.
func (r *Runner) ListsCreate(ctx context.Context, cmd *cli.Command) error {
	name := strings.TrimSpace(cmd.StringArg("name"))
	if name == "" {
		return fmt.Errorf("%w: list name", shared.ErrMissingArgument)
	}
	owner, err := r.owner(cmd)
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	res, err := r.engine.CreateList(ctx, owner, name, cmd.Bool("force"))
	if err != nil {
		return err
	}
	r.logger.Info("list create", "owner", owner, "name", name, "created", res.Created)

	if cmd.Bool("json") {
		return r.writeJSON(res, true)
	}
	return r.writeCreation("list", name, res)
}

// ListsRename renames a list.
func (r *Runner) ListsRename(ctx context.Context, cmd *cli.Command) error {
	oldName := strings.TrimSpace(cmd.StringArg("old"))
	newName := strings.TrimSpace(cmd.StringArg("new"))
	if oldName == "" || newName == "" {
		return fmt.Errorf("%w: old and new list names", shared.ErrMissingArgument)
	}
	owner, err := r.owner(cmd)
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	out, err := r.engine.RenameList(ctx, owner, oldName, newName)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(out, true)
	}
	return r.writeOutcome("Renamed", oldName, out)
}

// ListsDelete soft-deletes a list and everything in it.
func (r *Runner) ListsDelete(ctx context.Context, cmd *cli.Command) error {
	name := strings.TrimSpace(cmd.StringArg("name"))
	if name == "" {
		return fmt.Errorf("%w: list name", shared.ErrMissingArgument)
	}
	owner, err := r.owner(cmd)
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	out, err := r.engine.DeleteList(ctx, owner, name)
	if err != nil {
		return err
	}
	if out.Applied {
		r.sessions.ForgetList(owner, out.Title)
	}
	if cmd.Bool("json") {
		return r.writeJSON(out, true)
	}
	return r.writeOutcome("Deleted list", name, out)
}

// writeCreation prints a one-line summary of a get-or-create result.
func (r *Runner) writeCreation(kind, title string, res models.CreationResult) error {
	switch {
	case res.MissingParent:
		return r.writePlain("✗ List not found for %q; create it first\n", title)
	case res.Created:
		return r.writePlain("✓ Created %s: %s\n", kind, res.Title)
	case res.Restored:
		return r.writePlain("✓ Restored %s: %s\n", kind, res.Title)
	case res.DuplicateDetected && res.AutoUse:
		return r.writePlain("✓ Using existing %s: %s (%.0f%% similar)\n", kind, res.DuplicateTitle, res.Similarity*100)
	case res.DuplicateDetected:
		return r.writePlain("? Similar %s exists: %s (%.0f%% similar); rerun with --force to create %q\n",
			kind, res.DuplicateTitle, res.Similarity*100, title)
	default:
		return r.writePlain("• Already exists: %s\n", res.Title)
	}
}

// writeOutcome prints a one-line summary of a mutation.
func (r *Runner) writeOutcome(verb, ref string, out models.Outcome) error {
	switch {
	case out.Applied && out.PreviousTitle != "":
		return r.writePlain("✓ %s: %s → %s\n", verb, out.PreviousTitle, out.Title)
	case out.Applied:
		return r.writePlain("✓ %s: %s\n", verb, out.Title)
	case out.Conflict:
		return r.writePlain("✗ %q already exists\n", out.Title)
	case out.Suggestion != "":
		return r.writePlain("✗ Not found: %s (%s)\n", ref, out.Suggestion)
	default:
		return r.writePlain("✗ Not found: %s\n", ref)
	}
}
