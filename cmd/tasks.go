package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/aura/internal/formatter"
	"github.com/desertthunder/aura/internal/models"
	"github.com/desertthunder/aura/internal/shared"
	"github.com/urfave/cli/v3"
)

type (
	byTitleFunc func(ctx context.Context, owner, list, title string) (models.Outcome, error)
	byIndexFunc func(ctx context.Context, owner, list string, index int) (models.Outcome, error)
)

// TasksAdd gets or creates each positional title in the list given by --list.
func (r *Runner) TasksAdd(ctx context.Context, cmd *cli.Command) error {
	titles := args(cmd)
	if len(titles) == 0 {
		return fmt.Errorf("%w: at least one title", shared.ErrMissingArgument)
	}
	kind, err := models.ParseKind(cmd.String("kind"))
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

	list := cmd.String("list")
	results := make([]models.CreationResult, 0, len(titles))
	for _, title := range titles {
		res, err := r.engine.AddEntity(ctx, owner, kind, list, title, cmd.Bool("force"))
		if err != nil {
			return err
		}
		results = append(results, res)
		if res.MissingParent {
			break
		}
	}
	r.sessions.Touch(owner, "add_task", list)

	if cmd.Bool("json") {
		return r.writeJSON(results, true)
	}
	for i, res := range results {
		if res.MissingParent {
			return r.writePlain("✗ List %q not found; run 'aura lists create %s' first\n", list, list)
		}
		r.writeCreation(kind.String(), titles[i], res)
	}
	return nil
}

// TasksShow prints the active items of one list.
func (r *Runner) TasksShow(ctx context.Context, cmd *cli.Command) error {
	owner, err := r.owner(cmd)
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}
	items, err := r.engine.GetListTasks(ctx, owner, cmd.String("list"))
	if err != nil {
		return err
	}
	r.sessions.Touch(owner, "show_tasks", cmd.String("list"))
	return r.writeItems(items, cmd.String("format"))
}

// TasksAll prints active items across every live list.
func (r *Runner) TasksAll(ctx context.Context, cmd *cli.Command) error {
	owner, err := r.owner(cmd)
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}
	items, err := r.engine.GetAllTasks(ctx, owner)
	if err != nil {
		return err
	}
	return r.writeItems(items, cmd.String("format"))
}

// TasksSearch prints active items whose title matches the pattern.
func (r *Runner) TasksSearch(ctx context.Context, cmd *cli.Command) error {
	pattern := strings.TrimSpace(cmd.StringArg("pattern"))
	if pattern == "" {
		return fmt.Errorf("%w: search pattern", shared.ErrMissingArgument)
	}
	owner, err := r.owner(cmd)
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}
	items, err := r.engine.SearchTasks(ctx, owner, pattern)
	if err != nil {
		return err
	}
	return r.writeItems(items, cmd.String("format"))
}

// TasksCompleted prints the most recently completed or archived items.
func (r *Runner) TasksCompleted(ctx context.Context, cmd *cli.Command) error {
	owner, err := r.owner(cmd)
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}
	items, err := r.engine.GetCompletedTasks(ctx, owner, int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	return r.writeItems(items, cmd.String("format"))
}

// TasksDeleted prints the most recently deleted items.
func (r *Runner) TasksDeleted(ctx context.Context, cmd *cli.Command) error {
	owner, err := r.owner(cmd)
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}
	items, err := r.engine.GetDeletedTasks(ctx, owner, int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	return r.writeItems(items, cmd.String("format"))
}

// TasksDone marks items done by title, pattern or index.
func (r *Runner) TasksDone(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}
	return r.transition(ctx, cmd, "Done", "mark_done", r.engine.MarkTaskDone, r.engine.MarkTaskDoneFuzzy, r.engine.MarkTaskDoneByIndex, true)
}

// TasksDelete deletes items by title, pattern or index.
func (r *Runner) TasksDelete(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}
	return r.transition(ctx, cmd, "Deleted", "delete_task", r.engine.DeleteTask, r.engine.DeleteTaskFuzzy, r.engine.DeleteTaskByIndex, true)
}

// TasksRestore returns done, deleted or archived items to active.
func (r *Runner) TasksRestore(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}
	return r.transition(ctx, cmd, "Restored", "restore", r.engine.RestoreTask, r.engine.RestoreTaskFuzzy, r.engine.RestoreTaskByIndex, false)
}

// transition applies one of the lifecycle operations to every selected item.
//
// An index of -1 picks the last active item when lastIndex is set.
func (r *Runner) transition(
	ctx context.Context,
	cmd *cli.Command,
	verb, action string,
	exact, fuzzy byTitleFunc,
	byIndex byIndexFunc,
	lastIndex bool,
) error {
	owner, err := r.owner(cmd)
	if err != nil {
		return err
	}
	list := cmd.String("list")

	var outcomes []models.Outcome
	var refs []string
	if index := int(cmd.Int("index")); index != 0 {
		if index == -1 && lastIndex {
			items, err := r.engine.GetListTasks(ctx, owner, list)
			if err != nil {
				return err
			}
			index = len(items)
		}
		out, err := byIndex(ctx, owner, list, index)
		if err != nil {
			return err
		}
		outcomes = append(outcomes, out)
		refs = append(refs, fmt.Sprintf("#%d", index))
	} else {
		titles := args(cmd)
		if len(titles) == 0 {
			return fmt.Errorf("%w: a title or --index", shared.ErrMissingArgument)
		}
		fn := fuzzy
		if cmd.Bool("exact") {
			fn = exact
		}
		for _, title := range titles {
			out, err := fn(ctx, owner, list, title)
			if err != nil {
				return err
			}
			outcomes = append(outcomes, out)
			refs = append(refs, title)
		}
	}
	r.sessions.Touch(owner, action, list)

	if cmd.Bool("json") {
		return r.writeJSON(outcomes, true)
	}
	for i, out := range outcomes {
		r.writeOutcome(verb, refs[i], out)
	}
	return nil
}

// TasksUpdate retitles an item addressed by --index or by its current title.
func (r *Runner) TasksUpdate(ctx context.Context, cmd *cli.Command) error {
	owner, err := r.owner(cmd)
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	list := cmd.String("list")
	values := args(cmd)

	var out models.Outcome
	var ref string
	if index := int(cmd.Int("index")); index != 0 {
		if len(values) != 1 {
			return fmt.Errorf("%w: expected the new title", shared.ErrInvalidArgument)
		}
		ref = fmt.Sprintf("#%d", index)
		out, err = r.engine.UpdateTaskByIndex(ctx, owner, list, index, values[0])
	} else {
		if len(values) != 2 {
			return fmt.Errorf("%w: expected the old and new titles", shared.ErrInvalidArgument)
		}
		ref = values[0]
		out, err = r.engine.UpdateTask(ctx, owner, list, values[0], values[1])
	}
	if err != nil {
		return err
	}
	r.sessions.Touch(owner, "update_task", list)

	if cmd.Bool("json") {
		return r.writeJSON(out, true)
	}
	return r.writeOutcome("Updated", ref, out)
}

// TasksMove moves an item to another list, creating the destination when missing.
func (r *Runner) TasksMove(ctx context.Context, cmd *cli.Command) error {
	title := strings.Join(args(cmd), " ")
	if title == "" {
		return fmt.Errorf("%w: title", shared.ErrMissingArgument)
	}
	kind, err := models.ParseKind(cmd.String("kind"))
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

	to := cmd.String("to")
	out, err := r.engine.MoveEntity(ctx, owner, kind, title, cmd.String("list"), to, !cmd.Bool("exact"))
	if err != nil {
		return err
	}
	r.sessions.Touch(owner, "move_entity", to)

	if cmd.Bool("json") {
		return r.writeJSON(out, true)
	}
	return r.writeOutcome("Moved to "+to, title, out)
}

// TasksConvert changes the kind of an item.
func (r *Runner) TasksConvert(ctx context.Context, cmd *cli.Command) error {
	title := strings.Join(args(cmd), " ")
	if title == "" {
		return fmt.Errorf("%w: title", shared.ErrMissingArgument)
	}
	kind, err := models.ParseKind(cmd.String("to"))
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

	out, err := r.engine.ConvertEntity(ctx, owner, cmd.String("list"), title, kind)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(out, true)
	}
	return r.writeOutcome("Converted to "+kind.String(), title, out)
}

func (r *Runner) writeItems(items []models.TaskItem, format string) error {
	if len(items) == 0 {
		if f, _ := formatter.ParseFormat(format); f == formatter.FormatText {
			return r.writePlain("Nothing here.\n")
		}
	}
	return formatter.RenderItems(r.output, items, format)
}

// args returns the trimmed, non-empty positional arguments.
func args(cmd *cli.Command) []string {
	var out []string
	for _, a := range cmd.Args().Slice() {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
