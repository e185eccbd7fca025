package tasks

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/aura/internal/models"
	"github.com/desertthunder/aura/internal/shared"
	th "github.com/desertthunder/aura/internal/testing"
)

const owner = "user-1"

var _ Engine = (*ListEngine)(nil)

func newTestEngine(t *testing.T) *ListEngine {
	t.Helper()
	db := th.NewTestDB(t)
	clock := th.NewClock(time.Date(2025, 10, 12, 9, 0, 0, 0, time.UTC))
	return NewListEngine(db, WithLogger(shared.NewLogger(io.Discard)), WithClock(clock.Now))
}

func mustCreateList(t *testing.T, e *ListEngine, name string) string {
	t.Helper()
	res, err := e.CreateList(context.Background(), owner, name, false)
	if err != nil {
		t.Fatalf("CreateList(%q) failed: %v", name, err)
	}
	if res.ID == "" {
		t.Fatalf("CreateList(%q) returned no id: %+v", name, res)
	}
	return res.ID
}

func mustAddTasks(t *testing.T, e *ListEngine, list string, titles ...string) {
	t.Helper()
	for _, title := range titles {
		res, err := e.AddTask(context.Background(), owner, list, title, false)
		if err != nil {
			t.Fatalf("AddTask(%q, %q) failed: %v", list, title, err)
		}
		if !res.Created {
			t.Fatalf("AddTask(%q, %q) did not create: %+v", list, title, res)
		}
	}
}

func titles(items []models.TaskItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

func mustListTitles(t *testing.T, e *ListEngine, list string) []string {
	t.Helper()
	items, err := e.GetListTasks(context.Background(), owner, list)
	if err != nil {
		t.Fatalf("GetListTasks(%q) failed: %v", list, err)
	}
	return titles(items)
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCreateList(t *testing.T) {
	ctx := context.Background()

	t.Run("second call returns the same list", func(t *testing.T) {
		e := newTestEngine(t)
		first, err := e.CreateList(ctx, owner, "Покупки", false)
		if err != nil {
			t.Fatalf("CreateList failed: %v", err)
		}
		if !first.Created {
			t.Fatalf("expected created, got %+v", first)
		}

		second, err := e.CreateList(ctx, owner, "покупки ", false)
		if err != nil {
			t.Fatalf("CreateList failed: %v", err)
		}
		if second.Created {
			t.Error("second call must not create")
		}
		if second.ID != first.ID {
			t.Errorf("expected id %s, got %s", first.ID, second.ID)
		}
		if !second.DuplicateDetected || second.Similarity != 1.0 || !second.AutoUse {
			t.Errorf("expected exact duplicate with autoUse, got %+v", second)
		}

		lists, err := e.GetAllLists(ctx, owner)
		if err != nil {
			t.Fatalf("GetAllLists failed: %v", err)
		}
		if len(lists) != 1 {
			t.Errorf("expected 1 list, got %d", len(lists))
		}
	})

	t.Run("near duplicate is reported", func(t *testing.T) {
		e := newTestEngine(t)
		id := mustCreateList(t, e, "Продукты")

		res, err := e.CreateList(ctx, owner, "продуктами", false)
		if err != nil {
			t.Fatalf("CreateList failed: %v", err)
		}
		if res.Created || !res.DuplicateDetected {
			t.Fatalf("expected near duplicate, got %+v", res)
		}
		if res.DuplicateID != id || res.DuplicateTitle != "Продукты" {
			t.Errorf("unexpected duplicate %s %q", res.DuplicateID, res.DuplicateTitle)
		}
		if !res.AutoUse {
			t.Error("similarity 1 should allow auto use")
		}
	})

	t.Run("force skips near duplicate detection", func(t *testing.T) {
		e := newTestEngine(t)
		mustCreateList(t, e, "Продукты")

		res, err := e.CreateList(ctx, owner, "продуктами", true)
		if err != nil {
			t.Fatalf("CreateList failed: %v", err)
		}
		if !res.Created {
			t.Errorf("expected forced creation, got %+v", res)
		}
	})

	t.Run("force still returns exact duplicates", func(t *testing.T) {
		e := newTestEngine(t)
		id := mustCreateList(t, e, "Работа")

		res, err := e.CreateList(ctx, owner, "РАБОТА", true)
		if err != nil {
			t.Fatalf("CreateList failed: %v", err)
		}
		if res.Created || res.ID != id {
			t.Errorf("expected existing list, got %+v", res)
		}
	})

	t.Run("empty name", func(t *testing.T) {
		e := newTestEngine(t)
		res, err := e.CreateList(ctx, owner, "   ", false)
		if err != nil {
			t.Fatalf("CreateList failed: %v", err)
		}
		if !res.Empty() {
			t.Errorf("expected empty result, got %+v", res)
		}
	})

	t.Run("owners are isolated", func(t *testing.T) {
		e := newTestEngine(t)
		id := mustCreateList(t, e, "Покупки")

		res, err := e.CreateList(ctx, "user-2", "Покупки", false)
		if err != nil {
			t.Fatalf("CreateList failed: %v", err)
		}
		if !res.Created || res.ID == id {
			t.Errorf("another owner should get its own list, got %+v", res)
		}
	})

	t.Run("missing owner", func(t *testing.T) {
		e := newTestEngine(t)
		if _, err := e.CreateList(ctx, " ", "Покупки", false); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestCreateListConcurrent(t *testing.T) {
	db, err := shared.NewDatabase(filepath.Join(t.TempDir(), "aura.db"))
	if err != nil {
		t.Fatalf("NewDatabase failed: %v", err)
	}
	defer db.Close()
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}

	e := NewListEngine(db, WithLogger(shared.NewLogger(io.Discard)))

	const callers = 8
	ids := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := e.CreateList(context.Background(), owner, "Покупки", false)
			ids[i], errs[i] = res.ID, err
		}(i)
	}
	wg.Wait()

	for i := range callers {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Errorf("caller %d got id %s, want %s", i, ids[i], ids[0])
		}
	}

	lists, err := e.GetAllLists(context.Background(), owner)
	if err != nil {
		t.Fatalf("GetAllLists failed: %v", err)
	}
	if len(lists) != 1 {
		t.Errorf("expected exactly one list, got %d", len(lists))
	}
}

func TestAddTask(t *testing.T) {
	ctx := context.Background()

	t.Run("exact duplicate leaves the list unchanged", func(t *testing.T) {
		e := newTestEngine(t)
		mustCreateList(t, e, "Покупки")
		mustAddTasks(t, e, "Покупки", "Хлеб")

		res, err := e.AddTask(ctx, owner, "Покупки", "  хлеб", false)
		if err != nil {
			t.Fatalf("AddTask failed: %v", err)
		}
		if !res.DuplicateDetected || res.Similarity != 1.0 || res.Created {
			t.Errorf("expected exact duplicate, got %+v", res)
		}

		if got := mustListTitles(t, e, "Покупки"); !equal(got, []string{"Хлеб"}) {
			t.Errorf("expected one task, got %v", got)
		}
	})

	t.Run("missing list", func(t *testing.T) {
		e := newTestEngine(t)
		res, err := e.AddTask(ctx, owner, "Нет такого", "Хлеб", false)
		if err != nil {
			t.Fatalf("AddTask failed: %v", err)
		}
		if !res.MissingParent || res.ID != "" {
			t.Errorf("expected missing parent, got %+v", res)
		}
	})

	t.Run("done task is revived", func(t *testing.T) {
		e := newTestEngine(t)
		mustCreateList(t, e, "Покупки")
		mustAddTasks(t, e, "Покупки", "Хлеб")

		done, err := e.MarkTaskDone(ctx, owner, "Покупки", "Хлеб")
		if err != nil || !done.Applied {
			t.Fatalf("MarkTaskDone = %+v, %v", done, err)
		}

		res, err := e.AddTask(ctx, owner, "Покупки", "хлеб", false)
		if err != nil {
			t.Fatalf("AddTask failed: %v", err)
		}
		if !res.Restored || res.ID != done.ID {
			t.Errorf("expected revival of %s, got %+v", done.ID, res)
		}
		if got := mustListTitles(t, e, "Покупки"); !equal(got, []string{"Хлеб"}) {
			t.Errorf("expected revived task in list, got %v", got)
		}
	})

	t.Run("deleted task is revived", func(t *testing.T) {
		e := newTestEngine(t)
		mustCreateList(t, e, "Покупки")
		mustAddTasks(t, e, "Покупки", "Хлеб")

		if out, err := e.DeleteTask(ctx, owner, "Покупки", "Хлеб"); err != nil || !out.Applied {
			t.Fatalf("DeleteTask = %+v, %v", out, err)
		}

		res, err := e.AddTask(ctx, owner, "Покупки", "Хлеб", false)
		if err != nil {
			t.Fatalf("AddTask failed: %v", err)
		}
		if !res.Restored {
			t.Errorf("expected revival, got %+v", res)
		}
	})

	t.Run("near duplicate among siblings", func(t *testing.T) {
		e := newTestEngine(t)
		mustCreateList(t, e, "Дом")
		mustAddTasks(t, e, "Дом", "Оплатить свет")

		res, err := e.AddTask(ctx, owner, "Дом", "заплатить за электричество", false)
		if err != nil {
			t.Fatalf("AddTask failed: %v", err)
		}
		if !res.DuplicateDetected || res.DuplicateTitle != "Оплатить свет" {
			t.Errorf("expected near duplicate, got %+v", res)
		}

		forced, err := e.AddTask(ctx, owner, "Дом", "заплатить за электричество", true)
		if err != nil {
			t.Fatalf("AddTask failed: %v", err)
		}
		if !forced.Created {
			t.Errorf("expected forced creation, got %+v", forced)
		}
	})

	t.Run("titles are unique across child kinds", func(t *testing.T) {
		e := newTestEngine(t)
		mustCreateList(t, e, "Идеи")

		if _, err := e.AddEntity(ctx, owner, models.KindNote, "Идеи", "Отпуск", false); err != nil {
			t.Fatalf("AddEntity failed: %v", err)
		}
		res, err := e.AddEntity(ctx, owner, models.KindTask, "Идеи", "отпуск", false)
		if err != nil {
			t.Fatalf("AddEntity failed: %v", err)
		}
		if res.Created || !res.DuplicateDetected {
			t.Errorf("expected duplicate across kinds, got %+v", res)
		}
	})

	t.Run("list kind is not a child kind", func(t *testing.T) {
		e := newTestEngine(t)
		mustCreateList(t, e, "Идеи")
		if _, err := e.AddEntity(ctx, owner, models.KindList, "Идеи", "Вложенный", false); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestDeleteTaskByIndex(t *testing.T) {
	tc := []struct {
		index   int
		applied bool
	}{
		{index: -1},
		{index: 0},
		{index: 1, applied: true},
		{index: 2, applied: true},
		{index: 3, applied: true},
		{index: 4},
	}

	for _, tt := range tc {
		e := newTestEngine(t)
		mustCreateList(t, e, "Покупки")
		mustAddTasks(t, e, "Покупки", "Хлеб", "Молоко", "Сыр")

		out, err := e.DeleteTaskByIndex(context.Background(), owner, "Покупки", tt.index)
		if err != nil {
			t.Fatalf("DeleteTaskByIndex(%d) failed: %v", tt.index, err)
		}
		if out.Applied != tt.applied || out.NotFound == tt.applied {
			t.Errorf("DeleteTaskByIndex(%d) = %+v, want applied=%v", tt.index, out, tt.applied)
		}

		remaining := mustListTitles(t, e, "Покупки")
		want := 3
		if tt.applied {
			want = 2
		}
		if len(remaining) != want {
			t.Errorf("index %d: expected %d remaining tasks, got %v", tt.index, want, remaining)
		}
	}
}

func TestDeleteAfterDone(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	mustCreateList(t, e, "Покупки")
	mustAddTasks(t, e, "Покупки", "Хлеб")

	if out, err := e.MarkTaskDone(ctx, owner, "Покупки", "Хлеб"); err != nil || !out.Applied {
		t.Fatalf("MarkTaskDone = %+v, %v", out, err)
	}

	out, err := e.DeleteTask(ctx, owner, "Покупки", "Хлеб")
	if err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if !out.NotFound || out.Applied {
		t.Errorf("deleting a done task should be not found, got %+v", out)
	}

	completed, err := e.GetCompletedTasks(ctx, owner, 0)
	if err != nil {
		t.Fatalf("GetCompletedTasks failed: %v", err)
	}
	if len(completed) != 1 || completed[0].State != models.StateDone {
		t.Errorf("expected the task to stay done, got %+v", completed)
	}
}

func TestFuzzyOperations(t *testing.T) {
	ctx := context.Background()

	t.Run("mark done by pattern", func(t *testing.T) {
		e := newTestEngine(t)
		mustCreateList(t, e, "Покупки")
		mustAddTasks(t, e, "Покупки", "Купить хлеб", "Купить молоко")

		out, err := e.MarkTaskDoneFuzzy(ctx, owner, "Покупки", "хлеб")
		if err != nil {
			t.Fatalf("MarkTaskDoneFuzzy failed: %v", err)
		}
		if !out.Applied || out.Title != "Купить хлеб" {
			t.Errorf("expected «Купить хлеб», got %+v", out)
		}
		if got := mustListTitles(t, e, "Покупки"); !equal(got, []string{"Купить молоко"}) {
			t.Errorf("unexpected remaining tasks %v", got)
		}
	})

	t.Run("delete by pattern", func(t *testing.T) {
		e := newTestEngine(t)
		mustCreateList(t, e, "Покупки")
		mustAddTasks(t, e, "Покупки", "Хлеб", "Молоко")

		out, err := e.DeleteTaskFuzzy(ctx, owner, "Покупки", "молок")
		if err != nil {
			t.Fatalf("DeleteTaskFuzzy failed: %v", err)
		}
		if !out.Applied || out.Title != "Молоко" {
			t.Errorf("expected «Молоко», got %+v", out)
		}
	})

	t.Run("no match", func(t *testing.T) {
		e := newTestEngine(t)
		mustCreateList(t, e, "Покупки")
		mustAddTasks(t, e, "Покупки", "Хлеб")

		out, err := e.MarkTaskDoneFuzzy(ctx, owner, "Покупки", "самолёт")
		if err != nil {
			t.Fatalf("MarkTaskDoneFuzzy failed: %v", err)
		}
		if !out.NotFound {
			t.Errorf("expected not found, got %+v", out)
		}
	})

	t.Run("missing list", func(t *testing.T) {
		e := newTestEngine(t)
		out, err := e.MarkTaskDoneByIndex(ctx, owner, "Нет такого", 1)
		if err != nil {
			t.Fatalf("MarkTaskDoneByIndex failed: %v", err)
		}
		if !out.NotFound {
			t.Errorf("expected not found, got %+v", out)
		}
	})
}

func TestDeleteList(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	mustCreateList(t, e, "Покупки")
	mustCreateList(t, e, "Работа")
	mustAddTasks(t, e, "Покупки", "Хлеб", "Молоко", "Сыр")

	if out, err := e.MarkTaskDone(ctx, owner, "Покупки", "Молоко"); err != nil || !out.Applied {
		t.Fatalf("MarkTaskDone = %+v, %v", out, err)
	}
	if out, err := e.DeleteTask(ctx, owner, "Покупки", "Сыр"); err != nil || !out.Applied {
		t.Fatalf("DeleteTask = %+v, %v", out, err)
	}

	out, err := e.DeleteList(ctx, owner, "покупки")
	if err != nil {
		t.Fatalf("DeleteList failed: %v", err)
	}
	if !out.Applied {
		t.Fatalf("expected list deletion, got %+v", out)
	}

	lists, err := e.GetAllLists(ctx, owner)
	if err != nil {
		t.Fatalf("GetAllLists failed: %v", err)
	}
	if len(lists) != 1 || lists[0].Title != "Работа" {
		t.Errorf("expected only «Работа», got %v", lists)
	}

	items, err := e.GetListTasks(ctx, owner, "Покупки")
	if err != nil {
		t.Fatalf("GetListTasks failed: %v", err)
	}
	if items != nil {
		t.Errorf("deleted list should have no tasks, got %v", items)
	}

	completed, err := e.GetCompletedTasks(ctx, owner, 0)
	if err != nil {
		t.Fatalf("GetCompletedTasks failed: %v", err)
	}
	if len(completed) != 2 {
		t.Fatalf("expected 2 archived rows, got %+v", completed)
	}
	for _, it := range completed {
		if it.State != models.StateArchived {
			t.Errorf("%q: expected archived, got %s", it.Title, it.State)
		}
		if it.List != "Покупки" || it.Label != "Архив • Покупки" {
			t.Errorf("%q: unexpected framing list=%q label=%q", it.Title, it.List, it.Label)
		}
	}

	deleted, err := e.GetDeletedTasks(ctx, owner, 0)
	if err != nil {
		t.Fatalf("GetDeletedTasks failed: %v", err)
	}
	if !equal(titles(deleted), []string{"Сыр"}) {
		t.Errorf("previously deleted task should stay deleted, got %v", titles(deleted))
	}

	again, err := e.DeleteList(ctx, owner, "Покупки")
	if err != nil {
		t.Fatalf("DeleteList failed: %v", err)
	}
	if !again.NotFound {
		t.Errorf("second delete should be not found, got %+v", again)
	}

	recreated, err := e.CreateList(ctx, owner, "Покупки", false)
	if err != nil {
		t.Fatalf("CreateList failed: %v", err)
	}
	if !recreated.Created {
		t.Errorf("a deleted list name should be free, got %+v", recreated)
	}
}

func TestRestoreTask(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps creation order", func(t *testing.T) {
		e := newTestEngine(t)
		mustCreateList(t, e, "Покупки")
		mustAddTasks(t, e, "Покупки", "Хлеб", "Молоко", "Сыр")

		if out, err := e.DeleteTask(ctx, owner, "Покупки", "Молоко"); err != nil || !out.Applied {
			t.Fatalf("DeleteTask = %+v, %v", out, err)
		}

		out, err := e.RestoreTask(ctx, owner, "Покупки", "молоко")
		if err != nil {
			t.Fatalf("RestoreTask failed: %v", err)
		}
		if !out.Applied {
			t.Fatalf("expected restore, got %+v", out)
		}

		want := []string{"Хлеб", "Молоко", "Сыр"}
		if got := mustListTitles(t, e, "Покупки"); !equal(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("by index over restorable tasks", func(t *testing.T) {
		e := newTestEngine(t)
		mustCreateList(t, e, "Покупки")
		mustAddTasks(t, e, "Покупки", "Хлеб", "Молоко", "Сыр")

		if _, err := e.MarkTaskDone(ctx, owner, "Покупки", "Хлеб"); err != nil {
			t.Fatalf("MarkTaskDone failed: %v", err)
		}
		if _, err := e.DeleteTask(ctx, owner, "Покупки", "Сыр"); err != nil {
			t.Fatalf("DeleteTask failed: %v", err)
		}

		out, err := e.RestoreTaskByIndex(ctx, owner, "Покупки", 2)
		if err != nil {
			t.Fatalf("RestoreTaskByIndex failed: %v", err)
		}
		if !out.Applied || out.Title != "Сыр" {
			t.Errorf("expected «Сыр», got %+v", out)
		}

		out, err = e.RestoreTaskByIndex(ctx, owner, "Покупки", 2)
		if err != nil {
			t.Fatalf("RestoreTaskByIndex failed: %v", err)
		}
		if !out.NotFound {
			t.Errorf("expected not found once one candidate remains, got %+v", out)
		}
	})

	t.Run("active tasks are not restorable", func(t *testing.T) {
		e := newTestEngine(t)
		mustCreateList(t, e, "Покупки")
		mustAddTasks(t, e, "Покупки", "Хлеб")

		out, err := e.RestoreTaskFuzzy(ctx, owner, "Покупки", "хлеб")
		if err != nil {
			t.Fatalf("RestoreTaskFuzzy failed: %v", err)
		}
		if !out.NotFound {
			t.Errorf("expected not found, got %+v", out)
		}
	})

	t.Run("suggests re-creating a deleted list", func(t *testing.T) {
		e := newTestEngine(t)
		mustCreateList(t, e, "Дача")
		mustAddTasks(t, e, "Дача", "Полить огурцы")

		if out, err := e.DeleteList(ctx, owner, "Дача"); err != nil || !out.Applied {
			t.Fatalf("DeleteList = %+v, %v", out, err)
		}

		out, err := e.RestoreTaskFuzzy(ctx, owner, "Дача", "огурцы")
		if err != nil {
			t.Fatalf("RestoreTaskFuzzy failed: %v", err)
		}
		if out.Applied || !out.NotFound {
			t.Errorf("expected no mutation, got %+v", out)
		}
		if !strings.Contains(out.Suggestion, "«Дача»") || !strings.Contains(out.Suggestion, "«Полить огурцы»") {
			t.Errorf("unexpected suggestion %q", out.Suggestion)
		}

		listID := mustCreateList(t, e, "дача")
		out, err = e.RestoreTask(ctx, owner, "Дача", "Полить огурцы")
		if err != nil {
			t.Fatalf("RestoreTask failed: %v", err)
		}
		if !out.Applied {
			t.Fatalf("expected restore into re-created list, got %+v", out)
		}
		if got := mustListTitles(t, e, "дача"); !equal(got, []string{"Полить огурцы"}) {
			t.Errorf("expected task in re-created list, got %v", got)
		}

		items, err := e.GetListTasks(ctx, owner, "Дача")
		if err != nil {
			t.Fatalf("GetListTasks failed: %v", err)
		}
		if len(items) != 1 || items[0].List != "дача" {
			t.Errorf("expected the item to belong to list %s, got %+v", listID, items)
		}
	})

	t.Run("conflict with an active sibling", func(t *testing.T) {
		e := newTestEngine(t)
		mustCreateList(t, e, "Покупки")
		mustAddTasks(t, e, "Покупки", "Хлеб")
		if _, err := e.DeleteList(ctx, owner, "Покупки"); err != nil {
			t.Fatalf("DeleteList failed: %v", err)
		}

		mustCreateList(t, e, "Покупки")
		mustAddTasks(t, e, "Покупки", "Хлеб")

		out, err := e.RestoreTask(ctx, owner, "Покупки", "Хлеб")
		if err != nil {
			t.Fatalf("RestoreTask failed: %v", err)
		}
		if !out.Conflict || out.Applied {
			t.Errorf("the archived copy and the active one share a title, got %+v", out)
		}
	})
}

func TestRenameAndUpdate(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	mustCreateList(t, e, "Покупки")
	mustCreateList(t, e, "Работа")
	mustAddTasks(t, e, "Покупки", "Хлеб", "Молоко")

	t.Run("rename list", func(t *testing.T) {
		out, err := e.RenameList(ctx, owner, "покупки", "Продукты")
		if err != nil {
			t.Fatalf("RenameList failed: %v", err)
		}
		if !out.Applied || out.PreviousTitle != "Покупки" || out.Title != "Продукты" {
			t.Errorf("unexpected outcome %+v", out)
		}
	})

	t.Run("rename onto an existing list", func(t *testing.T) {
		out, err := e.RenameList(ctx, owner, "Продукты", "работа")
		if err != nil {
			t.Fatalf("RenameList failed: %v", err)
		}
		if !out.Conflict || out.Title != "Работа" {
			t.Errorf("expected conflict with «Работа», got %+v", out)
		}
	})

	t.Run("rename to a different case of itself", func(t *testing.T) {
		out, err := e.RenameList(ctx, owner, "Работа", "РАБОТА")
		if err != nil {
			t.Fatalf("RenameList failed: %v", err)
		}
		if !out.Applied {
			t.Errorf("expected rename, got %+v", out)
		}
	})

	t.Run("rename missing list", func(t *testing.T) {
		out, err := e.RenameList(ctx, owner, "Нет такого", "Что-то")
		if err != nil {
			t.Fatalf("RenameList failed: %v", err)
		}
		if !out.NotFound {
			t.Errorf("expected not found, got %+v", out)
		}
	})

	t.Run("rename to empty", func(t *testing.T) {
		if _, err := e.RenameList(ctx, owner, "Продукты", " "); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("update task", func(t *testing.T) {
		out, err := e.UpdateTask(ctx, owner, "Продукты", "хлеб", "Хлеб бородинский")
		if err != nil {
			t.Fatalf("UpdateTask failed: %v", err)
		}
		if !out.Applied || out.PreviousTitle != "Хлеб" {
			t.Errorf("unexpected outcome %+v", out)
		}
	})

	t.Run("update by index onto a sibling", func(t *testing.T) {
		out, err := e.UpdateTaskByIndex(ctx, owner, "Продукты", 1, "молоко")
		if err != nil {
			t.Fatalf("UpdateTaskByIndex failed: %v", err)
		}
		if !out.Conflict || out.Title != "Молоко" {
			t.Errorf("expected conflict with «Молоко», got %+v", out)
		}
	})

	t.Run("update by index out of range", func(t *testing.T) {
		out, err := e.UpdateTaskByIndex(ctx, owner, "Продукты", 3, "Кефир")
		if err != nil {
			t.Fatalf("UpdateTaskByIndex failed: %v", err)
		}
		if !out.NotFound {
			t.Errorf("expected not found, got %+v", out)
		}
	})

	want := []string{"Хлеб бородинский", "Молоко"}
	if got := mustListTitles(t, e, "Продукты"); !equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMoveAndConvert(t *testing.T) {
	ctx := context.Background()

	t.Run("move creates the target list", func(t *testing.T) {
		e := newTestEngine(t)
		mustCreateList(t, e, "Покупки")
		mustAddTasks(t, e, "Покупки", "Хлеб", "Молоко")

		out, err := e.MoveEntity(ctx, owner, models.KindTask, "хлеб", "Покупки", "Дом", false)
		if err != nil {
			t.Fatalf("MoveEntity failed: %v", err)
		}
		if !out.Applied {
			t.Fatalf("expected move, got %+v", out)
		}

		if got := mustListTitles(t, e, "Дом"); !equal(got, []string{"Хлеб"}) {
			t.Errorf("expected «Хлеб» in «Дом», got %v", got)
		}
		if got := mustListTitles(t, e, "Покупки"); !equal(got, []string{"Молоко"}) {
			t.Errorf("expected «Молоко» left, got %v", got)
		}
	})

	t.Run("fuzzy move into a near duplicate list", func(t *testing.T) {
		e := newTestEngine(t)
		mustCreateList(t, e, "Входящие")
		mustCreateList(t, e, "Продукты")
		mustAddTasks(t, e, "Входящие", "Купить хлеб")

		out, err := e.MoveEntity(ctx, owner, models.KindTask, "хлеб", "Входящие", "продуктами", true)
		if err != nil {
			t.Fatalf("MoveEntity failed: %v", err)
		}
		if !out.Applied {
			t.Fatalf("expected move, got %+v", out)
		}
		if got := mustListTitles(t, e, "Продукты"); !equal(got, []string{"Купить хлеб"}) {
			t.Errorf("expected the task in «Продукты», got %v", got)
		}

		lists, err := e.GetAllLists(ctx, owner)
		if err != nil {
			t.Fatalf("GetAllLists failed: %v", err)
		}
		if len(lists) != 2 {
			t.Errorf("no list should have been created, got %d lists", len(lists))
		}
	})

	t.Run("move conflicts with a sibling in the target", func(t *testing.T) {
		e := newTestEngine(t)
		mustCreateList(t, e, "Покупки")
		mustCreateList(t, e, "Дом")
		mustAddTasks(t, e, "Покупки", "Хлеб")
		mustAddTasks(t, e, "Дом", "Хлеб")

		out, err := e.MoveEntity(ctx, owner, models.KindTask, "Хлеб", "Покупки", "Дом", false)
		if err != nil {
			t.Fatalf("MoveEntity failed: %v", err)
		}
		if !out.Conflict {
			t.Errorf("expected conflict, got %+v", out)
		}
	})

	t.Run("move only matches the given kind", func(t *testing.T) {
		e := newTestEngine(t)
		mustCreateList(t, e, "Покупки")
		mustAddTasks(t, e, "Покупки", "Хлеб")

		out, err := e.MoveEntity(ctx, owner, models.KindNote, "Хлеб", "Покупки", "Дом", false)
		if err != nil {
			t.Fatalf("MoveEntity failed: %v", err)
		}
		if !out.NotFound {
			t.Errorf("expected not found, got %+v", out)
		}
	})

	t.Run("convert", func(t *testing.T) {
		e := newTestEngine(t)
		mustCreateList(t, e, "Идеи")
		mustAddTasks(t, e, "Идеи", "Отпуск в горах")

		out, err := e.ConvertEntity(ctx, owner, "Идеи", "отпуск в горах", models.KindNote)
		if err != nil {
			t.Fatalf("ConvertEntity failed: %v", err)
		}
		if !out.Applied {
			t.Fatalf("expected conversion, got %+v", out)
		}

		items, err := e.GetListTasks(ctx, owner, "Идеи")
		if err != nil {
			t.Fatalf("GetListTasks failed: %v", err)
		}
		if len(items) != 1 || items[0].Kind != models.KindNote {
			t.Errorf("expected a note, got %+v", items)
		}

		if _, err := e.ConvertEntity(ctx, owner, "Идеи", "Отпуск в горах", models.KindUserProfile); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestViews(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	mustCreateList(t, e, "Работа")
	mustCreateList(t, e, "Покупки")
	mustAddTasks(t, e, "Покупки", "Хлеб", "Молоко")
	mustAddTasks(t, e, "Работа", "Отчёт", "Молоко для офиса")

	t.Run("GetAllLists is in title order", func(t *testing.T) {
		lists, err := e.GetAllLists(ctx, owner)
		if err != nil {
			t.Fatalf("GetAllLists failed: %v", err)
		}
		if len(lists) != 2 || lists[0].Title != "Покупки" || lists[1].Title != "Работа" {
			t.Errorf("unexpected lists %v", lists)
		}
	})

	t.Run("GetListTasks numbers from one", func(t *testing.T) {
		items, err := e.GetListTasks(ctx, owner, "Покупки")
		if err != nil {
			t.Fatalf("GetListTasks failed: %v", err)
		}
		for i, it := range items {
			if it.Index != i+1 {
				t.Errorf("item %q has index %d, want %d", it.Title, it.Index, i+1)
			}
		}
	})

	t.Run("GetAllTasks groups by list", func(t *testing.T) {
		items, err := e.GetAllTasks(ctx, owner)
		if err != nil {
			t.Fatalf("GetAllTasks failed: %v", err)
		}
		want := []string{"Хлеб", "Молоко", "Отчёт", "Молоко для офиса"}
		if !equal(titles(items), want) {
			t.Errorf("got %v, want %v", titles(items), want)
		}
		if items[2].Index != 1 || items[2].List != "Работа" {
			t.Errorf("numbering should restart per list, got %+v", items[2])
		}
	})

	t.Run("SearchTasks", func(t *testing.T) {
		items, err := e.SearchTasks(ctx, owner, "МОЛОКО!")
		if err != nil {
			t.Fatalf("SearchTasks failed: %v", err)
		}
		want := []string{"Молоко", "Молоко для офиса"}
		if !equal(titles(items), want) {
			t.Errorf("got %v, want %v", titles(items), want)
		}

		if _, err := e.MarkTaskDone(ctx, owner, "Покупки", "Молоко"); err != nil {
			t.Fatalf("MarkTaskDone failed: %v", err)
		}
		items, err = e.SearchTasks(ctx, owner, "молоко")
		if err != nil {
			t.Fatalf("SearchTasks failed: %v", err)
		}
		if !equal(titles(items), []string{"Молоко для офиса"}) {
			t.Errorf("done tasks must be excluded, got %v", titles(items))
		}
	})

	t.Run("history limit and order", func(t *testing.T) {
		if _, err := e.MarkTaskDone(ctx, owner, "Работа", "Отчёт"); err != nil {
			t.Fatalf("MarkTaskDone failed: %v", err)
		}

		items, err := e.GetCompletedTasks(ctx, owner, 1)
		if err != nil {
			t.Fatalf("GetCompletedTasks failed: %v", err)
		}
		if !equal(titles(items), []string{"Отчёт"}) {
			t.Errorf("expected most recent first, got %v", titles(items))
		}

		items, err = e.GetCompletedTasks(ctx, owner, 0)
		if err != nil {
			t.Fatalf("GetCompletedTasks failed: %v", err)
		}
		if !equal(titles(items), []string{"Отчёт", "Молоко"}) {
			t.Errorf("got %v", titles(items))
		}
	})
}

func TestFindSemanticDuplicate(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	listID := mustCreateList(t, e, "Дом")
	mustAddTasks(t, e, "Дом", "Оплатить свет", "Полить цветы")

	match, err := e.FindSemanticDuplicate(ctx, owner, "Заплатить за электричество", models.KindTask, listID)
	if err != nil {
		t.Fatalf("FindSemanticDuplicate failed: %v", err)
	}
	if match == nil || match.Title != "Оплатить свет" || match.Similarity != 1 {
		t.Errorf("unexpected match %+v", match)
	}

	match, err = e.FindSemanticDuplicate(ctx, owner, "Купить билеты", models.KindTask, listID)
	if err != nil {
		t.Fatalf("FindSemanticDuplicate failed: %v", err)
	}
	if match != nil {
		t.Errorf("expected no match, got %+v", match)
	}
}

func TestUserProfile(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	profile, err := e.GetUserProfile(ctx, owner)
	if err != nil {
		t.Fatalf("GetUserProfile failed: %v", err)
	}
	if len(profile.Fields) != 0 {
		t.Errorf("expected empty profile, got %v", profile.Fields)
	}

	if _, err := e.UpdateUserProfile(ctx, owner, map[string]string{"name": "Аня", "city": "Казань"}); err != nil {
		t.Fatalf("UpdateUserProfile failed: %v", err)
	}
	profile, err = e.UpdateUserProfile(ctx, owner, map[string]string{"city": ""})
	if err != nil {
		t.Fatalf("UpdateUserProfile failed: %v", err)
	}
	if profile.Fields["name"] != "Аня" {
		t.Errorf("expected name to be kept, got %v", profile.Fields)
	}
	if _, ok := profile.Fields["city"]; ok {
		t.Errorf("empty value should remove the key, got %v", profile.Fields)
	}

	lists, err := e.GetAllLists(ctx, owner)
	if err != nil {
		t.Fatalf("GetAllLists failed: %v", err)
	}
	if len(lists) != 0 {
		t.Errorf("profiles must not show up as lists, got %v", lists)
	}
}

func TestUpdatedAtFollowsClock(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2031, 3, 4, 5, 6, 7, 0, time.UTC)
	e := NewListEngine(th.NewTestDB(t), WithLogger(shared.NewLogger(io.Discard)), WithClock(func() time.Time { return at }))
	mustCreateList(t, e, "Shopping")
	mustAddTasks(t, e, "Shopping", "Bread")

	t.Run("rename list", func(t *testing.T) {
		if _, err := e.RenameList(ctx, owner, "Shopping", "Groceries"); err != nil {
			t.Fatalf("RenameList failed: %v", err)
		}
		list, err := e.entities.FindList(ctx, owner, "Groceries")
		if err != nil {
			t.Fatalf("FindList failed: %v", err)
		}
		if !list.UpdatedAt.Equal(at) {
			t.Errorf("expected updated_at %v, got %v", at, list.UpdatedAt)
		}
	})

	t.Run("mark done", func(t *testing.T) {
		if _, err := e.MarkTaskDone(ctx, owner, "Groceries", "Bread"); err != nil {
			t.Fatalf("MarkTaskDone failed: %v", err)
		}
		list, err := e.entities.FindList(ctx, owner, "Groceries")
		if err != nil {
			t.Fatalf("FindList failed: %v", err)
		}
		task, err := e.entities.FindChild(ctx, owner, list.ID, "Bread", models.StateDone)
		if err != nil {
			t.Fatalf("FindChild failed: %v", err)
		}
		if !task.UpdatedAt.Equal(at) {
			t.Errorf("expected updated_at %v, got %v", at, task.UpdatedAt)
		}
	})

	t.Run("profile", func(t *testing.T) {
		for _, fields := range []map[string]string{{"name": "Ann"}, {"city": "Oslo"}} {
			profile, err := e.UpdateUserProfile(ctx, owner, fields)
			if err != nil {
				t.Fatalf("UpdateUserProfile failed: %v", err)
			}
			if !profile.UpdatedAt.Equal(at) {
				t.Errorf("expected updated_at %v, got %v", at, profile.UpdatedAt)
			}
		}
	})
}

func TestStorageFailure(t *testing.T) {
	db := th.NewTestDB(t)
	e := NewListEngine(db, WithLogger(shared.NewLogger(io.Discard)))
	db.Close()

	_, err := e.CreateList(context.Background(), owner, "Покупки", false)
	if !errors.Is(err, shared.ErrStorage) {
		t.Errorf("expected ErrStorage, got %v", err)
	}

	var se *shared.StorageError
	if !errors.As(err, &se) || se.Op == "" {
		t.Errorf("expected a StorageError with an op, got %#v", err)
	}
}
