package intents

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/aura/internal/models"
	"github.com/desertthunder/aura/internal/session"
	"github.com/desertthunder/aura/internal/shared"
	"github.com/desertthunder/aura/internal/tasks"
	th "github.com/desertthunder/aura/internal/testing"
)

const owner = "user-1"

func TestDecode(t *testing.T) {
	tc := []struct {
		name    string
		payload string
		want    []Intent
	}{
		{
			name:    "single object",
			payload: `{"action": "add_task", "list": "Покупки", "task": "Хлеб"}`,
			want:    []Intent{{Action: ActionAddTask, List: "Покупки", Title: "Хлеб"}},
		},
		{
			name:    "array",
			payload: `[{"action": "show_lists"}, {"action": "Complete_Task", "title": "Хлеб"}]`,
			want: []Intent{
				{Action: ActionShowLists},
				{Action: ActionMarkDone, EntityType: "task", Title: "Хлеб"},
			},
		},
		{
			name:    "envelope with ui text",
			payload: `{"actions": [{"action": "create", "list": "Дача"}], "ui_text": "Готово"}`,
			want: []Intent{
				{Action: ActionCreate, List: "Дача"},
				{Action: ActionSay, Text: "Готово"},
			},
		},
		{
			name:    "string ordinal",
			payload: `{"action": "mark_done", "list": "Покупки", "meta": {"by_index": "2"}}`,
			want:    []Intent{{Action: ActionMarkDone, List: "Покупки", Meta: Meta{ByIndex: 2}}},
		},
		{
			name:    "yaml",
			payload: "action: add_note\nlist: Работа\ntasks:\n  - Созвон\n  - Отчёт\n",
			want:    []Intent{{Action: ActionAddTask, EntityType: "note", List: "Работа", Tasks: []string{"Созвон", "Отчёт"}}},
		},
		{
			name:    "last list placeholder",
			payload: `{"action": "show_tasks", "list": "<последний список>"}`,
			want:    []Intent{{Action: ActionShowTasks}},
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.payload))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode() =\n%+v\nwant\n%+v", got, tt.want)
			}
		})
	}

	t.Run("errors", func(t *testing.T) {
		if _, err := Decode([]byte("  ")); !errors.Is(err, ErrEmptyPayload) {
			t.Errorf("expected ErrEmptyPayload, got %v", err)
		}
		for _, payload := range []string{`"just text"`, `{"action": "mark_done", "meta": {"by_index": "two"}}`, "key: [unclosed"} {
			if _, err := Decode([]byte(payload)); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("Decode(%q) expected ErrInvalidInput, got %v", payload, err)
			}
		}
	})
}

func TestCanonicalize(t *testing.T) {
	tc := []struct {
		name       string
		in         Intent
		action     string
		entityType string
	}{
		{"canonical action is kept", Intent{Action: "add_task"}, ActionAddTask, ""},
		{"case and whitespace", Intent{Action: "  SHOW_LISTS "}, ActionShowLists, ""},
		{"alias sets entity", Intent{Action: "add_reminder"}, ActionAddTask, "reminder"},
		{"alias keeps explicit entity", Intent{Action: "complete_task", EntityType: "note"}, ActionMarkDone, "note"},
		{"entity plural", Intent{Action: "add_task", EntityType: "Notes"}, ActionAddTask, "note"},
		{"unknown entity becomes task", Intent{Action: "add_task", EntityType: "shopping"}, ActionAddTask, "task"},
		{"russian yes", Intent{Action: "да"}, ActionConfirm, ""},
		{"empty action", Intent{}, ActionUnknown, ""},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := Canonicalize(tt.in)
			if got.Action != tt.action || got.EntityType != tt.entityType {
				t.Errorf("Canonicalize() = (%q, %q), want (%q, %q)", got.Action, got.EntityType, tt.action, tt.entityType)
			}
			if again := Canonicalize(got); !reflect.DeepEqual(again, got) {
				t.Errorf("Canonicalize is not idempotent: %+v != %+v", again, got)
			}
		})
	}
}

func TestCollapseMarkDone(t *testing.T) {
	in := []Intent{
		{Action: ActionMarkDone, List: "Покупки", Title: "Хлеб"},
		{Action: ActionMarkDone, List: "покупки", Tasks: []string{"Молоко", "Сыр"}},
		{Action: ActionMarkDone, List: "Работа", Title: "Отчёт"},
		{Action: ActionMarkDone, List: "Работа", Meta: Meta{ByIndex: 1}},
		{Action: ActionShowLists},
	}

	got := collapseMarkDone(in)
	if len(got) != 4 {
		t.Fatalf("expected 4 intents, got %d: %+v", len(got), got)
	}
	if want := []string{"Хлеб", "Молоко", "Сыр"}; !reflect.DeepEqual(got[0].Titles(), want) {
		t.Errorf("merged titles = %v, want %v", got[0].Titles(), want)
	}
	if got[1].Title != "Отчёт" || got[2].Meta.ByIndex != 1 {
		t.Errorf("intents by index must not be merged: %+v", got[1:3])
	}
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *tasks.ListEngine) {
	t.Helper()
	clock := th.NewClock(time.Date(2025, 10, 12, 9, 0, 0, 0, time.UTC))
	logger := shared.NewLogger(io.Discard)
	engine := tasks.NewListEngine(th.NewTestDB(t), tasks.WithLogger(logger), tasks.WithClock(clock.Now))
	return NewDispatcher(engine, session.NewStore(session.WithClock(clock.Now)), logger), engine
}

func dispatchOne(t *testing.T, d *Dispatcher, in Intent) Reply {
	t.Helper()
	replies, err := d.Dispatch(context.Background(), owner, []Intent{in})
	if err != nil {
		t.Fatalf("Dispatch(%s) failed: %v", in.Action, err)
	}
	if len(replies) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(replies))
	}
	return replies[0]
}

func listTitles(t *testing.T, e tasks.Engine, list string) []string {
	t.Helper()
	items, err := e.GetListTasks(context.Background(), owner, list)
	if err != nil {
		t.Fatalf("GetListTasks(%q) failed: %v", list, err)
	}
	out := []string{}
	for _, it := range items {
		out = append(out, it.Title)
	}
	return out
}

func TestDispatchCreateAndAdd(t *testing.T) {
	d, e := newTestDispatcher(t)

	reply := dispatchOne(t, d, Intent{Action: ActionCreate, List: "Покупки", Tasks: []string{"Хлеб", "Молоко"}})
	if !reply.OK || reply.List != "Покупки" || len(reply.Created) != 3 {
		t.Fatalf("unexpected create reply %+v", reply)
	}
	if !strings.Contains(reply.Message, "Список «Покупки» создан.") {
		t.Errorf("unexpected message %q", reply.Message)
	}

	t.Run("list defaults to the last used one", func(t *testing.T) {
		reply := dispatchOne(t, d, Intent{Action: ActionAddTask, Title: "Сыр"})
		if !reply.OK || reply.List != "Покупки" {
			t.Fatalf("unexpected reply %+v", reply)
		}
		if got, want := listTitles(t, e, "Покупки"), []string{"Хлеб", "Молоко", "Сыр"}; !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("exact duplicate is reported", func(t *testing.T) {
		reply := dispatchOne(t, d, Intent{Action: ActionAddTask, List: "покупки", Title: "хлеб"})
		if !reply.OK || !strings.Contains(reply.Message, "Уже есть: Хлеб.") {
			t.Errorf("unexpected reply %+v", reply)
		}
	})

	t.Run("history", func(t *testing.T) {
		history := d.Sessions().Get(owner).History
		want := []string{"create Покупки Хлеб, Молоко", "add_task Сыр", "add_task покупки хлеб"}
		if !reflect.DeepEqual(history, want) {
			t.Errorf("history = %q, want %q", history, want)
		}
	})

	t.Run("no list to default to", func(t *testing.T) {
		d, _ := newTestDispatcher(t)
		reply := dispatchOne(t, d, Intent{Action: ActionAddTask, Title: "Хлеб"})
		if reply.OK || reply.Question == "" {
			t.Errorf("expected a clarifying question, got %+v", reply)
		}
	})
}

func TestDispatchMissingList(t *testing.T) {
	d, e := newTestDispatcher(t)

	reply := dispatchOne(t, d, Intent{Action: ActionAddTask, List: "Дача", Tasks: []string{"Полить", "Покосить"}})
	if reply.OK || reply.Question != "Списка «Дача» нет. Создать?" {
		t.Fatalf("unexpected reply %+v", reply)
	}
	pending := d.Sessions().Get(owner).Pending
	if pending == nil || pending.Action != ActionCreate || !reflect.DeepEqual(pending.Remaining, []string{"Полить", "Покосить"}) {
		t.Fatalf("unexpected pending %+v", pending)
	}

	reply = dispatchOne(t, d, Intent{Action: "да"})
	if !reply.OK || reply.List != "Дача" {
		t.Fatalf("unexpected confirm reply %+v", reply)
	}
	if got, want := listTitles(t, e, "Дача"), []string{"Полить", "Покосить"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if d.Sessions().Get(owner).Pending != nil {
		t.Error("pending confirmation must be consumed")
	}
}

func TestDispatchNearDuplicate(t *testing.T) {
	const (
		existing = "Молоко хлеб сыр масло"
		similar  = "Молоко хлеб сыр масло кефир"
	)

	setup := func(t *testing.T) (*Dispatcher, tasks.Engine) {
		d, e := newTestDispatcher(t)
		dispatchOne(t, d, Intent{Action: ActionCreate, List: "Покупки", Tasks: []string{existing}})
		reply := dispatchOne(t, d, Intent{Action: ActionAddTask, List: "Покупки", Tasks: []string{similar, "Яйца"}})
		if reply.OK || !strings.Contains(reply.Question, "уже есть «"+existing+"»") {
			t.Fatalf("expected a near duplicate question, got %+v", reply)
		}
		return d, e
	}

	t.Run("declined", func(t *testing.T) {
		d, e := setup(t)
		reply, err := d.Answer(context.Background(), owner, false)
		if err != nil {
			t.Fatalf("Answer failed: %v", err)
		}
		if !reply.OK || reply.Action != ActionDecline {
			t.Errorf("unexpected reply %+v", reply)
		}
		if got, want := listTitles(t, e, "Покупки"), []string{existing, "Яйца"}; !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("confirmed", func(t *testing.T) {
		d, e := setup(t)
		reply, err := d.Answer(context.Background(), owner, true)
		if err != nil {
			t.Fatalf("Answer failed: %v", err)
		}
		if !reply.OK || reply.Action != ActionConfirm {
			t.Errorf("unexpected reply %+v", reply)
		}
		if got, want := listTitles(t, e, "Покупки"), []string{existing, similar, "Яйца"}; !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("force skips the question", func(t *testing.T) {
		d, e := newTestDispatcher(t)
		dispatchOne(t, d, Intent{Action: ActionCreate, List: "Покупки", Tasks: []string{existing}})
		reply := dispatchOne(t, d, Intent{Action: ActionAddTask, List: "Покупки", Title: similar, Meta: Meta{Force: true}})
		if !reply.OK {
			t.Errorf("unexpected reply %+v", reply)
		}
		if got := listTitles(t, e, "Покупки"); len(got) != 2 {
			t.Errorf("expected 2 tasks, got %v", got)
		}
	})
}

func TestDispatchDeleteList(t *testing.T) {
	ctx := context.Background()

	t.Run("asks before deleting", func(t *testing.T) {
		d, e := newTestDispatcher(t)
		dispatchOne(t, d, Intent{Action: ActionCreate, List: "Покупки", Tasks: []string{"Хлеб"}})

		reply := dispatchOne(t, d, Intent{Action: ActionDeleteList, List: "Покупки"})
		if reply.OK || reply.Question == "" {
			t.Fatalf("expected confirmation question, got %+v", reply)
		}
		if lists, _ := e.GetAllLists(ctx, owner); len(lists) != 1 {
			t.Fatal("list must survive until confirmed")
		}

		reply = dispatchOne(t, d, Intent{Action: ActionConfirm})
		if !reply.OK || reply.Message != "Список «Покупки» удалён." {
			t.Fatalf("unexpected reply %+v", reply)
		}
		if lists, _ := e.GetAllLists(ctx, owner); len(lists) != 0 {
			t.Errorf("expected no lists, got %d", len(lists))
		}
		if last := d.Sessions().Get(owner).LastList; last != "" {
			t.Errorf("LastList should be cleared, got %q", last)
		}
	})

	t.Run("force deletes immediately", func(t *testing.T) {
		d, e := newTestDispatcher(t)
		dispatchOne(t, d, Intent{Action: ActionCreate, List: "Покупки"})
		reply := dispatchOne(t, d, Intent{Action: ActionDeleteList, List: "Покупки", Meta: Meta{Force: true}})
		if !reply.OK {
			t.Fatalf("unexpected reply %+v", reply)
		}
		if lists, _ := e.GetAllLists(ctx, owner); len(lists) != 0 {
			t.Errorf("expected no lists, got %d", len(lists))
		}
	})

	t.Run("another action drops the question", func(t *testing.T) {
		d, e := newTestDispatcher(t)
		dispatchOne(t, d, Intent{Action: ActionCreate, List: "Покупки"})
		dispatchOne(t, d, Intent{Action: ActionDeleteList, List: "Покупки"})
		dispatchOne(t, d, Intent{Action: ActionShowLists})

		reply := dispatchOne(t, d, Intent{Action: ActionConfirm})
		if reply.OK || reply.Message != "Нечего подтверждать." {
			t.Errorf("unexpected reply %+v", reply)
		}
		if lists, _ := e.GetAllLists(ctx, owner); len(lists) != 1 {
			t.Error("list must not be deleted")
		}
	})

	t.Run("decline keeps the list", func(t *testing.T) {
		d, e := newTestDispatcher(t)
		dispatchOne(t, d, Intent{Action: ActionCreate, List: "Покупки"})
		dispatchOne(t, d, Intent{Action: ActionDeleteList, List: "Покупки"})
		reply := dispatchOne(t, d, Intent{Action: "нет"})
		if !reply.OK || reply.Action != ActionDecline {
			t.Errorf("unexpected reply %+v", reply)
		}
		if lists, _ := e.GetAllLists(ctx, owner); len(lists) != 1 {
			t.Error("list must not be deleted")
		}
	})
}

func TestDispatchTransitions(t *testing.T) {
	d, e := newTestDispatcher(t)
	dispatchOne(t, d, Intent{Action: ActionCreate, List: "Покупки", Tasks: []string{"Хлеб", "Молоко", "Сыр", "Яйца"}})

	t.Run("mark done runs are merged", func(t *testing.T) {
		replies, err := d.Dispatch(context.Background(), owner, []Intent{
			{Action: ActionMarkDone, List: "Покупки", Title: "хлеб"},
			{Action: "complete_task", List: "Покупки", Task: "молоко"},
		})
		if err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}
		if len(replies) != 1 || len(replies[0].Outcomes) != 2 || !replies[0].OK {
			t.Fatalf("expected one merged reply, got %+v", replies)
		}
		if got, want := listTitles(t, e, "Покупки"), []string{"Сыр", "Яйца"}; !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("last index", func(t *testing.T) {
		reply := dispatchOne(t, d, Intent{Action: ActionDeleteTask, List: "Покупки", Meta: Meta{ByIndex: lastIndex}})
		if !reply.OK || reply.Outcomes[0].Title != "Яйца" {
			t.Fatalf("unexpected reply %+v", reply)
		}
	})

	t.Run("out of range index", func(t *testing.T) {
		reply := dispatchOne(t, d, Intent{Action: ActionMarkDone, List: "Покупки", Meta: Meta{ByIndex: 7}})
		if reply.OK || !reply.Outcomes[0].NotFound {
			t.Errorf("unexpected reply %+v", reply)
		}
	})

	t.Run("restore from history", func(t *testing.T) {
		reply := dispatchOne(t, d, Intent{Action: ActionRestoreTask, List: "Покупки", Title: "Яйца"})
		if !reply.OK || reply.Message != "Восстановлено: Яйца" {
			t.Fatalf("unexpected reply %+v", reply)
		}
		if got, want := listTitles(t, e, "Покупки"), []string{"Сыр", "Яйца"}; !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("views", func(t *testing.T) {
		reply := dispatchOne(t, d, Intent{Action: ActionShowCompleted})
		if !reply.OK || len(reply.Items) != 2 {
			t.Errorf("expected 2 completed items, got %+v", reply)
		}
		reply = dispatchOne(t, d, Intent{Action: ActionShowTasks})
		if reply.List != "Покупки" || len(reply.Items) != 2 {
			t.Errorf("unexpected show_tasks reply %+v", reply)
		}
		reply = dispatchOne(t, d, Intent{Action: ActionSearch, Meta: Meta{Pattern: "сыр"}})
		if len(reply.Items) != 1 || reply.Items[0].Title != "Сыр" {
			t.Errorf("unexpected search reply %+v", reply)
		}
	})
}

func TestDispatchEditing(t *testing.T) {
	d, e := newTestDispatcher(t)
	dispatchOne(t, d, Intent{Action: ActionCreate, Lists: []string{"Покупки", "Работа"}})
	dispatchOne(t, d, Intent{Action: ActionAddTask, List: "Покупки", Tasks: []string{"Хлеб", "Отчёт"}})

	t.Run("rename list", func(t *testing.T) {
		reply := dispatchOne(t, d, Intent{Action: ActionRenameList, List: "Покупки", Meta: Meta{NewTitle: "Продукты"}})
		if !reply.OK || reply.List != "Продукты" {
			t.Fatalf("unexpected reply %+v", reply)
		}
		if got := d.Sessions().Get(owner).LastList; got != "Продукты" {
			t.Errorf("LastList = %q", got)
		}
	})

	t.Run("update task", func(t *testing.T) {
		reply := dispatchOne(t, d, Intent{Action: ActionUpdateTask, Meta: Meta{ByIndex: 1, NewTitle: "Хлеб бородинский"}})
		if !reply.OK {
			t.Fatalf("unexpected reply %+v", reply)
		}
	})

	t.Run("move task", func(t *testing.T) {
		reply := dispatchOne(t, d, Intent{Action: ActionMoveEntity, List: "Продукты", Title: "Отчёт", ToList: "Работа"})
		if !reply.OK || reply.List != "Работа" {
			t.Fatalf("unexpected reply %+v", reply)
		}
		if got, want := listTitles(t, e, "Продукты"), []string{"Хлеб бородинский"}; !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("convert task", func(t *testing.T) {
		reply := dispatchOne(t, d, Intent{Action: ActionConvertEntity, List: "Работа", Title: "Отчёт", Meta: Meta{NewKind: "note"}})
		if !reply.OK {
			t.Fatalf("unexpected reply %+v", reply)
		}
		reply = dispatchOne(t, d, Intent{Action: "show_notes", List: "Работа"})
		if len(reply.Items) != 1 || reply.Items[0].Kind != models.KindNote {
			t.Errorf("unexpected notes %+v", reply.Items)
		}
	})

	t.Run("convert to unknown kind", func(t *testing.T) {
		reply := dispatchOne(t, d, Intent{Action: ActionConvertEntity, List: "Работа", Title: "Отчёт", Meta: Meta{NewKind: "poem"}})
		if reply.OK {
			t.Errorf("unexpected reply %+v", reply)
		}
	})
}

func TestDispatchProfile(t *testing.T) {
	d, _ := newTestDispatcher(t)

	reply := dispatchOne(t, d, Intent{Action: ActionUpdateProfile, Meta: Meta{City: "Казань"}})
	if !reply.OK || reply.Profile == nil || reply.Profile.Fields["city"] != "Казань" {
		t.Fatalf("unexpected reply %+v", reply)
	}

	reply = dispatchOne(t, d, Intent{Action: "get_profile"})
	if !reply.OK || reply.Profile.Fields["city"] != "Казань" {
		t.Errorf("unexpected reply %+v", reply)
	}
}

func TestDispatchPayload(t *testing.T) {
	d, _ := newTestDispatcher(t)
	payload := `{"actions": [{"action": "create_list", "list": "Покупки"}, {"action": "clarify", "meta": {"question": "Что добавить?"}}], "ui_text": "Создала список"}`

	replies, err := d.DispatchPayload(context.Background(), owner, []byte(payload))
	if err != nil {
		t.Fatalf("DispatchPayload failed: %v", err)
	}
	if len(replies) != 3 {
		t.Fatalf("expected 3 replies, got %+v", replies)
	}
	if replies[1].Question != "Что добавить?" || replies[2].Message != "Создала список" {
		t.Errorf("unexpected replies %+v", replies)
	}

	if _, err := d.DispatchPayload(context.Background(), owner, []byte("")); !errors.Is(err, ErrEmptyPayload) {
		t.Errorf("expected ErrEmptyPayload, got %v", err)
	}
}

func TestDispatchErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing owner", func(t *testing.T) {
		d, _ := newTestDispatcher(t)
		if _, err := d.Dispatch(ctx, " ", []Intent{{Action: ActionShowLists}}); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		d, _ := newTestDispatcher(t)
		reply := dispatchOne(t, d, Intent{Action: "dance"})
		if reply.OK || reply.Action != "dance" {
			t.Errorf("unexpected reply %+v", reply)
		}
	})

	t.Run("storage failure stops the batch", func(t *testing.T) {
		db := th.NewTestDB(t)
		engine := tasks.NewListEngine(db, tasks.WithLogger(shared.NewLogger(io.Discard)))
		d := NewDispatcher(engine, nil, shared.NewLogger(io.Discard))
		db.Close()

		replies, err := d.Dispatch(ctx, owner, []Intent{{Action: ActionShowLists}, {Action: ActionSay, Text: "ok"}})
		if !errors.Is(err, shared.ErrStorage) {
			t.Fatalf("expected ErrStorage, got %v", err)
		}
		if len(replies) != 0 {
			t.Errorf("expected no replies, got %+v", replies)
		}
	})
}
