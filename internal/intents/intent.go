package intents

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/aura/internal/models"
	"github.com/desertthunder/aura/internal/shared"
	"gopkg.in/yaml.v3"
)

// Canonical actions.
const (
	ActionCreate         = "create"
	ActionAddTask        = "add_task"
	ActionShowLists      = "show_lists"
	ActionShowTasks      = "show_tasks"
	ActionShowAllTasks   = "show_all_tasks"
	ActionShowCompleted  = "show_completed_tasks"
	ActionShowDeleted    = "show_deleted_tasks"
	ActionSearch         = "search_entity"
	ActionMarkDone       = "mark_done"
	ActionDeleteTask     = "delete_task"
	ActionDeleteList     = "delete_list"
	ActionRestoreTask    = "restore_task"
	ActionRenameList     = "rename_list"
	ActionUpdateTask     = "update_task"
	ActionMoveEntity     = "move_entity"
	ActionConvertEntity  = "convert_entity"
	ActionUpdateProfile  = "update_profile"
	ActionShowProfile    = "show_profile"
	ActionConfirm        = "confirm"
	ActionDecline        = "decline"
	ActionSay            = "say"
	ActionClarify        = "clarify"
	ActionUnknown        = "unknown"
)

const (
	lastListPlaceholder = "<последний список>"
	lastIndex           = -1
)

// ErrEmptyPayload is returned by [Decode] for blank input.
var ErrEmptyPayload = errors.New("empty intent payload")

// Index is a 1-based ordinal that also accepts numeric strings. -1 addresses the last item.
type Index int

func (i *Index) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*i = 0
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("%w: by_index %s", shared.ErrInvalidInput, b)
	}
	*i = Index(n)
	return nil
}

// Meta carries the optional modifiers of an [Intent].
type Meta struct {
	Fuzzy      bool              `json:"fuzzy,omitempty"`
	ByIndex    Index             `json:"by_index,omitempty"`
	NewTitle   string            `json:"new_title,omitempty"`
	Pattern    string            `json:"pattern,omitempty"`
	NewKind    string            `json:"new_kind,omitempty"`
	Force      bool              `json:"force,omitempty"`
	Limit      int               `json:"limit,omitempty"`
	Question   string            `json:"question,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	City       string            `json:"city,omitempty"`
	Profession string            `json:"profession,omitempty"`
}

// Intent is one structured command.
type Intent struct {
	Action     string   `json:"action"`
	EntityType string   `json:"entity_type,omitempty"`
	List       string   `json:"list,omitempty"`
	Title      string   `json:"title,omitempty"`
	Task       string   `json:"task,omitempty"`
	Tasks      []string `json:"tasks,omitempty"`
	Lists      []string `json:"lists,omitempty"`
	ToList     string   `json:"to_list,omitempty"`
	Text       string   `json:"text,omitempty"`
	Meta       Meta     `json:"meta"`
}

// Kind returns the entity kind named by EntityType, defaulting to task.
func (in Intent) Kind() models.Kind {
	kind, err := models.ParseKind(in.EntityType)
	if err != nil {
		return models.KindTask
	}
	return kind
}

// Titles returns Tasks when set, otherwise the single Title.
func (in Intent) Titles() []string {
	var out []string
	for _, t := range in.Tasks {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 && strings.TrimSpace(in.Title) != "" {
		out = []string{strings.TrimSpace(in.Title)}
	}
	return out
}

// ProfileFields merges Meta.Fields with the dedicated profile keys.
func (in Intent) ProfileFields() map[string]string {
	fields := make(map[string]string, len(in.Meta.Fields)+2)
	for k, v := range in.Meta.Fields {
		fields[k] = v
	}
	if in.Meta.City != "" {
		fields["city"] = in.Meta.City
	}
	if in.Meta.Profession != "" {
		fields["profession"] = in.Meta.Profession
	}
	return fields
}

type envelope struct {
	Actions []Intent `json:"actions"`
	UIText  string   `json:"ui_text"`
}

// Decode parses a JSON or YAML payload holding one intent, an array of intents or an
// {"actions": [...], "ui_text": "..."} envelope. The envelope's ui_text becomes a trailing
// "say" intent. Intents are returned canonicalized.
func Decode(data []byte) ([]Intent, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}

	if !json.Valid(data) {
		var generic any
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}
		converted, err := json.Marshal(generic)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}
		data = converted
	}

	var intents []Intent
	switch data[0] {
	case '[':
		var batch []json.RawMessage
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}
		for _, raw := range batch {
			decoded, err := Decode(raw)
			if err != nil {
				return nil, err
			}
			intents = append(intents, decoded...)
		}
		return intents, nil
	case '{':
	default:
		return nil, fmt.Errorf("%w: payload must be an object or an array", shared.ErrInvalidInput)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if env.Actions != nil || env.UIText != "" {
		for _, in := range env.Actions {
			intents = append(intents, Canonicalize(in))
		}
		if text := strings.TrimSpace(env.UIText); text != "" {
			intents = append(intents, Intent{Action: ActionSay, Text: text})
		}
		return intents, nil
	}

	var in Intent
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return []Intent{Canonicalize(in)}, nil
}

type alias struct {
	action string
	entity string
}

var actionAliases = map[string]alias{
	"create_list":        {ActionCreate, "list"},
	"add_list":           {ActionCreate, "list"},
	"create_multiple":    {ActionCreate, "list"},
	"add_note":           {ActionAddTask, "note"},
	"add_notes":          {ActionAddTask, "note"},
	"create_note":        {ActionAddTask, "note"},
	"create_notes":       {ActionAddTask, "note"},
	"add_reminder":       {ActionAddTask, "reminder"},
	"add_reminders":      {ActionAddTask, "reminder"},
	"create_reminder":    {ActionAddTask, "reminder"},
	"create_reminders":   {ActionAddTask, "reminder"},
	"create_task":        {ActionAddTask, "task"},
	"add_tasks":          {ActionAddTask, "task"},
	"complete_task":      {ActionMarkDone, "task"},
	"complete_tasks":     {ActionMarkDone, "task"},
	"complete_note":      {ActionMarkDone, "note"},
	"complete_notes":     {ActionMarkDone, "note"},
	"complete_reminder":  {ActionMarkDone, "reminder"},
	"complete_reminders": {ActionMarkDone, "reminder"},
	"finish_task":        {ActionMarkDone, "task"},
	"finish_note":        {ActionMarkDone, "note"},
	"finish_reminder":    {ActionMarkDone, "reminder"},
	"done":               {ActionMarkDone, "task"},
	"remove_task":        {ActionDeleteTask, "task"},
	"delete_note":        {ActionDeleteTask, "note"},
	"delete_notes":       {ActionDeleteTask, "note"},
	"remove_note":        {ActionDeleteTask, "note"},
	"delete_reminder":    {ActionDeleteTask, "reminder"},
	"delete_reminders":   {ActionDeleteTask, "reminder"},
	"remove_reminder":    {ActionDeleteTask, "reminder"},
	"remove_list":        {ActionDeleteList, "list"},
	"restore_note":       {ActionRestoreTask, "note"},
	"restore_notes":      {ActionRestoreTask, "note"},
	"restore_reminder":   {ActionRestoreTask, "reminder"},
	"restore_reminders":  {ActionRestoreTask, "reminder"},
	"update_note":        {ActionUpdateTask, "note"},
	"update_reminder":    {ActionUpdateTask, "reminder"},
	"rename_task":        {ActionUpdateTask, "task"},
	"move_task":          {ActionMoveEntity, "task"},
	"move_note":          {ActionMoveEntity, "note"},
	"move_reminder":      {ActionMoveEntity, "reminder"},
	"convert":            {ActionConvertEntity, ""},
	"show_notes":         {ActionShowTasks, "note"},
	"show_reminders":     {ActionShowTasks, "reminder"},
	"list_notes":         {ActionShowTasks, "note"},
	"list_reminders":     {ActionShowTasks, "reminder"},
	"list_tasks":         {ActionShowTasks, "task"},
	"search":             {ActionSearch, ""},
	"search_tasks":       {ActionSearch, ""},
	"get_profile":        {ActionShowProfile, "user_profile"},
	"yes":                {ActionConfirm, ""},
	"да":                 {ActionConfirm, ""},
	"no":                 {ActionDecline, ""},
	"нет":                {ActionDecline, ""},
}

var entityAliases = map[string]string{
	"task": "task", "tasks": "task", "todo": "task", "todos": "task", "entry": "task", "item": "task",
	"note": "note", "notes": "note",
	"reminder": "reminder", "reminders": "reminder",
	"list": "list", "lists": "list",
	"user_profile": "user_profile", "profile": "user_profile",
}

// Canonicalize lowercases the action and entity type and folds their aliases. An
// unknown entity type becomes task; the last-list placeholder becomes an empty list.
func Canonicalize(in Intent) Intent {
	out := in
	action := strings.ToLower(strings.TrimSpace(in.Action))
	if a, ok := actionAliases[action]; ok {
		action = a.action
		if strings.TrimSpace(out.EntityType) == "" {
			out.EntityType = a.entity
		}
	}
	if action == "" {
		action = ActionUnknown
	}
	out.Action = action

	entity := strings.ToLower(strings.TrimSpace(out.EntityType))
	if mapped, ok := entityAliases[entity]; ok {
		entity = mapped
	} else if entity != "" {
		entity = string(models.KindTask)
	}
	out.EntityType = entity

	if strings.TrimSpace(out.List) == lastListPlaceholder {
		out.List = ""
	}
	if out.Title == "" {
		out.Title = out.Task
	}
	out.Task = ""
	return out
}

// collapseMarkDone merges runs of title-addressed mark_done intents on the same list
// into one intent with several titles.
func collapseMarkDone(intents []Intent) []Intent {
	var out []Intent
	for _, in := range intents {
		if n := len(out); n > 0 && mergeable(out[n-1], in) {
			prev := &out[n-1]
			prev.Tasks = append(prev.Titles(), in.Titles()...)
			prev.Title = ""
			prev.Meta.Fuzzy = prev.Meta.Fuzzy || in.Meta.Fuzzy
			continue
		}
		out = append(out, in)
	}
	return out
}

func mergeable(a, b Intent) bool {
	return a.Action == ActionMarkDone && b.Action == ActionMarkDone &&
		a.Meta.ByIndex == 0 && b.Meta.ByIndex == 0 &&
		a.Kind() == b.Kind() &&
		strings.EqualFold(strings.TrimSpace(a.List), strings.TrimSpace(b.List))
}
