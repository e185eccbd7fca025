package intents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/aura/internal/matching"
	"github.com/desertthunder/aura/internal/models"
	"github.com/desertthunder/aura/internal/session"
	"github.com/desertthunder/aura/internal/shared"
	"github.com/desertthunder/aura/internal/tasks"
)

// Reply is the result of one dispatched intent.
//
// OK is false when the intent did nothing or needs an answer; Question is then set when
// the owner is expected to reply.
type Reply struct {
	Action   string                  `json:"action"`
	OK       bool                    `json:"ok"`
	Message  string                  `json:"message,omitempty"`
	Question string                  `json:"question,omitempty"`
	List     string                  `json:"list,omitempty"`
	Created  []models.CreationResult `json:"created,omitempty"`
	Outcomes []models.Outcome        `json:"outcomes,omitempty"`
	Items    []models.TaskItem       `json:"items,omitempty"`
	Lists    []string                `json:"lists,omitempty"`
	Profile  *models.Profile         `json:"profile,omitempty"`
}

func (r *Reply) say(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if r.Message == "" {
		r.Message = line
		return
	}
	r.Message += "\n" + line
}

func (r *Reply) merge(o Reply) {
	r.Created = append(r.Created, o.Created...)
	r.Outcomes = append(r.Outcomes, o.Outcomes...)
	if o.Message != "" {
		r.say("%s", o.Message)
	}
	r.Question = o.Question
	if o.List != "" {
		r.List = o.List
	}
	r.OK = r.Question == ""
}

// Actions that do not enter the owner's history.
var skipHistory = map[string]bool{
	ActionShowLists:     true,
	ActionShowCompleted: true,
	ActionClarify:       true,
	ActionConfirm:       true,
	ActionDecline:       true,
	ActionSay:           true,
	ActionUnknown:       true,
}

// Actions that leave a pending question in place.
var keepPending = map[string]bool{
	ActionConfirm: true,
	ActionDecline: true,
	ActionSay:     true,
	ActionClarify: true,
}

// Dispatcher executes intents against an engine on behalf of one owner at a time.
type Dispatcher struct {
	engine   tasks.Engine
	sessions *session.Store
	logger   *log.Logger
}

// NewDispatcher creates a Dispatcher. A nil sessions store or logger gets a default.
func NewDispatcher(engine tasks.Engine, sessions *session.Store, logger *log.Logger) *Dispatcher {
	if sessions == nil {
		sessions = session.NewStore()
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Dispatcher{engine: engine, sessions: sessions, logger: logger}
}

// Sessions returns the session store the dispatcher reads and updates.
func (d *Dispatcher) Sessions() *session.Store {
	return d.sessions
}

// DispatchPayload decodes a JSON or YAML payload and dispatches its intents.
func (d *Dispatcher) DispatchPayload(ctx context.Context, owner string, data []byte) ([]Reply, error) {
	intents, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return d.Dispatch(ctx, owner, intents)
}

// Dispatch executes intents in order and returns one reply per executed intent.
//
// Consecutive mark_done intents on the same list are merged first. Invalid intents yield
// a reply with OK unset; a storage failure stops the batch and is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, owner string, intents []Intent) ([]Reply, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, fmt.Errorf("%w: owner", shared.ErrMissingArgument)
	}

	canonical := make([]Intent, len(intents))
	for i, in := range intents {
		canonical[i] = Canonicalize(in)
	}

	logger := shared.WithLogger(d.logger, "owner", owner)
	var replies []Reply
	for _, in := range collapseMarkDone(canonical) {
		if !keepPending[in.Action] {
			if dropped := d.sessions.TakePending(owner); dropped != nil {
				logger.Debug("dropped pending confirmation", "action", dropped.Action, "list", dropped.List)
			}
		}

		reply, err := d.dispatch(ctx, owner, in)
		if err != nil {
			if errors.Is(err, shared.ErrStorage) {
				return replies, err
			}
			logger.Warn("intent rejected", "action", in.Action, "err", err)
			reply = Reply{Action: in.Action, Message: "Не получилось выполнить команду."}
		}

		logger.Info("dispatched", "action", in.Action, "list", reply.List, "ok", reply.OK)
		if reply.OK && !skipHistory[in.Action] {
			d.sessions.Remember(owner, summary(in))
		}
		replies = append(replies, reply)
	}
	return replies, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, owner string, in Intent) (Reply, error) {
	switch in.Action {
	case ActionCreate:
		return d.create(ctx, owner, in)
	case ActionAddTask:
		return d.addTask(ctx, owner, in)
	case ActionShowLists:
		return d.showLists(ctx, owner)
	case ActionShowTasks:
		return d.showTasks(ctx, owner, in)
	case ActionShowAllTasks:
		items, err := d.engine.GetAllTasks(ctx, owner)
		d.sessions.Touch(owner, in.Action, "")
		return itemsReply(in.Action, items, "Задач пока нет."), err
	case ActionShowCompleted:
		items, err := d.engine.GetCompletedTasks(ctx, owner, in.Meta.Limit)
		d.sessions.Touch(owner, in.Action, "")
		return itemsReply(in.Action, items, "Выполненных задач нет."), err
	case ActionShowDeleted:
		items, err := d.engine.GetDeletedTasks(ctx, owner, in.Meta.Limit)
		d.sessions.Touch(owner, in.Action, "")
		return itemsReply(in.Action, items, "Удалённых задач нет."), err
	case ActionSearch:
		return d.search(ctx, owner, in)
	case ActionMarkDone:
		return d.mutate(ctx, owner, in, mutation{
			fuzzy:    d.engine.MarkTaskDoneFuzzy,
			byIndex:  d.engine.MarkTaskDoneByIndex,
			applied:  "Выполнено",
			notFound: "Задача «%s» не найдена.",
		})
	case ActionDeleteTask:
		return d.mutate(ctx, owner, in, mutation{
			fuzzy:    d.engine.DeleteTaskFuzzy,
			byIndex:  d.engine.DeleteTaskByIndex,
			applied:  "Удалено",
			notFound: "Задача «%s» не найдена или уже выполнена.",
		})
	case ActionRestoreTask:
		m := mutation{
			exact:      d.engine.RestoreTask,
			fuzzy:      d.engine.RestoreTaskFuzzy,
			byIndex:    d.engine.RestoreTaskByIndex,
			applied:    "Восстановлено",
			notFound:   "Задача «%s» не найдена в истории.",
			restorable: true,
		}
		return d.mutate(ctx, owner, in, m)
	case ActionDeleteList:
		return d.deleteList(ctx, owner, in)
	case ActionRenameList:
		return d.renameList(ctx, owner, in)
	case ActionUpdateTask:
		return d.updateTask(ctx, owner, in)
	case ActionMoveEntity:
		return d.move(ctx, owner, in)
	case ActionConvertEntity:
		return d.convert(ctx, owner, in)
	case ActionUpdateProfile:
		return d.updateProfile(ctx, owner, in)
	case ActionShowProfile:
		profile, err := d.engine.GetUserProfile(ctx, owner)
		return Reply{Action: in.Action, OK: err == nil, Profile: profile}, err
	case ActionConfirm:
		return d.Answer(ctx, owner, true)
	case ActionDecline:
		return d.Answer(ctx, owner, false)
	case ActionSay:
		return Reply{Action: in.Action, OK: true, Message: in.Text}, nil
	case ActionClarify:
		return Reply{Action: in.Action, Question: in.Meta.Question}, nil
	default:
		return Reply{Action: in.Action, Message: "Не поняла команду."}, nil
	}
}

// listFor returns the intent's list or, when it names none, the owner's last used list.
func (d *Dispatcher) listFor(owner string, in Intent) string {
	if list := strings.TrimSpace(in.List); list != "" {
		return list
	}
	return d.sessions.Get(owner).LastList
}

func (d *Dispatcher) create(ctx context.Context, owner string, in Intent) (Reply, error) {
	names := cleaned(in.Lists)
	if len(names) == 0 && strings.TrimSpace(in.List) != "" {
		names = []string{strings.TrimSpace(in.List)}
	}
	reply := Reply{Action: ActionCreate}
	if len(names) == 0 {
		reply.Question = "Как назвать список?"
		return reply, nil
	}

	for _, name := range names {
		res, err := d.engine.CreateList(ctx, owner, name, in.Meta.Force)
		if err != nil {
			return reply, err
		}
		reply.Created = append(reply.Created, res)

		switch {
		case res.Created:
			reply.say("Список «%s» создан.", res.Title)
		case res.DuplicateDetected && (res.Similarity >= 1 || res.AutoUse):
			reply.say("Список «%s» уже есть.", res.Title)
		case res.DuplicateDetected:
			d.sessions.Park(owner, session.Pending{
				Action:     ActionCreate,
				Kind:       models.KindTask,
				List:       name,
				SimilarTo:  res.DuplicateTitle,
				Similarity: res.Similarity,
				Remaining:  cleaned(in.Tasks),
			})
			reply.Question = fmt.Sprintf("Есть похожий список «%s». Всё равно создать «%s»?", res.DuplicateTitle, name)
			return reply, nil
		default:
			continue
		}
		reply.List = res.Title
		d.sessions.Touch(owner, ActionCreate, res.Title)
	}

	if titles := cleaned(in.Tasks); len(titles) > 0 && len(names) == 1 && reply.List != "" {
		added, err := d.addTitles(ctx, owner, models.KindTask, reply.List, titles, false)
		if err != nil {
			return reply, err
		}
		reply.merge(added)
	}
	reply.OK = reply.Question == "" && len(reply.Created) > 0
	return reply, nil
}

func (d *Dispatcher) addTask(ctx context.Context, owner string, in Intent) (Reply, error) {
	list := d.listFor(owner, in)
	if list == "" {
		return Reply{Action: ActionAddTask, Question: "Уточни, в какой список добавить задачу."}, nil
	}
	titles := in.Titles()
	if len(titles) == 0 {
		return Reply{Action: ActionAddTask, List: list, Question: fmt.Sprintf("Что добавить в «%s»?", list)}, nil
	}
	return d.addTitles(ctx, owner, childKind(in), list, titles, in.Meta.Force)
}

// addTitles adds titles to list in order. It stops at the first answer it needs from the
// owner and parks the titles it has not processed yet with the question.
func (d *Dispatcher) addTitles(ctx context.Context, owner string, kind models.Kind, list string, titles []string, force bool) (Reply, error) {
	reply := Reply{Action: ActionAddTask, List: list}
	var added, restored, existing []string

	flush := func() {
		if len(added) > 0 {
			reply.say("Добавлено в «%s»: %s.", list, strings.Join(added, ", "))
		}
		if len(restored) > 0 {
			reply.say("Вернула из истории: %s.", strings.Join(restored, ", "))
		}
		if len(existing) > 0 {
			reply.say("Уже есть: %s.", strings.Join(existing, ", "))
		}
	}

	for i, title := range titles {
		res, err := d.engine.AddEntity(ctx, owner, kind, list, title, force)
		if err != nil {
			flush()
			return reply, err
		}
		reply.Created = append(reply.Created, res)

		switch {
		case res.MissingParent:
			flush()
			d.sessions.Park(owner, session.Pending{Action: ActionCreate, Kind: kind, List: list, Remaining: titles[i:]})
			reply.Question = fmt.Sprintf("Списка «%s» нет. Создать?", list)
			return reply, nil
		case res.Created:
			added = append(added, res.Title)
		case res.Restored:
			restored = append(restored, res.Title)
		case res.DuplicateDetected && (res.Similarity >= 1 || res.AutoUse):
			existing = append(existing, res.DuplicateTitle)
		case res.DuplicateDetected:
			flush()
			d.sessions.Park(owner, session.Pending{
				Action:     ActionAddTask,
				Kind:       kind,
				List:       list,
				Title:      title,
				SimilarTo:  res.DuplicateTitle,
				Similarity: res.Similarity,
				Remaining:  titles[i+1:],
			})
			d.sessions.Touch(owner, ActionAddTask, list)
			reply.Question = fmt.Sprintf("В списке «%s» уже есть «%s». Добавить «%s» отдельно?", list, res.DuplicateTitle, title)
			return reply, nil
		}
	}

	flush()
	d.sessions.Touch(owner, ActionAddTask, list)
	reply.OK = true
	return reply, nil
}

func (d *Dispatcher) showLists(ctx context.Context, owner string) (Reply, error) {
	lists, err := d.engine.GetAllLists(ctx, owner)
	if err != nil {
		return Reply{}, err
	}

	reply := Reply{Action: ActionShowLists, OK: true, Lists: []string{}}
	for _, l := range lists {
		reply.Lists = append(reply.Lists, l.Title)
	}
	if len(lists) == 0 {
		reply.Message = "Списков пока нет."
	} else {
		reply.Message = "Списки: " + strings.Join(reply.Lists, ", ")
	}
	d.sessions.Touch(owner, ActionShowLists, "")
	return reply, nil
}

func (d *Dispatcher) showTasks(ctx context.Context, owner string, in Intent) (Reply, error) {
	list := d.listFor(owner, in)
	if list == "" {
		return Reply{Action: ActionShowTasks, Question: "Какой список показать?"}, nil
	}

	items, err := d.engine.GetListTasks(ctx, owner, list)
	if err != nil {
		return Reply{}, err
	}
	if len(items) == 0 {
		exists, err := d.listExists(ctx, owner, list)
		if err != nil {
			return Reply{}, err
		}
		if !exists {
			d.sessions.Park(owner, session.Pending{Action: ActionCreate, Kind: models.KindTask, List: list})
			return Reply{Action: ActionShowTasks, List: list, Question: fmt.Sprintf("Списка «%s» нет. Создать?", list)}, nil
		}
	}

	if kind := childKind(in); in.EntityType != "" && kind != models.KindTask {
		var filtered []models.TaskItem
		for _, it := range items {
			if it.Kind == kind {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}

	d.sessions.Touch(owner, ActionShowTasks, list)
	reply := itemsReply(ActionShowTasks, items, fmt.Sprintf("Список «%s» пуст.", list))
	reply.List = list
	return reply, nil
}

func (d *Dispatcher) listExists(ctx context.Context, owner, name string) (bool, error) {
	lists, err := d.engine.GetAllLists(ctx, owner)
	if err != nil {
		return false, err
	}
	key := matching.TitleKey(name)
	for _, l := range lists {
		if matching.TitleKey(l.Title) == key {
			return true, nil
		}
	}
	return false, nil
}

func (d *Dispatcher) search(ctx context.Context, owner string, in Intent) (Reply, error) {
	pattern := strings.TrimSpace(in.Meta.Pattern)
	if pattern == "" {
		pattern = strings.TrimSpace(in.Title)
	}
	if pattern == "" {
		return Reply{Action: ActionSearch, Question: "Что искать?"}, nil
	}

	items, err := d.engine.SearchTasks(ctx, owner, pattern)
	if err != nil {
		return Reply{}, err
	}
	d.sessions.Touch(owner, ActionSearch, "")
	return itemsReply(ActionSearch, items, fmt.Sprintf("Задачи с «%s» не найдены.", pattern)), nil
}

type (
	titleFunc func(ctx context.Context, owner, list, title string) (models.Outcome, error)
	indexFunc func(ctx context.Context, owner, list string, index int) (models.Outcome, error)
)

// mutation describes a lifecycle operation addressed by title, pattern or ordinal.
type mutation struct {
	exact      titleFunc // nil means titles always go through fuzzy
	fuzzy      titleFunc
	byIndex    indexFunc
	applied    string
	notFound   string
	restorable bool // candidates are history rows, so -1 cannot be resolved from the active list
}

func (d *Dispatcher) mutate(ctx context.Context, owner string, in Intent, m mutation) (Reply, error) {
	list := d.listFor(owner, in)
	if list == "" {
		return Reply{Action: in.Action, Question: "Уточни, в каком списке."}, nil
	}
	reply := Reply{Action: in.Action, List: list}

	if in.Meta.ByIndex != 0 {
		index := int(in.Meta.ByIndex)
		if index == lastIndex && !m.restorable {
			items, err := d.engine.GetListTasks(ctx, owner, list)
			if err != nil {
				return reply, err
			}
			index = len(items)
		}
		out, err := m.byIndex(ctx, owner, list, index)
		if err != nil {
			return reply, err
		}
		reply.Outcomes = append(reply.Outcomes, out)
		describe(&reply, out, m, fmt.Sprintf("№%d", in.Meta.ByIndex))
	} else {
		titles := in.Titles()
		if len(titles) == 0 {
			reply.Question = "Какую задачу?"
			return reply, nil
		}
		fn := m.fuzzy
		if m.exact != nil && !in.Meta.Fuzzy {
			fn = m.exact
		}
		for _, title := range titles {
			out, err := fn(ctx, owner, list, title)
			if err != nil {
				return reply, err
			}
			reply.Outcomes = append(reply.Outcomes, out)
			describe(&reply, out, m, title)
		}
	}

	d.sessions.Touch(owner, in.Action, list)
	return reply, nil
}

func describe(r *Reply, out models.Outcome, m mutation, ref string) {
	switch {
	case out.Applied:
		r.OK = true
		r.say("%s: %s", m.applied, out.Title)
	case out.Conflict:
		r.say("«%s» уже есть в списке.", out.Title)
	case out.Suggestion != "":
		r.say("%s", out.Suggestion)
	default:
		r.say(m.notFound, ref)
	}
}

func (d *Dispatcher) deleteList(ctx context.Context, owner string, in Intent) (Reply, error) {
	list := d.listFor(owner, in)
	if list == "" {
		return Reply{Action: ActionDeleteList, Question: "Какой список удалить?"}, nil
	}
	if !in.Meta.Force {
		d.sessions.Park(owner, session.Pending{Action: ActionDeleteList, Kind: models.KindList, List: list})
		return Reply{Action: ActionDeleteList, List: list, Question: fmt.Sprintf("Точно удалить список «%s»?", list)}, nil
	}
	return d.removeList(ctx, owner, list)
}

func (d *Dispatcher) removeList(ctx context.Context, owner, list string) (Reply, error) {
	reply := Reply{Action: ActionDeleteList, List: list}
	out, err := d.engine.DeleteList(ctx, owner, list)
	if err != nil {
		return reply, err
	}
	reply.Outcomes = []models.Outcome{out}
	if !out.Applied {
		reply.say("Список «%s» не найден.", list)
		return reply, nil
	}

	d.sessions.ForgetList(owner, out.Title)
	d.sessions.ForgetList(owner, list)
	d.sessions.Touch(owner, ActionDeleteList, "")
	reply.OK = true
	reply.say("Список «%s» удалён.", out.Title)
	return reply, nil
}

func (d *Dispatcher) renameList(ctx context.Context, owner string, in Intent) (Reply, error) {
	list := d.listFor(owner, in)
	name := strings.TrimSpace(in.Meta.NewTitle)
	if name == "" {
		name = strings.TrimSpace(in.Title)
	}
	if list == "" || name == "" {
		return Reply{Action: ActionRenameList, List: list, Question: "Какой список и как переименовать?"}, nil
	}

	out, err := d.engine.RenameList(ctx, owner, list, name)
	if err != nil {
		return Reply{}, err
	}
	reply := Reply{Action: ActionRenameList, List: list, Outcomes: []models.Outcome{out}}
	switch {
	case out.Applied:
		reply.OK = true
		reply.List = out.Title
		reply.say("Список «%s» теперь называется «%s».", out.PreviousTitle, out.Title)
		d.sessions.Touch(owner, ActionRenameList, out.Title)
	case out.Conflict:
		reply.say("Список «%s» уже есть.", out.Title)
	default:
		reply.say("Список «%s» не найден.", list)
	}
	return reply, nil
}

func (d *Dispatcher) updateTask(ctx context.Context, owner string, in Intent) (Reply, error) {
	list := d.listFor(owner, in)
	newTitle := strings.TrimSpace(in.Meta.NewTitle)
	if list == "" || newTitle == "" {
		return Reply{Action: ActionUpdateTask, List: list, Question: "Что и на что изменить?"}, nil
	}

	var out models.Outcome
	var err error
	ref := strings.TrimSpace(in.Title)
	switch {
	case in.Meta.ByIndex != 0:
		index := int(in.Meta.ByIndex)
		if index == lastIndex {
			items, err := d.engine.GetListTasks(ctx, owner, list)
			if err != nil {
				return Reply{}, err
			}
			index = len(items)
		}
		ref = fmt.Sprintf("№%d", in.Meta.ByIndex)
		out, err = d.engine.UpdateTaskByIndex(ctx, owner, list, index, newTitle)
	case ref != "":
		out, err = d.engine.UpdateTask(ctx, owner, list, ref, newTitle)
	default:
		return Reply{Action: ActionUpdateTask, List: list, Question: "Какую задачу изменить?"}, nil
	}
	if err != nil {
		return Reply{}, err
	}

	reply := Reply{Action: ActionUpdateTask, List: list, Outcomes: []models.Outcome{out}}
	switch {
	case out.Applied:
		reply.OK = true
		reply.say("%s → %s", out.PreviousTitle, out.Title)
		d.sessions.Touch(owner, ActionUpdateTask, list)
	case out.Conflict:
		reply.say("«%s» уже есть в списке.", out.Title)
	default:
		reply.say("Задача «%s» не найдена.", ref)
	}
	return reply, nil
}

func (d *Dispatcher) move(ctx context.Context, owner string, in Intent) (Reply, error) {
	from := d.listFor(owner, in)
	to := strings.TrimSpace(in.ToList)
	title := strings.TrimSpace(in.Title)
	if from == "" || to == "" || title == "" {
		return Reply{Action: ActionMoveEntity, List: from, Question: "Что и куда перенести?"}, nil
	}

	out, err := d.engine.MoveEntity(ctx, owner, childKind(in), title, from, to, in.Meta.Fuzzy)
	if err != nil {
		return Reply{}, err
	}
	reply := Reply{Action: ActionMoveEntity, List: from, Outcomes: []models.Outcome{out}}
	switch {
	case out.Applied:
		reply.OK = true
		reply.List = to
		reply.say("«%s» перенесено в «%s».", out.Title, to)
		d.sessions.Touch(owner, ActionMoveEntity, to)
	case out.Conflict:
		reply.say("В «%s» уже есть «%s».", to, out.Title)
	default:
		reply.say("Задача «%s» не найдена в «%s».", title, from)
	}
	return reply, nil
}

func (d *Dispatcher) convert(ctx context.Context, owner string, in Intent) (Reply, error) {
	list := d.listFor(owner, in)
	title := strings.TrimSpace(in.Title)
	if list == "" || title == "" {
		return Reply{Action: ActionConvertEntity, List: list, Question: "Что преобразовать?"}, nil
	}
	kind, err := models.ParseKind(in.Meta.NewKind)
	if err != nil {
		return Reply{Action: ActionConvertEntity, List: list, Message: fmt.Sprintf("Не знаю тип «%s».", in.Meta.NewKind)}, nil
	}

	out, err := d.engine.ConvertEntity(ctx, owner, list, title, kind)
	if err != nil {
		return Reply{}, err
	}
	reply := Reply{Action: ActionConvertEntity, List: list, Outcomes: []models.Outcome{out}}
	if out.Applied {
		reply.OK = true
		reply.say("«%s» теперь %s.", out.Title, kind)
		d.sessions.Touch(owner, ActionConvertEntity, list)
	} else {
		reply.say("Задача «%s» не найдена.", title)
	}
	return reply, nil
}

func (d *Dispatcher) updateProfile(ctx context.Context, owner string, in Intent) (Reply, error) {
	fields := in.ProfileFields()
	if len(fields) == 0 {
		return Reply{Action: ActionUpdateProfile, Question: "Что запомнить?"}, nil
	}
	profile, err := d.engine.UpdateUserProfile(ctx, owner, fields)
	if err != nil {
		return Reply{}, err
	}
	d.sessions.Touch(owner, ActionUpdateProfile, "")
	return Reply{Action: ActionUpdateProfile, OK: true, Message: "Профиль обновлён.", Profile: profile}, nil
}

// Answer resolves the owner's pending confirmation with yes or no.
func (d *Dispatcher) Answer(ctx context.Context, owner string, yes bool) (Reply, error) {
	action := ActionDecline
	if yes {
		action = ActionConfirm
	}

	p := d.sessions.TakePending(owner)
	if p == nil {
		return Reply{Action: action, Message: "Нечего подтверждать."}, nil
	}
	shared.WithLogger(d.logger, "owner", owner).Info("answered", "pending", p.Action, "list", p.List, "yes", yes)

	switch p.Action {
	case ActionDeleteList:
		if !yes {
			return Reply{Action: action, OK: true, List: p.List, Message: "Удаление отменено."}, nil
		}
		reply, err := d.removeList(ctx, owner, p.List)
		reply.Action = action
		return reply, err

	case ActionCreate:
		if !yes {
			return Reply{Action: action, OK: true, Message: "Хорошо, не создаю."}, nil
		}
		reply := Reply{Action: action}
		res, err := d.engine.CreateList(ctx, owner, p.List, true)
		if err != nil {
			return reply, err
		}
		reply.Created = append(reply.Created, res)
		reply.List = res.Title
		if res.Created {
			reply.say("Список «%s» создан.", res.Title)
		}
		d.sessions.Touch(owner, ActionCreate, res.Title)
		reply.OK = true
		if len(p.Remaining) > 0 {
			added, err := d.addTitles(ctx, owner, kindOr(p.Kind), res.Title, p.Remaining, false)
			if err != nil {
				return reply, err
			}
			reply.merge(added)
		}
		return reply, nil

	case ActionAddTask:
		reply := Reply{Action: action, List: p.List, OK: true}
		if yes {
			res, err := d.engine.AddEntity(ctx, owner, kindOr(p.Kind), p.List, p.Title, true)
			if err != nil {
				return reply, err
			}
			reply.Created = append(reply.Created, res)
			reply.say("Добавлено в «%s»: %s.", p.List, res.Title)
		} else {
			reply.say("Оставляю «%s».", p.SimilarTo)
		}
		d.sessions.Touch(owner, ActionAddTask, p.List)
		if len(p.Remaining) > 0 {
			added, err := d.addTitles(ctx, owner, kindOr(p.Kind), p.List, p.Remaining, false)
			if err != nil {
				return reply, err
			}
			reply.merge(added)
		}
		return reply, nil
	}

	return Reply{Action: action, Message: "Нечего подтверждать."}, nil
}

func itemsReply(action string, items []models.TaskItem, empty string) Reply {
	reply := Reply{Action: action, OK: true, Items: items}
	if len(items) == 0 {
		reply.Message = empty
	}
	return reply
}

func childKind(in Intent) models.Kind {
	if k := in.Kind(); k.IsChild() {
		return k
	}
	return models.KindTask
}

func kindOr(k models.Kind) models.Kind {
	if k.IsChild() {
		return k
	}
	return models.KindTask
}

func cleaned(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// summary renders an intent as a one-line history entry.
func summary(in Intent) string {
	parts := []string{in.Action}
	for _, p := range []string{in.List, in.Title, strings.Join(in.Tasks, ", "), in.ToList} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
