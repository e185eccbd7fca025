package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/aura/internal/formatter"
	"github.com/desertthunder/aura/internal/intents"
	"github.com/desertthunder/aura/internal/models"
	"github.com/desertthunder/aura/internal/shared"
	"github.com/desertthunder/aura/internal/tasks"
	"github.com/gorilla/mux"
)

// maxBodySize bounds request bodies.
const maxBodySize = 1 << 20

// API serves the engine and dispatcher as JSON endpoints.
type API struct {
	engine     tasks.Engine
	dispatcher *intents.Dispatcher
	logger     *log.Logger
}

// NewAPI creates an [API]. The dispatcher must wrap the same engine.
func NewAPI(engine tasks.Engine, dispatcher *intents.Dispatcher, logger *log.Logger) *API {
	return &API{engine: engine, dispatcher: dispatcher, logger: logger}
}

// NewHandler builds the full HTTP handler: the API routes behind request id, logging and
// per-owner rate limiting.
func NewHandler(api *API) http.Handler {
	r := NewMuxRouter()
	r.Use(RequestID(), Logging(api.logger), RateLimit(api.dispatcher.Sessions()))
	api.Register(r)
	return r
}

// Register adds every API route to r.
func (a *API) Register(r Router) {
	const prefix = "/v1/owners/{owner}"

	r.Handle(http.MethodGet, "/healthz", http.HandlerFunc(a.health))
	r.Handle(http.MethodPost, prefix+"/intents", http.HandlerFunc(a.dispatch))
	r.Handle(http.MethodGet, prefix+"/lists", http.HandlerFunc(a.lists))
	r.Handle(http.MethodPost, prefix+"/lists", http.HandlerFunc(a.createList))
	r.Handle(http.MethodGet, prefix+"/lists/{list}/tasks", http.HandlerFunc(a.listTasks))
	r.Handle(http.MethodPost, prefix+"/lists/{list}/tasks", http.HandlerFunc(a.addTask))
	r.Handle(http.MethodGet, prefix+"/lists/{list}/export", http.HandlerFunc(a.export))
	r.Handle(http.MethodGet, prefix+"/tasks", http.HandlerFunc(a.allTasks))
	r.Handle(http.MethodGet, prefix+"/tasks/search", http.HandlerFunc(a.search))
	r.Handle(http.MethodGet, prefix+"/tasks/completed", http.HandlerFunc(a.completed))
	r.Handle(http.MethodGet, prefix+"/tasks/deleted", http.HandlerFunc(a.deleted))
	r.Handle(http.MethodGet, prefix+"/profile", http.HandlerFunc(a.profile))
	r.Handle(http.MethodPut, prefix+"/profile", http.HandlerFunc(a.updateProfile))
	r.Handle(http.MethodGet, prefix+"/session", http.HandlerFunc(a.session))
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// dispatch handles POST /v1/owners/{owner}/intents.
func (a *API) dispatch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	replies, err := a.dispatcher.DispatchPayload(r.Context(), mux.Vars(r)["owner"], body)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"replies": replies})
}

// lists handles GET /v1/owners/{owner}/lists.
func (a *API) lists(w http.ResponseWriter, r *http.Request) {
	lists, err := a.engine.GetAllLists(r.Context(), mux.Vars(r)["owner"])
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if lists == nil {
		lists = []*models.Entity{}
	}
	writeJSON(w, http.StatusOK, lists)
}

// createList handles POST /v1/owners/{owner}/lists.
func (a *API) createList(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Force bool   `json:"force"`
	}
	if err := decodeBody(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	res, err := a.engine.CreateList(r.Context(), mux.Vars(r)["owner"], req.Name, req.Force)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, creationStatus(res), res)
}

// addTask handles POST /v1/owners/{owner}/lists/{list}/tasks.
func (a *API) addTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
		Kind  string `json:"kind"`
		Force bool   `json:"force"`
	}
	if err := decodeBody(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	kind := models.KindTask
	if req.Kind != "" {
		k, err := models.ParseKind(req.Kind)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		kind = k
	}

	vars := mux.Vars(r)
	res, err := a.engine.AddEntity(r.Context(), vars["owner"], kind, vars["list"], req.Title, req.Force)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, creationStatus(res), res)
}

// listTasks handles GET /v1/owners/{owner}/lists/{list}/tasks.
func (a *API) listTasks(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	items, err := a.engine.GetListTasks(r.Context(), vars["owner"], vars["list"])
	a.writeItems(w, r, items, err)
}

// allTasks handles GET /v1/owners/{owner}/tasks.
func (a *API) allTasks(w http.ResponseWriter, r *http.Request) {
	items, err := a.engine.GetAllTasks(r.Context(), mux.Vars(r)["owner"])
	a.writeItems(w, r, items, err)
}

// search handles GET /v1/owners/{owner}/tasks/search?q=.
func (a *API) search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	items, err := a.engine.SearchTasks(r.Context(), mux.Vars(r)["owner"], q)
	a.writeItems(w, r, items, err)
}

// completed handles GET /v1/owners/{owner}/tasks/completed?limit=.
func (a *API) completed(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items, err := a.engine.GetCompletedTasks(r.Context(), mux.Vars(r)["owner"], limit)
	a.writeItems(w, r, items, err)
}

// deleted handles GET /v1/owners/{owner}/tasks/deleted?limit=.
func (a *API) deleted(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items, err := a.engine.GetDeletedTasks(r.Context(), mux.Vars(r)["owner"], limit)
	a.writeItems(w, r, items, err)
}

// export handles GET /v1/owners/{owner}/lists/{list}/export?format=.
func (a *API) export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = formatter.FormatJSON
	}
	format, err := formatter.ParseFormat(format)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	vars := mux.Vars(r)
	export, err := a.engine.ExportList(r.Context(), vars["owner"], vars["list"])
	if err != nil {
		a.fail(w, r, err)
		return
	}

	var data []byte
	switch format {
	case formatter.FormatCSV:
		data, err = formatter.ExportToCSV(export)
	case formatter.FormatMarkdown:
		data, err = formatter.ExportToMarkdown(export)
	case formatter.FormatText:
		data, err = formatter.ExportToText(export)
	case formatter.FormatYAML:
		data, err = formatter.ExportToYAML(export)
	default:
		writeJSON(w, http.StatusOK, export)
		return
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType(format))
	w.Write(data)
}

// profile handles GET /v1/owners/{owner}/profile.
func (a *API) profile(w http.ResponseWriter, r *http.Request) {
	profile, err := a.engine.GetUserProfile(r.Context(), mux.Vars(r)["owner"])
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// updateProfile handles PUT /v1/owners/{owner}/profile.
func (a *API) updateProfile(w http.ResponseWriter, r *http.Request) {
	var fields map[string]string
	if err := decodeBody(r, &fields); err != nil {
		a.fail(w, r, err)
		return
	}
	profile, err := a.engine.UpdateUserProfile(r.Context(), mux.Vars(r)["owner"], fields)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// session handles GET /v1/owners/{owner}/session.
func (a *API) session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.dispatcher.Sessions().Get(mux.Vars(r)["owner"]))
}

func (a *API) writeItems(w http.ResponseWriter, r *http.Request, items []models.TaskItem, err error) {
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if items == nil {
		items = []models.TaskItem{}
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		writeJSON(w, http.StatusOK, items)
		return
	}

	format, err = formatter.ParseFormat(format)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := formatter.RenderItems(&buf, items, format); err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType(format))
	w.Write(buf.Bytes())
}

// fail maps err to a status code and writes it as a JSON error.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrStorage):
		return http.StatusServiceUnavailable
	case errors.Is(err, tasks.ErrListNotFound):
		return http.StatusNotFound
	case errors.Is(err, intents.ErrEmptyPayload),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrInvalidFlag),
		errors.Is(err, models.ErrUnknownKind):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

func creationStatus(res models.CreationResult) int {
	if res.Created {
		return http.StatusCreated
	}
	return http.StatusOK
}

func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("%w: limit %q", shared.ErrInvalidArgument, raw)
	}
	return limit, nil
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request payload: %v", shared.ErrInvalidInput, err)
	}
	return nil
}

func contentType(format string) string {
	switch format {
	case formatter.FormatCSV:
		return "text/csv; charset=utf-8"
	case formatter.FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case formatter.FormatYAML:
		return "application/yaml"
	case formatter.FormatJSON:
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
