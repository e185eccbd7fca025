// Package server exposes the list engine and the intent dispatcher over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [MuxRouter] implementation uses [mux.Router] internally, so routes may carry path variables
// such as {owner} and {list} and are filtered by method.
//
// # API
//
// [API] registers the JSON endpoints under /v1/owners/{owner}. Every request is scoped to the
// owner in its path; the engine never sees data from another owner.
//
//	GET  /healthz
//	POST /v1/owners/{owner}/intents               JSON or YAML intent payload → replies
//	GET  /v1/owners/{owner}/lists                 active lists
//	POST /v1/owners/{owner}/lists                 {"name", "force"} → creation result
//	GET  /v1/owners/{owner}/lists/{list}/tasks    ordered active items
//	POST /v1/owners/{owner}/lists/{list}/tasks    {"title", "kind", "force"} → creation result
//	GET  /v1/owners/{owner}/lists/{list}/export   ?format=json|csv|markdown|txt|yaml
//	GET  /v1/owners/{owner}/tasks                 all active items
//	GET  /v1/owners/{owner}/tasks/search          ?q=
//	GET  /v1/owners/{owner}/tasks/completed       ?limit=
//	GET  /v1/owners/{owner}/tasks/deleted         ?limit=
//	GET  /v1/owners/{owner}/profile
//	PUT  /v1/owners/{owner}/profile               {"field": "value", ...}
//	GET  /v1/owners/{owner}/session               dialogue state
//
// Item views accept ?format= to render text, markdown, csv or yaml instead of JSON.
//
// # Errors
//
// Invalid input maps to 400, an exhausted per-owner rate limit to 429 and storage failures to 503.
// Error bodies are {"error": "..."}.
package server
