// Package intents turns structured intent payloads into engine calls.
//
// The conversational front-end sends the output of its language model as one intent,
// an array of intents, or an envelope of the form {"actions": [...], "ui_text": "..."}.
// Payloads are JSON or YAML. [Decode] reads them, [Canonicalize] folds action and entity
// aliases into the canonical vocabulary, and [Dispatcher] executes them for one owner
// against a [tasks.Engine], consulting the owner's [session.State] for the last used
// list and for pending confirmations.
//
// # Confirmations
//
// Creating something that looks like an existing list or task, adding to a list that
// does not exist and deleting a list all park a [session.Pending] and return a question.
// The next "confirm" or "decline" intent from the same owner resolves it. Any other
// action drops the pending question.
package intents
