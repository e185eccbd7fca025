// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: txt, markdown, csv, yaml or json",
		Value:   "txt",
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output raw JSON",
	}
}

func listFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "list",
		Aliases:  []string{"l"},
		Usage:    "List name",
		Required: required,
	}
}

func kindFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "kind",
		Aliases: []string{"k"},
		Usage:   "Entity kind: task, note or reminder",
		Value:   "task",
	}
}

func limitFlag() cli.Flag {
	return &cli.IntFlag{
		Name:  "limit",
		Usage: "Maximum number of rows to return",
		Value: 15,
	}
}

func selectorFlags() []cli.Flag {
	return []cli.Flag{
		listFlag(true),
		&cli.IntFlag{
			Name:    "index",
			Aliases: []string{"i"},
			Usage:   "1-based position in the list view instead of a title",
		},
		&cli.BoolFlag{
			Name:  "exact",
			Usage: "Match the title exactly instead of fuzzily",
		},
		jsonFlag(),
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "status",
				Usage:  "Show applied migrations",
				Action: r.SetupStatus,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// listsCommand handles list operations
func listsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "lists",
		Aliases: []string{"list", "ls"},
		Usage:   "Create, rename and delete lists",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show all live lists",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.ListsShow,
			},
			{
				Name:  "create",
				Usage: "Create a list, reporting near duplicates",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Create even when a similar list exists",
					},
					jsonFlag(),
				},
				Action: r.ListsCreate,
			},
			{
				Name:  "rename",
				Usage: "Rename a list",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "old"},
					&cli.StringArg{Name: "new"},
				},
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.ListsRename,
			},
			{
				Name:  "delete",
				Usage: "Delete a list and its items",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.ListsDelete,
			},
		},
	}
}

// tasksCommand handles item operations
func tasksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tasks",
		Aliases: []string{"task", "t"},
		Usage:   "Add, complete, delete and restore items",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add one or more items to a list",
				ArgsUsage: "<title>...",
				Flags: []cli.Flag{
					listFlag(true),
					kindFlag(),
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Add even when a similar item exists",
					},
					jsonFlag(),
				},
				Action: r.TasksAdd,
			},
			{
				Name:   "show",
				Usage:  "Show the active items of a list",
				Flags:  []cli.Flag{listFlag(true), formatFlag()},
				Action: r.TasksShow,
			},
			{
				Name:   "all",
				Usage:  "Show active items across all lists",
				Flags:  []cli.Flag{formatFlag()},
				Action: r.TasksAll,
			},
			{
				Name:      "search",
				Usage:     "Search active items by title",
				ArgsUsage: "<pattern>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "pattern"},
				},
				Flags:  []cli.Flag{formatFlag()},
				Action: r.TasksSearch,
			},
			{
				Name:   "completed",
				Usage:  "Show recently completed items",
				Flags:  []cli.Flag{limitFlag(), formatFlag()},
				Action: r.TasksCompleted,
			},
			{
				Name:   "deleted",
				Usage:  "Show recently deleted items",
				Flags:  []cli.Flag{limitFlag(), formatFlag()},
				Action: r.TasksDeleted,
			},
			{
				Name:      "done",
				Usage:     "Mark items done",
				ArgsUsage: "[title]...",
				Flags:     selectorFlags(),
				Action:    r.TasksDone,
			},
			{
				Name:      "delete",
				Usage:     "Delete items",
				ArgsUsage: "[title]...",
				Flags:     selectorFlags(),
				Action:    r.TasksDelete,
			},
			{
				Name:      "restore",
				Usage:     "Restore done or deleted items",
				ArgsUsage: "[title]...",
				Flags:     selectorFlags(),
				Action:    r.TasksRestore,
			},
			{
				Name:      "update",
				Usage:     "Change an item's title",
				ArgsUsage: "[old title] <new title>",
				Flags:     selectorFlags(),
				Action:    r.TasksUpdate,
			},
			{
				Name:      "move",
				Usage:     "Move an item to another list",
				ArgsUsage: "<title>",
				Flags: []cli.Flag{
					listFlag(true),
					kindFlag(),
					&cli.StringFlag{
						Name:     "to",
						Usage:    "Destination list (created when missing)",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "exact",
						Usage: "Match the title exactly instead of fuzzily",
					},
					jsonFlag(),
				},
				Action: r.TasksMove,
			},
			{
				Name:      "convert",
				Usage:     "Change an item's kind",
				ArgsUsage: "<title>",
				Flags: []cli.Flag{
					listFlag(true),
					&cli.StringFlag{
						Name:     "to",
						Usage:    "New kind: task, note or reminder",
						Required: true,
					},
					jsonFlag(),
				},
				Action: r.TasksConvert,
			},
		},
	}
}

// profileCommand handles the owner's profile
func profileCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Show or update the owner's profile",
		Commands: []*cli.Command{
			{
				Name:   "get",
				Usage:  "Show the profile",
				Action: r.ProfileGet,
			},
			{
				Name:      "set",
				Usage:     "Set profile fields",
				ArgsUsage: "<key=value>...",
				Action:    r.ProfileSet,
			},
		},
	}
}

// intentCommand feeds structured intents through the dispatcher
func intentCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "intent",
		Usage: "Apply a JSON or YAML intent payload",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Intent payload; read from --file or stdin when empty",
			},
			&cli.StringFlag{
				Name:  "file",
				Usage: "Path to a file containing the intent payload",
			},
			&cli.BoolFlag{
				Name:  "yes",
				Usage: "Answer a pending confirmation with yes after dispatching",
			},
			jsonFlag(),
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Intent,
	}
}

// exportCommand writes lists to disk
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export lists to files with a manifest",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "format",
				Usage: "Export format: json, csv, markdown, txt or yaml",
				Value: "json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: aura_export_{epoch})",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of concurrent writers",
				Value: 5,
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Lists read per second",
				Value: 5,
			},
			&cli.StringSliceFlag{
				Name:  "list",
				Usage: "List to export (repeatable); every list when omitted",
			},
		},
		Action: r.Export,
	}
}

// serveCommand starts the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default from config)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for interactive list management.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for browsing lists",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "export-dir",
				Usage: "Directory used by the export action",
			},
		},
		Action: r.TUI,
	}
}
