package command

import (
	"github.com/urfave/cli/v2"
)

// QueueCommand returns the queue subcommand group.
func QueueCommand() *cli.Command {
	return &cli.Command{
		Name:  "queue",
		Usage: "Inspect changes waiting to be synced",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List pending operations in the order they will be sent",
				Action:  queueList,
			},
			{
				Name:   "retry",
				Usage:  "Clear backoff so pending operations are sent on the next sync",
				Action: queueRetry,
			},
			{
				Name:      "discard",
				Usage:     "Drop the pending operations for one session",
				ArgsUsage: "SESSION_ID",
				Flags:     []cli.Flag{forceFlag},
				Action:    queueDiscard,
			},
		},
	}
}

func queueList(c *cli.Context) error {
	a, err := openApp(c)
	if err != nil {
		return err
	}
	ops := a.Queue.Snapshot()
	if err := render(c, operationList(ops)); err != nil {
		return err
	}
	printf(c, "\nTotal: %d pending\n", len(ops))
	return nil
}

func queueRetry(c *cli.Context) error {
	a, err := openApp(c)
	if err != nil {
		return err
	}
	if err := a.Queue.ResetBackoff(c.Context); err != nil {
		return err
	}
	printf(c, "Backoff cleared for %d pending operations.\n", a.Queue.Len())
	return nil
}

func queueDiscard(c *cli.Context) error {
	id, err := requireArg(c, "session ID")
	if err != nil {
		return err
	}
	a, err := openApp(c)
	if err != nil {
		return err
	}

	// Operations are keyed by local ID; accept a remote ID too.
	if s, err := a.Cache.Get(id); err == nil {
		id = s.LocalID
	}
	pending := a.Queue.Pending(id)
	if len(pending) == 0 {
		printf(c, "Nothing pending for %s.\n", id)
		return nil
	}
	if !confirm(c, "Discard unsynced changes? They will not reach the server.") {
		printf(c, "Cancelled.\n")
		return nil
	}

	n, err := a.Queue.Discard(c.Context, id)
	if err != nil {
		return err
	}
	printf(c, "Discarded %d operations for %s.\n", n, id)
	return nil
}
