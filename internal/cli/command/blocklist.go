package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/sessbox-go/internal/cli/output"
)

// BlocklistCommand returns the blocklist subcommand group.
func BlocklistCommand() *cli.Command {
	return &cli.Command{
		Name:  "blocklist",
		Usage: "Manage domains for which sessions may not be saved",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List blocked domains",
				Action:  blocklistList,
			},
			{
				Name:      "add",
				Usage:     "Block a domain (example.com or *.example.com)",
				ArgsUsage: "DOMAIN",
				Action:    blocklistAdd,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Unblock a domain",
				ArgsUsage: "DOMAIN",
				Action:    blocklistRemove,
			},
		},
	}
}

type blocklistView []string

// Table implements output.Tabular.
func (v blocklistView) Table(bool) *output.Table {
	t := output.NewTable("DOMAIN")
	for _, d := range v {
		t.AddRow(d)
	}
	return t
}

func blocklistList(c *cli.Context) error {
	a, err := openApp(c)
	if err != nil {
		return err
	}
	return render(c, blocklistView(a.Blocklist.Entries()))
}

func blocklistAdd(c *cli.Context) error {
	entry, err := requireArg(c, "domain")
	if err != nil {
		return err
	}
	a, err := openApp(c)
	if err != nil {
		return err
	}
	added, err := a.Blocklist.Add(c.Context, entry)
	if err != nil {
		return err
	}
	if added {
		printf(c, "Blocked %s.\n", entry)
	} else {
		printf(c, "%s is already blocked.\n", entry)
	}
	return nil
}

func blocklistRemove(c *cli.Context) error {
	entry, err := requireArg(c, "domain")
	if err != nil {
		return err
	}
	a, err := openApp(c)
	if err != nil {
		return err
	}
	removed, err := a.Blocklist.Remove(c.Context, entry)
	if err != nil {
		return err
	}
	if removed {
		printf(c, "Unblocked %s.\n", entry)
	} else {
		printf(c, "%s was not blocked.\n", entry)
	}
	return nil
}
