package command

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/sessbox-go/internal/cli/repl"
	"github.com/yndnr/sessbox-go/internal/config"
)

// ShellCommand returns the interactive shell command.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Run commands interactively with the local store kept open",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "history",
				Usage: "History file, empty to keep none",
				Value: filepath.Join(config.DefaultDir(), "history"),
			},
		},
		Action: shellRun,
	}
}

func shellRun(c *cli.Context) error {
	a, err := openApp(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	exec := func(ctx context.Context, args []string) error {
		if args[0] == "shell" {
			return fmt.Errorf("already in a shell")
		}
		inner := App()
		inner.Writer = c.App.Writer
		inner.ErrWriter = c.App.ErrWriter
		inner.Metadata = map[string]any{appKey: a, configKey: cfg}

		argv := []string{inner.Name, "--output", string(flags.Output)}
		if flags.Wide {
			argv = append(argv, "--wide")
		}
		return inner.RunContext(ctx, append(argv, args...))
	}

	r := repl.New(exec, commandNames(App().Commands),
		repl.WithIO(stdin, c.App.Writer),
		repl.WithHistory(repl.NewHistory(c.String("history"))))
	return r.Run(c.Context)
}

// commandNames lists "cmd" and "cmd sub" for every command.
func commandNames(cmds []*cli.Command) []string {
	var names []string
	for _, cmd := range cmds {
		names = append(names, cmd.Name)
		for _, sub := range cmd.Subcommands {
			names = append(names, cmd.Name+" "+sub.Name)
		}
	}
	return names
}
