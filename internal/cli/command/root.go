package command

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/sessbox-go/internal/app"
	"github.com/yndnr/sessbox-go/internal/cli/output"
	"github.com/yndnr/sessbox-go/internal/config"
	"github.com/yndnr/sessbox-go/internal/infra/buildinfo"
	"github.com/yndnr/sessbox-go/internal/telemetry/logger"
)

// Metadata keys. Tests preset them to inject a wired App.
const (
	appKey    = "sessbox.app"
	configKey = "sessbox.config"
	ownedKey  = "sessbox.owned"
)

// stdin is read by confirmation prompts.
var stdin io.Reader = os.Stdin

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "sessbox",
		Usage:   "Save, inspect and sync browser sessions",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			SessionCommand(),
			SyncCommand(),
			StatusCommand(),
			QueueCommand(),
			BlocklistCommand(),
			ExportCommand(),
			ImportCommand(),
			ConfigCommand(),
			ShellCommand(),
		},
		Before: func(c *cli.Context) error {
			_, err := output.ParseFormat(c.String("output"))
			return err
		},
		After: closeApp,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Configuration file (default: " + config.DefaultConfigFile() + ")",
			EnvVars: []string{"SESSBOX_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "remote",
			Usage: "Remote server URL, overrides remote.base_url",
		},
		&cli.StringFlag{
			Name:  "data-dir",
			Usage: "Local data directory, overrides storage.data_dir",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Log debug output to stderr",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	ConfigFile string
	Remote     string
	DataDir    string
	Output     output.Format
	Wide       bool
	Verbose    bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	format, _ := output.ParseFormat(c.String("output"))
	return &GlobalFlags{
		ConfigFile: c.String("config"),
		Remote:     c.String("remote"),
		DataDir:    c.String("data-dir"),
		Output:     format,
		Wide:       c.Bool("wide"),
		Verbose:    c.Bool("verbose"),
	}
}

// overrides maps set global flags to configuration keys.
func (f *GlobalFlags) overrides() map[string]any {
	m := map[string]any{}
	if f.Remote != "" {
		m["remote.base_url"] = f.Remote
	}
	if f.DataDir != "" {
		m["storage.data_dir"] = f.DataDir
	}
	return m
}

// loadConfig returns the configuration, loading it on first use.
func loadConfig(c *cli.Context) (*config.Config, error) {
	meta := c.App.Metadata
	if cfg, ok := meta[configKey].(*config.Config); ok {
		return cfg, nil
	}
	flags := ParseGlobalFlags(c)
	cfg, err := config.Load(flags.ConfigFile, flags.overrides())
	if err != nil {
		return nil, err
	}
	meta[configKey] = cfg
	return cfg, nil
}

// openApp returns the wired application, opening it on first use.
func openApp(c *cli.Context) (*app.App, error) {
	meta := c.App.Metadata
	if a, ok := meta[appKey].(*app.App); ok {
		return a, nil
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	level := "warn"
	if ParseGlobalFlags(c).Verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Config{Level: level, Format: "text", Output: c.App.ErrWriter})
	if err != nil {
		return nil, err
	}

	a, err := app.New(c.Context, cfg, app.WithLogger(log), app.WithProgram("sessbox"))
	if err != nil {
		return nil, err
	}
	meta[appKey] = a
	meta[ownedKey] = true
	return a, nil
}

// closeApp closes an App opened by openApp.
func closeApp(c *cli.Context) error {
	meta := c.App.Metadata
	if owned, _ := meta[ownedKey].(bool); !owned {
		return nil
	}
	a, _ := meta[appKey].(*app.App)
	delete(meta, appKey)
	delete(meta, ownedKey)
	if a == nil {
		return nil
	}
	return a.Close()
}

// render writes data in the selected output format.
func render(c *cli.Context, data any) error {
	flags := ParseGlobalFlags(c)
	return output.NewFormatter(flags.Output, flags.Wide).Format(c.App.Writer, data)
}

// renderIfData renders v only for machine-readable output formats.
func renderIfData(c *cli.Context, v any) error {
	if ParseGlobalFlags(c).Output == output.FormatTable {
		return nil
	}
	return render(c, v)
}

// printf writes a human-readable message. It is suppressed for json and
// yaml output so scripts see only data.
func printf(c *cli.Context, format string, args ...any) {
	if ParseGlobalFlags(c).Output != output.FormatTable {
		return
	}
	fmt.Fprintf(c.App.Writer, format, args...)
}

// confirm asks a yes/no question on stdin unless --force is set.
func confirm(c *cli.Context, question string) bool {
	if c.Bool("force") {
		return true
	}
	fmt.Fprintf(c.App.ErrWriter, "%s [y/N]: ", question)
	line, _ := bufio.NewReader(stdin).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// requireArg returns the first positional argument.
func requireArg(c *cli.Context, name string) (string, error) {
	arg := strings.TrimSpace(c.Args().First())
	if arg == "" {
		return "", fmt.Errorf("%s required", name)
	}
	return arg, nil
}

var forceFlag = &cli.BoolFlag{
	Name:    "force",
	Aliases: []string{"f"},
	Usage:   "Skip confirmation",
}
