package command

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/yndnr/sessbox-go/internal/config"
)

// ConfigCommand returns the config subcommand group. None of its
// subcommands open the local store.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration with secrets masked",
				Action: configShow,
			},
			{
				Name:      "validate",
				Usage:     "Check a configuration file",
				ArgsUsage: "[FILE]",
				Action:    configValidate,
			},
			{
				Name:   "path",
				Usage:  "Print the configuration file path",
				Action: configPath,
			},
			{
				Name:   "init",
				Usage:  "Write a configuration file with default values",
				Flags:  []cli.Flag{forceFlag},
				Action: configInit,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return render(c, config.Sanitize(cfg))
}

func configValidate(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		path = configFilePath(c)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("configuration file: %w", err)
	}
	if _, err := config.Load(path, nil); err != nil {
		return err
	}
	printf(c, "%s: OK\n", path)
	return nil
}

func configPath(c *cli.Context) error {
	fmt.Fprintln(c.App.Writer, configFilePath(c))
	return nil
}

func configInit(c *cli.Context) error {
	path := configFilePath(c)
	if _, err := os.Stat(path); err == nil {
		if !confirm(c, fmt.Sprintf("%s exists. Overwrite?", path)) {
			printf(c, "Cancelled.\n")
			return nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	data, err := yaml.Marshal(config.Default())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	printf(c, "Wrote %s\n", path)
	return nil
}

// configFilePath returns --config, or the default file location.
func configFilePath(c *cli.Context) string {
	if p := ParseGlobalFlags(c).ConfigFile; p != "" {
		return p
	}
	return config.DefaultConfigFile()
}
