package command

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/sessbox-go/internal/core/domain"
	"github.com/yndnr/sessbox-go/internal/core/service"
)

// SessionCommand returns the session subcommand group.
func SessionCommand() *cli.Command {
	return &cli.Command{
		Name:    "session",
		Aliases: []string{"sess"},
		Usage:   "Manage saved sessions",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List sessions, most recently modified first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "domain",
						Aliases: []string{"d"},
						Usage:   "Only sessions for this domain",
					},
				},
				Action: sessionList,
			},
			{
				Name:      "show",
				Aliases:   []string{"get"},
				Usage:     "Show one session",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "payload",
						Usage: "Include cookies and storage values",
					},
				},
				Action: sessionShow,
			},
			{
				Name:  "create",
				Usage: "Save a new session",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "domain", Aliases: []string{"d"}, Usage: "Site domain", Required: true},
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Session name", Required: true},
					&cli.StringFlag{Name: "favicon", Usage: "Favicon URL"},
					&cli.StringFlag{Name: "payload", Aliases: []string{"p"}, Usage: "JSON payload file, - for stdin"},
				},
				Action: sessionCreate,
			},
			{
				Name:      "edit",
				Usage:     "Change a session",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "domain", Aliases: []string{"d"}, Usage: "New domain"},
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "New name"},
					&cli.StringFlag{Name: "favicon", Usage: "New favicon URL"},
					&cli.StringFlag{Name: "payload", Aliases: []string{"p"}, Usage: "Replacement JSON payload file, - for stdin"},
				},
				Action: sessionEdit,
			},
			{
				Name:      "touch",
				Usage:     "Mark a session as just used",
				ArgsUsage: "ID",
				Action:    sessionTouch,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a session here and on the server",
				ArgsUsage: "ID",
				Flags:     []cli.Flag{forceFlag},
				Action:    sessionDelete,
			},
		},
	}
}

func sessionList(c *cli.Context) error {
	a, err := openApp(c)
	if err != nil {
		return err
	}

	var list []*domain.Session
	if d := c.String("domain"); d != "" {
		list = a.Sessions.ListByDomain(d)
	} else {
		list = a.Sessions.List()
	}

	if err := render(c, newSessionListView(list)); err != nil {
		return err
	}
	printf(c, "\nTotal: %d sessions\n", len(list))
	return nil
}

func sessionShow(c *cli.Context) error {
	id, err := requireArg(c, "session ID")
	if err != nil {
		return err
	}
	a, err := openApp(c)
	if err != nil {
		return err
	}

	s, err := a.Sessions.Get(id)
	if err != nil {
		return err
	}
	return render(c, newSessionView(s, c.Bool("payload")))
}

func sessionCreate(c *cli.Context) error {
	req := &service.CreateSessionRequest{
		Domain:     c.String("domain"),
		Name:       c.String("name"),
		FaviconURL: c.String("favicon"),
	}
	if path := c.String("payload"); path != "" {
		p, err := readPayload(path)
		if err != nil {
			return err
		}
		req.Payload = *p
	}

	a, err := openApp(c)
	if err != nil {
		return err
	}
	s, err := a.Sessions.Create(c.Context, req)
	if s == nil {
		return err
	}
	if err != nil {
		return fmt.Errorf("session %s saved locally but not queued for sync: %w", s.LocalID, err)
	}

	printf(c, "Session created: %s\n", s.LocalID)
	return renderIfData(c, newSessionView(s, false))
}

func sessionEdit(c *cli.Context) error {
	id, err := requireArg(c, "session ID")
	if err != nil {
		return err
	}

	req := &service.UpdateSessionRequest{ID: id}
	if c.IsSet("domain") {
		v := c.String("domain")
		req.Domain = &v
	}
	if c.IsSet("name") {
		v := c.String("name")
		req.Name = &v
	}
	if c.IsSet("favicon") {
		v := c.String("favicon")
		req.FaviconURL = &v
	}
	if path := c.String("payload"); path != "" {
		p, err := readPayload(path)
		if err != nil {
			return err
		}
		req.Payload = p
	}
	if req.Domain == nil && req.Name == nil && req.FaviconURL == nil && req.Payload == nil {
		return fmt.Errorf("nothing to change: use --domain, --name, --favicon or --payload")
	}

	a, err := openApp(c)
	if err != nil {
		return err
	}
	s, err := a.Sessions.Update(c.Context, req)
	if s == nil {
		return err
	}
	if err != nil {
		return fmt.Errorf("session %s updated locally but not queued for sync: %w", s.LocalID, err)
	}

	printf(c, "Session updated: %s\n", s.LocalID)
	return renderIfData(c, newSessionView(s, false))
}

func sessionTouch(c *cli.Context) error {
	id, err := requireArg(c, "session ID")
	if err != nil {
		return err
	}
	a, err := openApp(c)
	if err != nil {
		return err
	}
	s, err := a.Sessions.Touch(c.Context, id)
	if s == nil {
		return err
	}
	if err != nil {
		return fmt.Errorf("session %s touched locally but not queued for sync: %w", s.LocalID, err)
	}
	return renderIfData(c, newSessionView(s, false))
}

func sessionDelete(c *cli.Context) error {
	id, err := requireArg(c, "session ID")
	if err != nil {
		return err
	}
	a, err := openApp(c)
	if err != nil {
		return err
	}

	s, err := a.Sessions.Get(id)
	if err != nil {
		return err
	}
	if !confirm(c, fmt.Sprintf("Delete session %q (%s)?", s.Name, s.Domain)) {
		printf(c, "Cancelled.\n")
		return nil
	}

	deleted, err := a.Sessions.Delete(c.Context, id)
	if deleted == nil {
		return err
	}
	if err != nil {
		return fmt.Errorf("session %s deleted locally but not queued for sync: %w", deleted.LocalID, err)
	}
	printf(c, "Session deleted: %s\n", deleted.LocalID)
	return nil
}

// readPayload decodes a captured payload from a JSON file, or stdin for "-".
func readPayload(path string) (*domain.Payload, error) {
	var r io.Reader
	if path == "-" {
		r = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open payload: %w", err)
		}
		defer f.Close()
		r = f
	}

	var p domain.Payload
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &p, nil
}
