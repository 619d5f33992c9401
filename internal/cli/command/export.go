package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/sessbox-go/internal/core/domain"
	"github.com/yndnr/sessbox-go/internal/core/service"
)

// archiveVersion is the export file format version.
const archiveVersion = 1

// archive is the export file layout. Identifiers and sync state are not
// exported; imported sessions are new records.
type archive struct {
	Version    int              `json:"version"`
	ExportedAt int64            `json:"exportedAt"`
	Sessions   []archiveSession `json:"sessions"`
}

type archiveSession struct {
	Domain     string         `json:"domain"`
	Name       string         `json:"name"`
	FaviconURL string         `json:"faviconUrl,omitempty"`
	Payload    domain.Payload `json:"payload"`
	CreatedAt  int64          `json:"createdAt,omitempty"`
	LastUsed   int64          `json:"lastUsed,omitempty"`
}

// ExportCommand returns the export command.
func ExportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write all sessions, including payloads, to a JSON file",
		ArgsUsage: "[FILE]",
		Description: `Writes to stdout when FILE is omitted or "-".
The file contains cookies and storage values in clear text.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "domain",
				Aliases: []string{"d"},
				Usage:   "Only sessions for this domain",
			},
		},
		Action: exportSessions,
	}
}

// ImportCommand returns the import command.
func ImportCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Create sessions from a file written by export",
		ArgsUsage: "FILE",
		Description: `Reads stdin when FILE is "-". Every imported session is saved as a
new record and synced like any other local change.`,
		Action: importSessions,
	}
}

func exportSessions(c *cli.Context) error {
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

	arc := archive{
		Version:    archiveVersion,
		ExportedAt: time.Now().UnixMilli(),
		Sessions:   make([]archiveSession, 0, len(list)),
	}
	for _, s := range list {
		arc.Sessions = append(arc.Sessions, archiveSession{
			Domain:     s.Domain,
			Name:       s.Name,
			FaviconURL: s.FaviconURL,
			Payload:    s.Payload,
			CreatedAt:  s.CreatedAt,
			LastUsed:   s.LastUsed,
		})
	}

	path := c.Args().First()
	if path == "" || path == "-" {
		return writeArchive(c.App.Writer, &arc)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := writeArchive(f, &arc); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}
	fmt.Fprintf(c.App.ErrWriter, "Exported %d sessions to %s\n", len(arc.Sessions), path)
	return nil
}

func writeArchive(w io.Writer, arc *archive) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(arc); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// importResult summarizes an import.
type importResult struct {
	Imported []string `json:"imported" yaml:"imported"`
	Skipped  []string `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

func importSessions(c *cli.Context) error {
	path, err := requireArg(c, "file")
	if err != nil {
		return err
	}
	arc, err := readArchive(path)
	if err != nil {
		return err
	}

	a, err := openApp(c)
	if err != nil {
		return err
	}

	res := importResult{Imported: []string{}}
	for i, in := range arc.Sessions {
		s, err := a.Sessions.Create(c.Context, &service.CreateSessionRequest{
			Domain:     in.Domain,
			Name:       in.Name,
			FaviconURL: in.FaviconURL,
			Payload:    in.Payload,
		})
		switch {
		case s != nil && err != nil:
			return fmt.Errorf("session %s saved locally but not queued for sync: %w", s.LocalID, err)
		case errors.Is(err, domain.ErrDomainBlocked), errors.Is(err, domain.ErrValidation):
			printf(c, "Skipped entry %d (%s): %v\n", i, in.Domain, err)
			res.Skipped = append(res.Skipped, in.Domain)
			continue
		case err != nil:
			return err
		}
		res.Imported = append(res.Imported, s.LocalID)
	}

	printf(c, "Imported %d sessions, skipped %d.\n", len(res.Imported), len(res.Skipped))
	return renderIfData(c, res)
}

func readArchive(path string) (*archive, error) {
	var r io.Reader
	if path == "-" {
		r = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open import file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var arc archive
	if err := json.NewDecoder(r).Decode(&arc); err != nil {
		return nil, fmt.Errorf("decode import file: %w", err)
	}
	if arc.Version != archiveVersion {
		return nil, fmt.Errorf("unsupported export version %d", arc.Version)
	}
	return &arc, nil
}
