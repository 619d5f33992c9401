package command

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/sessbox-go/internal/cli/output"
	"github.com/yndnr/sessbox-go/internal/core/queue"
	"github.com/yndnr/sessbox-go/internal/core/syncer"
	"github.com/yndnr/sessbox-go/internal/infra/buildinfo"
	"github.com/yndnr/sessbox-go/internal/telemetry/metric"
)

// SyncCommand returns the sync command.
func SyncCommand() *cli.Command {
	return &cli.Command{
		Name:   "sync",
		Usage:  "Push pending changes and pull the server's sessions",
		Action: syncRun,
	}
}

// StatusCommand returns the status command.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show sync status",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "probe",
				Usage: "Check that the server is reachable",
			},
		},
		Action: syncStatus,
	}
}

type reportView struct {
	CycleID  string            `json:"cycleId,omitempty" yaml:"cycle_id,omitempty"`
	Result   string            `json:"result" yaml:"result"`
	Error    string            `json:"error,omitempty" yaml:"error,omitempty"`
	Drain    queue.DrainResult `json:"drain" yaml:"drain"`
	Merge    syncer.MergeStats `json:"merge" yaml:"merge"`
	Duration string            `json:"duration" yaml:"duration"`
}

// Table implements output.Tabular.
func (v *reportView) Table(bool) *output.Table {
	t := output.NewTable("FIELD", "VALUE")
	t.AddRow("result", v.Result)
	t.AddRow("error", v.Error)
	t.AddRow("applied", strconv.Itoa(v.Drain.Applied))
	t.AddRow("dropped", strconv.Itoa(v.Drain.Dropped))
	t.AddRow("pending", strconv.Itoa(v.Drain.Remaining))
	t.AddRow("inserted", strconv.Itoa(v.Merge.Inserted))
	t.AddRow("overwritten", strconv.Itoa(v.Merge.Overwritten))
	t.AddRow("pushed", strconv.Itoa(v.Merge.Enqueued))
	t.AddRow("removed", strconv.Itoa(v.Merge.Removed))
	t.AddRow("adopted", strconv.Itoa(v.Merge.Adopted))
	t.AddRow("duration", v.Duration)
	return t
}

func syncRun(c *cli.Context) error {
	a, err := openApp(c)
	if err != nil {
		return err
	}
	if a.Client == nil {
		return fmt.Errorf("no remote server configured: set remote.base_url or --remote")
	}

	flags := ParseGlobalFlags(c)
	var spin *output.Spinner
	if flags.Output == output.FormatTable && output.IsTerminal(c.App.ErrWriter) {
		spin = output.NewSpinner(c.App.ErrWriter, "syncing with "+a.Client.BaseURL())
		spin.Start()
	}

	a.Prober.ProbeOnce(c.Context)
	rep := a.Engine.Sync(c.Context)
	if spin != nil {
		spin.Stop()
	}

	view := &reportView{
		CycleID:  rep.CycleID,
		Result:   rep.Result,
		Drain:    rep.Drain,
		Merge:    rep.Merge,
		Duration: rep.Duration.String(),
	}
	if rep.Err != nil {
		view.Error = rep.Err.Error()
	}
	if err := render(c, view); err != nil {
		return err
	}

	switch rep.Result {
	case metric.ResultAuth:
		return fmt.Errorf("sync needs credentials: set remote.token or remote.token_file")
	case metric.ResultError:
		return fmt.Errorf("sync failed: %w", rep.Err)
	case metric.ResultOffline:
		printf(c, "\nServer unreachable; %d changes stay queued.\n", a.Queue.Len())
	}
	return nil
}

type statusView struct {
	syncer.State `yaml:",inline"`

	Version  string `json:"version" yaml:"version"`
	Remote   string `json:"remote" yaml:"remote"`
	Sessions int    `json:"sessions" yaml:"sessions"`
}

// Table implements output.Tabular.
func (v *statusView) Table(bool) *output.Table {
	t := output.NewTable("FIELD", "VALUE")
	t.AddRow("version", v.Version)
	t.AddRow("remote", v.Remote)
	t.AddRow("online", strconv.FormatBool(v.Online))
	t.AddRow("phase", string(v.Phase))
	t.AddRow("sessions", strconv.Itoa(v.Sessions))
	t.AddRow("pending", strconv.Itoa(v.PendingOps))
	t.AddRow("last synced", output.Millis(v.LastSyncedAt))
	t.AddRow("last result", v.LastResult)
	t.AddRow("last error", v.LastError)
	return t
}

func syncStatus(c *cli.Context) error {
	a, err := openApp(c)
	if err != nil {
		return err
	}
	if c.Bool("probe") && a.Prober != nil {
		a.Prober.ProbeOnce(c.Context)
	}

	view := &statusView{
		Version:  buildinfo.Get().Version,
		Remote:   "local only",
		State:    a.Engine.State(),
		Sessions: a.Cache.Len(),
	}
	if a.Client != nil {
		view.Remote = a.Client.BaseURL()
	}
	return render(c, view)
}
