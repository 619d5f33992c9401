package command

import (
	"strings"
	"testing"
)

func TestShell(t *testing.T) {
	e := newTestEnv(t, nil)

	withStdin(t, strings.Join([]string{
		`session create --domain example.com --name "my work"`,
		"blocklist add bank.example",
		"help queue",
		"shell",
		"queue list",
		"exit",
	}, "\n")+"\n")

	out := e.mustRun("shell", "--history", "")

	if e.app.Cache.Len() != 1 {
		t.Fatalf("cache has %d sessions, want 1", e.app.Cache.Len())
	}
	list := e.app.Sessions.List()
	if list[0].Name != "my work" {
		t.Errorf("Name = %q, want %q", list[0].Name, "my work")
	}
	if !e.app.Blocklist.Blocked("bank.example") {
		t.Error("blocklist add not applied")
	}
	for _, want := range []string{"  queue discard\n", "already in a shell", "Total: 1 pending"} {
		if !strings.Contains(out, want) {
			t.Errorf("shell output missing %q:\n%s", want, out)
		}
	}
}

func TestCommandNames(t *testing.T) {
	names := commandNames(App().Commands)
	has := map[string]bool{}
	for _, n := range names {
		has[n] = true
	}
	for _, want := range []string{"session", "session list", "queue retry", "config init", "shell"} {
		if !has[want] {
			t.Errorf("commandNames() missing %q", want)
		}
	}
}
