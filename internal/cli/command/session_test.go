package command

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yndnr/sessbox-go/internal/core/domain"
)

func TestSession_CreateListShow(t *testing.T) {
	e := newTestEnv(t, nil)

	id := e.createSession("https://Example.com/login", "work")
	e.createSession("other.example", "personal")

	var list []sessionView
	e.runJSON(&list, "session", "list")
	if len(list) != 2 {
		t.Fatalf("session list = %d sessions, want 2", len(list))
	}

	var byDomain []sessionView
	e.runJSON(&byDomain, "session", "list", "--domain", "example.com")
	if len(byDomain) != 1 || byDomain[0].ID != id {
		t.Errorf("session list --domain = %+v, want only %s", byDomain, id)
	}

	var shown sessionView
	e.runJSON(&shown, "session", "show", id)
	if shown.Domain != "example.com" || shown.Name != "work" {
		t.Errorf("session show = %+v", shown)
	}
	if shown.Payload != nil {
		t.Error("payload shown without --payload")
	}

	table := e.mustRun("session", "ls")
	if !strings.Contains(table, "NAME") || !strings.Contains(table, "Total: 2 sessions") {
		t.Errorf("table output:\n%s", table)
	}
}

func TestSession_CreateWithPayload(t *testing.T) {
	e := newTestEnv(t, nil)

	withStdin(t, `{"cookies":[{"name":"sid","value":"s3cret","httpOnly":true}],"localStorage":{"theme":"dark"}}`)
	var v sessionView
	e.runJSON(&v, "session", "create", "--domain", "example.com", "--name", "x", "--payload", "-")
	if !v.HasRestrictedContent || v.Cookies != 1 {
		t.Errorf("created = %+v, want one HttpOnly cookie", v)
	}

	var shown sessionView
	e.runJSON(&shown, "session", "show", "--payload", v.ID)
	if shown.Payload == nil || shown.Payload.Cookies[0].Value != "s3cret" {
		t.Errorf("show --payload = %+v", shown.Payload)
	}
	if len(shown.LocalStorageKeys) != 1 || shown.LocalStorageKeys[0] != "theme" {
		t.Errorf("LocalStorageKeys = %v, want [theme]", shown.LocalStorageKeys)
	}
}

func TestSession_CreateInvalidPayload(t *testing.T) {
	e := newTestEnv(t, nil)

	path := filepath.Join(t.TempDir(), "payload.json")
	if err := os.WriteFile(path, []byte(`{"cookies":[],"unknown":1}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := e.run("session", "create", "--domain", "example.com", "--name", "x", "--payload", path); err == nil {
		t.Error("unknown payload field accepted")
	}
	if e.app.Cache.Len() != 0 {
		t.Error("session saved despite invalid payload")
	}
}

func TestSession_Edit(t *testing.T) {
	e := newTestEnv(t, nil)
	id := e.createSession("example.com", "old")

	if _, err := e.run("session", "edit", id); err == nil {
		t.Error("edit with no flags should fail")
	}

	var v sessionView
	e.runJSON(&v, "session", "edit", "--name", "new", id)
	if v.Name != "new" || v.Domain != "example.com" {
		t.Errorf("edit = %+v, want name changed only", v)
	}

	if _, err := e.run("session", "edit", "--name", "x", "sbl-missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("edit unknown error = %v, want ErrNotFound", err)
	}
}

func TestSession_Touch(t *testing.T) {
	e := newTestEnv(t, nil)
	id := e.createSession("example.com", "x")
	before, _ := e.app.Cache.Get(id)

	var v sessionView
	e.runJSON(&v, "session", "touch", id)
	if v.LastUsed < before.LastUsed {
		t.Errorf("LastUsed = %d, want >= %d", v.LastUsed, before.LastUsed)
	}
}

func TestSession_Delete(t *testing.T) {
	e := newTestEnv(t, nil)
	id := e.createSession("example.com", "x")

	withStdin(t, "n\n")
	out := e.mustRun("session", "delete", id)
	if !strings.Contains(out, "Cancelled") {
		t.Errorf("declined delete output = %q", out)
	}
	if _, err := e.app.Cache.Get(id); err != nil {
		t.Fatal("declined delete removed the session")
	}

	withStdin(t, "yes\n")
	e.mustRun("session", "rm", id)
	if _, err := e.app.Cache.Get(id); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestSession_MissingArgs(t *testing.T) {
	e := newTestEnv(t, nil)

	for _, args := range [][]string{
		{"session", "show"},
		{"session", "touch"},
		{"session", "delete", "--force"},
		{"session", "create", "--name", "x"},
	} {
		if _, err := e.run(args...); err == nil {
			t.Errorf("sessbox %s: want error", strings.Join(args, " "))
		}
	}
}

func TestSession_BlockedDomain(t *testing.T) {
	e := newTestEnv(t, nil)
	e.mustRun("blocklist", "add", "*.bank.example")

	_, err := e.run("session", "create", "--domain", "login.bank.example", "--name", "x")
	if !errors.Is(err, domain.ErrDomainBlocked) {
		t.Errorf("create on blocked domain error = %v, want ErrDomainBlocked", err)
	}
}
