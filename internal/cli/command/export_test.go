package command

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestExportImport(t *testing.T) {
	src := newTestEnv(t, nil)
	withStdin(t, `{"cookies":[{"name":"sid","value":"v"}],"localStorage":{},"sessionStorage":{}}`)
	src.mustRun("session", "create", "--domain", "example.com", "--name", "work", "--payload", "-")
	src.createSession("other.example", "personal")

	path := filepath.Join(t.TempDir(), "sessions.json")
	src.mustRun("export", path)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("export file mode = %o, want 600", perm)
	}

	dst := newTestEnv(t, nil)
	dst.mustRun("blocklist", "add", "other.example")

	var res importResult
	dst.runJSON(&res, "import", path)
	if len(res.Imported) != 1 || len(res.Skipped) != 1 || res.Skipped[0] != "other.example" {
		t.Fatalf("import = %+v, want 1 imported and other.example skipped", res)
	}

	got, err := dst.app.Cache.Get(res.Imported[0])
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "work" || len(got.Payload.Cookies) != 1 || got.Payload.Cookies[0].Value != "v" {
		t.Errorf("imported session = %+v", got)
	}
	if !dst.app.Queue.HasPending(got.LocalID) {
		t.Error("imported session not queued for sync")
	}
}

func TestExport_Stdout(t *testing.T) {
	e := newTestEnv(t, nil)
	e.createSession("example.com", "x")
	e.createSession("other.example", "y")

	var arc archive
	if err := json.Unmarshal([]byte(e.mustRun("export", "--domain", "example.com")), &arc); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if arc.Version != archiveVersion || len(arc.Sessions) != 1 || arc.Sessions[0].Domain != "example.com" {
		t.Errorf("export = %+v", arc)
	}
}

func TestImport_Errors(t *testing.T) {
	e := newTestEnv(t, nil)
	dir := t.TempDir()

	bad := filepath.Join(dir, "v2.json")
	if err := os.WriteFile(bad, []byte(`{"version":2,"sessions":[]}`), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"no file", []string{"import"}},
		{"missing file", []string{"import", filepath.Join(dir, "nope.json")}},
		{"unsupported version", []string{"import", bad}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.run(tt.args...); err == nil {
				t.Error("want error")
			}
		})
	}
}
