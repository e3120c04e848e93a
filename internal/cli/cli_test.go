package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storevec/internal/config"
	"storevec/internal/tui"
)

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

// isolate keeps the user's storevec.yaml and STOREVEC_* env out of a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	for _, kv := range os.Environ() {
		if k, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, "STOREVEC_") {
			t.Setenv(k, "")
			os.Unsetenv(k)
		}
	}
	return dir
}

func TestItemsFetch_SampleAsText(t *testing.T) {
	isolate(t)

	stdout, stderr, err := runCLI(t, []string{"items", "fetch", "--format", "text"})
	if err != nil {
		t.Fatalf("items fetch: %v\nstderr:\n%s", err, stderr)
	}
	lines := strings.Split(strings.TrimSpace(string(stdout)), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "great (") || !strings.HasPrefix(lines[1], "amasing (") {
		t.Fatalf("unexpected output:\n%s", stdout)
	}
}

func TestItemsSeedThenFetchFromSQLite(t *testing.T) {
	dir := isolate(t)
	db := filepath.Join(dir, "items.db")

	stdout, stderr, err := runCLI(t, []string{"items", "seed", "--sqlite-path", db, "--value", "one", "--value", "two", "--value", "three"})
	if err != nil {
		t.Fatalf("items seed: %v\nstderr:\n%s", err, stderr)
	}
	var seeded itemsEnvelope
	if err := json.Unmarshal(stdout, &seeded); err != nil {
		t.Fatalf("decode seed output: %v\n%s", err, stdout)
	}
	if seeded.Data.Count != 3 {
		t.Fatalf("expected 3 seeded items, got %+v", seeded.Data)
	}

	stdout, stderr, err = runCLI(t, []string{"items", "fetch", "--source", "sqlite", "--sqlite-path", db})
	if err != nil {
		t.Fatalf("items fetch: %v\nstderr:\n%s", err, stderr)
	}
	var fetched itemsEnvelope
	if err := json.Unmarshal(stdout, &fetched); err != nil {
		t.Fatalf("decode fetch output: %v\n%s", err, stdout)
	}
	if fetched.Data.Source != config.SourceSQLite || fetched.Data.Count != 3 {
		t.Fatalf("unexpected fetch data: %+v", fetched.Data)
	}
	for i, it := range fetched.Data.Items {
		if it.ID != seeded.Data.Items[i].ID || it.Value != seeded.Data.Items[i].Value {
			t.Fatalf("row %d: got %+v want %+v", i, it, seeded.Data.Items[i])
		}
	}
}

func TestItemsSeed_RequiresPath(t *testing.T) {
	isolate(t)
	_, stderr, err := runCLI(t, []string{"items", "seed"})
	if err == nil || !strings.Contains(string(stderr), "missing --sqlite-path") {
		t.Fatalf("expected missing path error, got err=%v stderr=%s", err, stderr)
	}
}

func TestConfigPrecedence_FlagOverEnvOverFile(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "storevec.yaml"), []byte("source: sqlite\nsqlite_path: from-file.db\nblocking: false\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var got tui.Options
	orig := runTUI
	runTUI = func(ctx context.Context, opts tui.Options) error {
		got = opts
		return nil
	}
	t.Cleanup(func() { runTUI = orig })

	t.Setenv("STOREVEC_STRICT_DELETES", "true")
	if _, stderr, err := runCLI(t, []string{"tui", "--source", "sample"}); err != nil {
		t.Fatalf("tui: %v\nstderr:\n%s", err, stderr)
	}
	if got.Resource == nil || got.Resource.Blocking() {
		t.Fatalf("expected non-blocking resource from the config file")
	}
	if !got.StrictDeletes {
		t.Fatalf("expected strict deletes from env")
	}
}

func TestUnknownSourceIsRejected(t *testing.T) {
	isolate(t)
	_, stderr, err := runCLI(t, []string{"items", "fetch", "--source", "ftp"})
	if err == nil || !strings.Contains(string(stderr), "unknown source") {
		t.Fatalf("expected unknown source error, got err=%v stderr=%s", err, stderr)
	}
}

func TestDocs_ListsTopicsAndPrintsRaw(t *testing.T) {
	isolate(t)

	stdout, _, err := runCLI(t, []string{"docs"})
	if err != nil {
		t.Fatalf("docs: %v", err)
	}
	if !strings.Contains(string(stdout), `"intro"`) {
		t.Fatalf("expected intro topic: %s", stdout)
	}

	stdout, _, err = runCLI(t, []string{"docs", "keys", "--raw"})
	if err != nil {
		t.Fatalf("docs keys: %v", err)
	}
	if !strings.Contains(string(stdout), "Delete the selected row") {
		t.Fatalf("unexpected keys doc: %s", stdout)
	}

	if _, _, err := runCLI(t, []string{"docs", "nope"}); err == nil {
		t.Fatalf("expected unknown topic error")
	}
}

func TestVersion_EDN(t *testing.T) {
	isolate(t)
	stdout, _, err := runCLI(t, []string{"version", "--format", "edn"})
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(string(stdout), "{:data {") || !strings.Contains(string(stdout), `:version "dev"`) {
		t.Fatalf("unexpected edn: %s", stdout)
	}
}

func TestChildTUIArgs_ForwardsResolvedConfig(t *testing.T) {
	cfg := config.Config{
		Source:        config.SourceSQLite,
		SQLitePath:    "/tmp/items.db",
		Blocking:      false,
		StrictDeletes: true,
	}
	got := strings.Join(childTUIArgs("", cfg), " ")
	want := "tui --source sqlite --blocking=false --strict=true --fetch-delay 0s --sqlite-path /tmp/items.db"
	if got != want {
		t.Fatalf("got  %q\nwant %q", got, want)
	}
}
