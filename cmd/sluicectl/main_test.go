package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/wayneeseguin/sluice/pkg/features"
)

func runCommand(cmd *cobra.Command, args ...string) (stdout, stderr string, err error) {
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestCheckValidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sluice.yaml")
	writeFile(t, cfgPath, `
level: debug
format: text
appenders:
  - name: console
    kind: console
routes:
  - prefix: server
    appender: console
    level: warn
`)

	stdout, _, err := runCommand(checkCmd(), "-c", cfgPath)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(stdout, "configuration valid (1 appenders, 1 routes)") {
		t.Errorf("missing summary line in output:\n%s", stdout)
	}
	if !strings.Contains(stdout, "level: debug") {
		t.Errorf("effective configuration not rendered:\n%s", stdout)
	}
}

func TestCheckInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sluice.yaml")
	writeFile(t, cfgPath, `
level: shouting
appenders:
  - name: console
    kind: console
`)

	_, _, err := runCommand(checkCmd(), "-c", cfgPath)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "level") {
		t.Errorf("error does not name the bad field: %v", err)
	}
}

func TestCheckMissingFile(t *testing.T) {
	_, _, err := runCommand(checkCmd(), "-c", filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestPruneRemovesExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sluice.yaml")
	writeFile(t, cfgPath, fmt.Sprintf(`
appenders:
  - name: app
    kind: file
    path: %s
    rotation: day
    retention: 24h
`, filepath.Join(dir, "app.log")))

	layout := features.RotateDay.TokenLayout()
	expired := filepath.Join(dir, "app-20200101.log")
	fresh := filepath.Join(dir, "app-"+time.Now().Format(layout)+".log")
	unrelated := filepath.Join(dir, "notes.txt")
	writeFile(t, expired, "old\n")
	writeFile(t, fresh, "new\n")
	writeFile(t, unrelated, "keep\n")

	// Dry run reports the candidate but leaves it in place.
	stdout, _, err := runCommand(pruneCmd(), "-c", cfgPath, "--dry-run")
	if err != nil {
		t.Fatalf("prune --dry-run: %v", err)
	}
	if !strings.Contains(stdout, "would remove "+expired) {
		t.Errorf("dry run did not report the expired file:\n%s", stdout)
	}
	if _, err := os.Stat(expired); err != nil {
		t.Fatalf("dry run deleted the file: %v", err)
	}

	stdout, _, err = runCommand(pruneCmd(), "-c", cfgPath)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if !strings.Contains(stdout, "removed "+expired) {
		t.Errorf("prune did not report the removal:\n%s", stdout)
	}
	if _, err := os.Stat(expired); !os.IsNotExist(err) {
		t.Errorf("expired file still present (stat err %v)", err)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh file was removed: %v", err)
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Errorf("unrelated file was removed: %v", err)
	}
}

func TestPruneWithoutRetention(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sluice.yaml")
	writeFile(t, cfgPath, `
appenders:
  - name: console
    kind: console
`)

	stdout, _, err := runCommand(pruneCmd(), "-c", cfgPath)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if !strings.Contains(stdout, "no appenders with retention configured") {
		t.Errorf("unexpected output:\n%s", stdout)
	}
}
