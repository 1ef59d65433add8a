package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hqlauncher/hq-installer/internal/config"
	"github.com/hqlauncher/hq-installer/internal/diff"
	"github.com/hqlauncher/hq-installer/internal/logging"
	"github.com/hqlauncher/hq-installer/internal/pipeline"
	"github.com/hqlauncher/hq-installer/internal/profile"
	"github.com/hqlauncher/hq-installer/internal/progress"
	"github.com/spf13/cobra"
)

func TestUsageArgsWrapsValidationErrors(t *testing.T) {
	wrapped := usageArgs(cobra.ExactArgs(1))
	cmd := &cobra.Command{Use: "test"}

	if err := wrapped(cmd, []string{"ok"}); err != nil {
		t.Fatalf("usageArgs returned unexpected error for valid args: %v", err)
	}

	err := wrapped(cmd, nil)
	if err == nil {
		t.Fatalf("usageArgs should return an error for invalid args")
	}
	if !isUsageError(err) {
		t.Fatalf("usageArgs error should be marked as usage error: %v", err)
	}
}

func TestIsUsageError(t *testing.T) {
	if !isUsageError(wrapUsageError(errors.New("bad args"))) {
		t.Fatalf("wrapped usage error not detected")
	}
	if !isUsageError(errors.New(`unknown command "foo" for "hq-installer"`)) {
		t.Fatalf("unknown command error should be treated as usage error")
	}
	if isUsageError(errors.New("runtime failure")) {
		t.Fatalf("runtime failure should not be treated as usage error")
	}
}

func TestFailureHint(t *testing.T) {
	auth := fmt.Errorf("install: %w", pipeline.ErrAuth)
	if hint := failureHint(auth); !strings.Contains(hint, "--username") {
		t.Fatalf("auth failure hint = %q, want --username guidance", hint)
	}
	if hint := failureHint(fmt.Errorf("x: %w", pipeline.ErrLink)); !strings.Contains(hint, "link") {
		t.Fatalf("link failure hint = %q", hint)
	}
	if hint := failureHint(errors.New("runtime failure")); hint != "" {
		t.Fatalf("unclassified error should have no hint, got %q", hint)
	}
}

func TestParseGameVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{in: "73", want: 73},
		{in: "v50", want: 50},
		{in: " 64 ", want: 64},
		{in: "0", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "v", wantErr: true},
		{in: "4294967296", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseGameVersion(tt.in)
		if tt.wantErr {
			if !isUsageError(err) {
				t.Fatalf("parseGameVersion(%q) error = %v, want usage error", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("parseGameVersion(%q) = %d, %v, want %d", tt.in, got, err, tt.want)
		}
	}
}

func resetGlobals() {
	dataDir, username, depotTool, cacheDir, logFile = "", "", "", "", ""
	concurrency, noCache, practice, verbose = 6, false, false, false
}

func TestApplyDefaultsPrecedence(t *testing.T) {
	resetGlobals()
	t.Cleanup(resetGlobals)

	fromProfile := "/profile/data"
	profConcurrency := 2
	profPractice := true
	p := &profile.Profile{DataDir: &fromProfile, Concurrency: &profConcurrency, Practice: &profPractice}
	env := config.Env{DataDir: "/env/data", SteamUsername: "env-user", CacheDir: "/env/cache"}

	// username and cache-dir come from the environment, data-dir from the
	// profile, concurrency from the command line.
	concurrency = 10
	changed := func(flag string) bool { return flag == "concurrency" }
	applyDefaults(changed, p, env)

	if dataDir != "/profile/data" {
		t.Fatalf("dataDir = %q, want profile value", dataDir)
	}
	if username != "env-user" || cacheDir != "/env/cache" {
		t.Fatalf("env values not applied: username=%q cacheDir=%q", username, cacheDir)
	}
	if concurrency != 10 {
		t.Fatalf("concurrency = %d, want flag value 10", concurrency)
	}
	if !practice {
		t.Fatalf("practice should come from the profile")
	}
}

func TestApplyDefaultsFallsBackToDefaultRoot(t *testing.T) {
	resetGlobals()
	t.Cleanup(resetGlobals)
	t.Setenv("XDG_DATA_HOME", "/xdg")

	applyDefaults(func(string) bool { return false }, nil, config.Env{})
	if dataDir != config.DefaultRoot() {
		t.Fatalf("dataDir = %q, want %q", dataDir, config.DefaultRoot())
	}

	dataDir = "/explicit"
	applyDefaults(func(flag string) bool { return flag == "data-dir" }, nil, config.Env{DataDir: "/env"})
	if dataDir != "/explicit" {
		t.Fatalf("explicit flag overridden: %q", dataDir)
	}
}

func TestModCacheDir(t *testing.T) {
	resetGlobals()
	t.Cleanup(resetGlobals)

	cacheDir = "/c"
	if modCacheDir() != "/c" {
		t.Fatalf("explicit cache dir ignored")
	}
	noCache = true
	if modCacheDir() != "" {
		t.Fatalf("--no-cache should disable caching")
	}
}

func TestProfileFromFlagsOnlyKeepsChanged(t *testing.T) {
	resetGlobals()
	t.Cleanup(resetGlobals)

	dataDir, username, concurrency = "/d", "runner", 3
	p := profileFromFlags(func(flag string) bool { return flag == "username" || flag == "concurrency" })

	if p.DataDir != nil {
		t.Fatalf("data-dir was not set on the command line")
	}
	if p.Username == nil || *p.Username != "runner" || p.Concurrency == nil || *p.Concurrency != 3 {
		t.Fatalf("unexpected profile: %+v", p)
	}

	username = "other"
	if *p.Username != "runner" {
		t.Fatalf("profile must not alias the flag variables")
	}
}

func TestLineSinkLogsEachStepOnce(t *testing.T) {
	var buf bytes.Buffer
	logging.SetOutput(&buf)
	t.Cleanup(func() { logging.SetOutput(nil) })

	s := &lineSink{}
	tr := progress.NewTracker(s, 73, []string{"Login Check", "Download Game"})
	tr.Step(1, 0, progress.Detail{Text: "Checking"})
	tr.Step(1, 1, progress.Detail{Text: "Logged in"})
	tr.Step(2, 0, progress.Detail{})
	tr.Finish("/root")

	out := buf.String()
	if strings.Count(out, "[1/2] Login Check") != 1 || strings.Count(out, "[2/2] Download Game") != 1 {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "Verbose:") {
		t.Fatalf("details should only be logged in verbose mode:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	if truncate("short", 10) != "short" {
		t.Fatalf("short strings should be unchanged")
	}
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Fatalf("truncate = %q", got)
	}
}

func TestWantedLabel(t *testing.T) {
	tests := []struct {
		change diff.ModChange
		want   string
	}{
		{diff.ModChange{Type: diff.Added}, "latest"},
		{diff.ModChange{Type: diff.Updated, NewVersion: "1.2.0"}, "1.2.0"},
		{diff.ModChange{Type: diff.Untracked, OldVersion: "1.0.0"}, "-"},
	}
	for _, tt := range tests {
		if got := wantedLabel(tt.change); got != tt.want {
			t.Fatalf("wantedLabel(%+v) = %q, want %q", tt.change, got, tt.want)
		}
	}
}

func TestFormatVersions(t *testing.T) {
	if formatVersions(nil) != "none" {
		t.Fatalf("empty list should read none")
	}
	if got := formatVersions([]uint32{50, 73}); got != "v50, v73" {
		t.Fatalf("formatVersions = %q", got)
	}
}
