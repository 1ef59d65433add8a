package archive

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip Create failed: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip Write failed: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	return string(data)
}

func TestRequireZip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "good.zip")
	writeZip(t, good, map[string]string{"a.txt": "a"})
	if err := RequireZip(good); err != nil {
		t.Fatalf("RequireZip(good) failed: %v", err)
	}

	for name, content := range map[string]string{
		"html.zip":  "<html>502</html>",
		"short.zip": "P",
		"empty.zip": "",
	} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		if err := RequireZip(path); !errors.Is(err, ErrNotZip) {
			t.Fatalf("RequireZip(%s) = %v, want ErrNotZip", name, err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("%s should have been deleted", name)
		}
	}
}

func TestExtractPackageFlattens(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	zipPath := filepath.Join(dir, "pack.zip")
	writeZip(t, zipPath, map[string]string{
		"manifest.json":                        "{}",
		"icon.png":                             "png",
		"BepInExPack/winhttp.dll":              "dll",
		"BepInExPack/BepInEx/core/BepInEx.dll": "core",
		"BepInExPack\\doorstop_config.ini":     "ini",
	})

	dest := filepath.Join(dir, "out")
	var calls, lastTotal int
	err := ExtractPackage(context.Background(), zipPath, dest, func(done, total int, name string) {
		calls++
		lastTotal = total
		if done != calls {
			t.Errorf("done = %d, want %d", done, calls)
		}
	})
	if err != nil {
		t.Fatalf("ExtractPackage failed: %v", err)
	}
	if calls != 3 || lastTotal != 3 {
		t.Fatalf("progress calls=%d total=%d, want 3 and 3", calls, lastTotal)
	}
	if got := readFile(t, filepath.Join(dest, "BepInEx", "core", "BepInEx.dll")); got != "core" {
		t.Fatalf("core dll = %q", got)
	}
	if got := readFile(t, filepath.Join(dest, "doorstop_config.ini")); got != "ini" {
		t.Fatalf("doorstop config = %q", got)
	}
	for _, name := range []string{"manifest.json", "icon.png", "BepInExPack"} {
		if _, err := os.Stat(filepath.Join(dest, name)); !os.IsNotExist(err) {
			t.Fatalf("%s should not be extracted", name)
		}
	}
}

func TestExtractAddOnlyKeepsExisting(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	zipPath := filepath.Join(dir, "config.zip")
	writeZip(t, zipPath, map[string]string{
		"BepInEx.cfg":    "NEW",
		"mods/extra.cfg": "X",
	})

	dest := filepath.Join(dir, "shared")
	if err := os.MkdirAll(dest, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dest, "BepInEx.cfg"), []byte("OLD"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := ExtractAddOnly(context.Background(), zipPath, dest, nil); err != nil {
		t.Fatalf("ExtractAddOnly failed: %v", err)
	}
	if got := readFile(t, filepath.Join(dest, "BepInEx.cfg")); got != "OLD" {
		t.Fatalf("existing file overwritten: %q", got)
	}
	if got := readFile(t, filepath.Join(dest, "mods", "extra.cfg")); got != "X" {
		t.Fatalf("new file = %q, want X", got)
	}
}

func TestExtractAllOverwrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	zipPath := filepath.Join(dir, "mod.zip")
	writeZip(t, zipPath, map[string]string{"plugin.dll": "v2"})
	if err := os.WriteFile(filepath.Join(dir, "plugin.dll"), []byte("v1"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := ExtractAll(context.Background(), zipPath, dir, nil); err != nil {
		t.Fatalf("ExtractAll failed: %v", err)
	}
	if got := readFile(t, filepath.Join(dir, "plugin.dll")); got != "v2" {
		t.Fatalf("plugin = %q, want v2", got)
	}
}

func TestExtractSkipsTraversal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	writeZip(t, zipPath, map[string]string{"../escape.txt": "bad", "ok.txt": "ok"})

	dest := filepath.Join(dir, "out")
	if err := ExtractAll(context.Background(), zipPath, dest, nil); err != nil {
		t.Fatalf("ExtractAll failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); !os.IsNotExist(err) {
		t.Fatalf("traversal entry was written")
	}
	if got := readFile(t, filepath.Join(dest, "ok.txt")); got != "ok" {
		t.Fatalf("ok.txt = %q", got)
	}
}

func TestExtractHonorsCancellation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	zipPath := filepath.Join(dir, "a.zip")
	writeZip(t, zipPath, map[string]string{"a.txt": "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := ExtractAll(ctx, zipPath, filepath.Join(dir, "out"), nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("ExtractAll error = %v, want context.Canceled", err)
	}
}
