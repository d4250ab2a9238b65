package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/panbanda/deadwood/pkg/config"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to create file %s: %v", name, err)
		}
	}
}

func relSet(root string, paths []string) map[string]bool {
	found := make(map[string]bool, len(paths))
	for _, p := range paths {
		rel, _ := filepath.Rel(root, p)
		found[rel] = true
	}
	return found
}

func TestNewScanner(t *testing.T) {
	s := NewScanner(nil)
	if s == nil {
		t.Fatal("NewScanner(nil) returned nil")
	}
	if s.config == nil {
		t.Error("scanner.config should not be nil when passing nil")
	}

	cfg := config.DefaultConfig()
	s = NewScanner(cfg)
	if s.config != cfg {
		t.Error("scanner.config should be the provided config")
	}
}

func TestScanDir(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{
		"app/Main.json":      "{}",
		"app/Util.yaml":      "name: app/Util\n",
		"lib/deps.jar":       "",
		"README.md":          "# readme\n",
		"app/Main.class.txt": "",
	})

	s := NewScanner(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	if len(result) != 3 {
		t.Errorf("ScanDir() found %d files, want 3: %v", len(result), result)
	}
	found := relSet(tmpDir, result)
	for _, name := range []string{"app/Main.json", "app/Util.yaml", "lib/deps.jar"} {
		if !found[filepath.FromSlash(name)] {
			t.Errorf("File %s was not found", name)
		}
	}

	for i := 1; i < len(result); i++ {
		if result[i-1] > result[i] {
			t.Errorf("ScanDir() result is not sorted: %v", result)
		}
	}
}

func TestScanDirExcludesDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{
		"app/Main.json":             "{}",
		"vendor/lib/Dep.json":       "{}",
		"node_modules/x/index.json": "{}",
		".deadwood/cache/abc.json":  "{}",
	})

	s := NewScanner(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	if len(result) != 1 {
		t.Errorf("ScanDir() found %d files, want 1: %v", len(result), result)
	}
}

func TestScanDirExcludesPatterns(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{
		"app/Main.json":        "{}",
		"app/unit.schema.json": "{}",
		"deadwood.yaml":        "analysis: {}\n",
		"generated/Gen.json":   "{}",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Patterns = append(cfg.Exclude.Patterns, "generated/")

	s := NewScanner(cfg)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	found := relSet(tmpDir, result)
	if len(found) != 1 || !found[filepath.Join("app", "Main.json")] {
		t.Errorf("ScanDir() = %v, want only app/Main.json", result)
	}
}

func TestScanDirWithGitignore(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(tmpDir, ".git"), 0755); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, tmpDir, map[string]string{
		".gitignore":       "skipme\n",
		"Main.json":        "{}",
		"skipme/Skip.json": "{}",
		"src/App.json":     "{}",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Gitignore = true

	s := NewScanner(cfg)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	found := relSet(tmpDir, result)
	if !found["Main.json"] {
		t.Error("Should find Main.json")
	}
	if !found[filepath.Join("src", "App.json")] {
		t.Error("Should find src/App.json")
	}
	if found[filepath.Join("skipme", "Skip.json")] {
		t.Error("Should skip files ignored by .gitignore")
	}
}

func TestScanDirDisabledGitignore(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(tmpDir, ".git"), 0755); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, tmpDir, map[string]string{
		".gitignore":        "ignored/\n",
		"ignored/File.json": "{}",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Gitignore = false

	s := NewScanner(cfg)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	if len(result) != 1 || filepath.Base(result[0]) != "File.json" {
		t.Errorf("With gitignore disabled, should find files in 'ignored' directory, got %v", result)
	}
}

func TestScanDirEmptyDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	s := NewScanner(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("ScanDir() on empty dir = %v", result)
	}
}

func TestScanDirMissingRoot(t *testing.T) {
	s := NewScanner(nil)
	if _, err := s.ScanDir("/nonexistent/deadwood/root"); err == nil {
		t.Error("ScanDir() should fail for a missing root")
	}
}

func TestScanFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{
		"Main.json":        "{}",
		"notes.txt":        "",
		"unit.schema.json": "{}",
	})

	s := NewScanner(nil)
	tests := []struct {
		name string
		want bool
	}{
		{"Main.json", true},
		{"notes.txt", false},
		// Explicitly named files bypass exclusion patterns.
		{"unit.schema.json", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ScanFile(filepath.Join(tmpDir, tt.name))
			if err != nil {
				t.Fatalf("ScanFile() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ScanFile(%s) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	if ok, err := s.ScanFile(tmpDir); err != nil || ok {
		t.Errorf("ScanFile(dir) = %v, %v, want false, nil", ok, err)
	}
}

func TestScanFileNonExistent(t *testing.T) {
	s := NewScanner(nil)
	if _, err := s.ScanFile("/nonexistent/Main.json"); err == nil {
		t.Error("ScanFile() should fail for nonexistent file")
	}
}

func TestFilterBySize(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{
		"small.json": "{}",
		"large.json": `{"name": "a/VeryLargeClassNameThatExceedsTheLimit"}`,
	})
	small := filepath.Join(tmpDir, "small.json")
	large := filepath.Join(tmpDir, "large.json")
	missing := filepath.Join(tmpDir, "missing.json")

	files := []string{small, large, missing}

	kept, skipped := FilterBySize(files, 0)
	if len(kept) != 3 || skipped != nil {
		t.Errorf("FilterBySize(0) = %v, %v, want unchanged", kept, skipped)
	}

	kept, skipped = FilterBySize(files, 10)
	if len(kept) != 1 || kept[0] != small {
		t.Errorf("FilterBySize(10) kept %v, want [%s]", kept, small)
	}
	if len(skipped) != 2 {
		t.Errorf("FilterBySize(10) skipped %v, want large and missing", skipped)
	}
}

func TestIsWithinRoot(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		path string
		root string
		want bool
	}{
		{"same path", tmpDir, tmpDir, true},
		{"child path", filepath.Join(tmpDir, "subdir", "Main.json"), tmpDir, true},
		{"path outside root", "/some/other/path", tmpDir, false},
		{"parent path", filepath.Dir(tmpDir), tmpDir, false},
		{"similar prefix but different dir", tmpDir + "2/Main.json", tmpDir, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isWithinRoot(tt.path, tt.root); got != tt.want {
				t.Errorf("isWithinRoot(%q, %q) = %v, want %v", tt.path, tt.root, got, tt.want)
			}
		})
	}
}

func TestFindGitRoot(t *testing.T) {
	tmpDir := t.TempDir()
	if result := findGitRoot(tmpDir); result != "" {
		t.Errorf("findGitRoot() on non-git dir should return empty string, got %q", result)
	}

	if err := os.Mkdir(filepath.Join(tmpDir, ".git"), 0755); err != nil {
		t.Fatalf("Failed to create .git dir: %v", err)
	}
	if result := findGitRoot(tmpDir); result != tmpDir {
		t.Errorf("findGitRoot() should return %q, got %q", tmpDir, result)
	}

	subDir := filepath.Join(tmpDir, "classes", "app")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}
	if result := findGitRoot(subDir); result != tmpDir {
		t.Errorf("findGitRoot() from subdir should return %q, got %q", tmpDir, result)
	}
}

func TestScanDirWithUnresolvableSymlink(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.Symlink("/nonexistent/path/Gone.json", filepath.Join(tmpDir, "Dangling.json")); err != nil {
		t.Skip("Symlinks not supported on this system")
	}
	writeFiles(t, tmpDir, map[string]string{"Real.json": "{}"})

	s := NewScanner(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	if len(result) != 1 {
		t.Errorf("ScanDir() should find 1 file (skipping dangling symlink), got %v", result)
	}
}

func TestScanDirWithSymlinkOutsideRoot(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{"real/Inside.json": "{}"})

	outsideDir := t.TempDir()
	writeFiles(t, outsideDir, map[string]string{"Outside.json": "{}"})

	if err := os.Symlink(filepath.Join(outsideDir, "Outside.json"), filepath.Join(tmpDir, "Linked.json")); err != nil {
		t.Skip("Symlinks not supported on this system")
	}

	s := NewScanner(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	for _, f := range result {
		if filepath.Base(f) == "Linked.json" {
			t.Error("ScanDir() should not follow symlinks outside the root directory")
		}
	}
}
