package session

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

const modulePath = "github.com/sjawhar/interview-coach"

// cgoImports lists module-internal packages reachable from dir that pull in
// cgo, either directly or through the PortAudio bindings.
func cgoImports(t *testing.T, root, dir string, seen map[string]bool) []string {
	t.Helper()
	if seen[dir] {
		return nil
	}
	seen[dir] = true

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read %s: %v", dir, err)
	}
	var offenders []string
	fset := token.NewFileSet()
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		for _, spec := range file.Imports {
			path, _ := strconv.Unquote(spec.Path.Value)
			switch {
			case path == "C" || strings.Contains(path, "portaudio"):
				offenders = append(offenders, filepath.Join(dir, name)+" imports "+path)
			case strings.HasPrefix(path, modulePath+"/"):
				sub := filepath.Join(root, strings.TrimPrefix(path, modulePath+"/"))
				offenders = append(offenders, cgoImports(t, root, sub, seen)...)
			}
		}
	}
	return offenders
}

func TestSessionBuildsWithoutCgo(t *testing.T) {
	root, err := filepath.Abs(filepath.Join("..", ".."))
	if err != nil {
		t.Fatalf("resolve module root: %v", err)
	}
	offenders := cgoImports(t, root, ".", map[string]bool{})
	if len(offenders) != 0 {
		t.Fatalf("expected no cgo dependencies, got %v", offenders)
	}
}
