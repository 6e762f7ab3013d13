package kernelsrc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParametersHeaderIsEmbedded(t *testing.T) {
	b, err := ParametersHeader()
	if err != nil {
		t.Fatalf("ParametersHeader: %v", err)
	}
	if len(b) == 0 {
		t.Fatal("ParametersHeader returned empty content")
	}
	if !strings.Contains(string(b), "restDensity") {
		t.Errorf("expected embedded header to mention the Parameters field layout, got:\n%s", b)
	}
}

func TestFileListIsNonEmptyAndUnique(t *testing.T) {
	files := FileList()
	if len(files) == 0 {
		t.Fatal("FileList returned no entries")
	}
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		if seen[f] {
			t.Errorf("duplicate kernel file name %q", f)
		}
		seen[f] = true
		if !strings.HasSuffix(f, ".cl") {
			t.Errorf("kernel file %q missing .cl suffix", f)
		}
	}
}

func TestValidateAcceptsDirectoryWithParametersHeader(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "parameters.hpp"), []byte("float h;\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if err := Validate(dir); err != nil {
		t.Errorf("Validate = %v, want nil", err)
	}
}

func TestValidateRejectsMissingParametersHeader(t *testing.T) {
	dir := t.TempDir()
	err := Validate(dir)
	if err == nil {
		t.Fatal("Validate = nil, want CompileError for missing parameters.hpp")
	}
	if _, ok := err.(*CompileError); !ok {
		t.Errorf("error = %T, want *CompileError", err)
	}
}

func TestValidateRejectsEmptyParametersHeader(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "parameters.hpp"), nil, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	err := Validate(dir)
	if err == nil {
		t.Fatal("Validate = nil, want CompileError for empty parameters.hpp")
	}
	if _, ok := err.(*CompileError); !ok {
		t.Errorf("error = %T, want *CompileError", err)
	}
}
