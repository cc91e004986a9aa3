package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHandlerEmitsAssemblyByDefault(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "sum.cm")
	output := filepath.Join(dir, "sum.s")

	source := `
		int main() {
			int n = 3;
			int s = 0;
			while (n > 0) {
				s = s + n;
				n = n - 1;
			}
			return s;
		}
	`
	if err := os.WriteFile(input, []byte(source), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	status := Handler(nil, map[string]string{"input_file": input, "output_file": output})
	if status != 0 {
		t.Fatalf("expected exit status 0, got %d", status)
	}

	got, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(got), "main:") {
		t.Fatalf("expected emitted assembly to contain a main: label, got:\n%s", got)
	}
}

func TestHandlerEmitsTac(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "add.cm")
	output := filepath.Join(dir, "add.tac")

	source := `
		int add(int a, int b) {
			return a + b;
		}
	`
	if err := os.WriteFile(input, []byte(source), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	status := Handler(nil, map[string]string{"input_file": input, "output_file": output, "emit": "tac"})
	if status != 0 {
		t.Fatalf("expected exit status 0, got %d", status)
	}

	got, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(got), "add:") {
		t.Fatalf("expected emitted TAC to contain an add: label, got:\n%s", got)
	}
}

func TestHandlerRunsOnTheTacVM(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "main.cm")

	source := `
		int main() {
			return 6;
		}
	`
	if err := os.WriteFile(input, []byte(source), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	status := Handler(nil, map[string]string{"input_file": input, "run": "true"})
	if status != 0 {
		t.Fatalf("expected exit status 0, got %d", status)
	}
}

func TestHandlerRejectsMissingInputFile(t *testing.T) {
	status := Handler(nil, map[string]string{})
	if status == 0 {
		t.Fatalf("expected a nonzero exit status without -i/--input_file")
	}
}
