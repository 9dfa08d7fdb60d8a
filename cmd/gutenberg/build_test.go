package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOutput(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		fname   string
		wantErr bool
	}{
		{"file", filepath.Join(dir, "out.md"), false},
		{"missing directory", filepath.Join(dir, "nope", "out.md"), true},
		{"directory as file", dir, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := output(tt.fname, "# Title\n")
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr {
				return
			}
			data, err := os.ReadFile(tt.fname)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(data) != "# Title\n" {
				t.Errorf("unexpected content %q", data)
			}
		})
	}
}
