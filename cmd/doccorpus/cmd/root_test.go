package cmd

import (
	"testing"

	"github.com/spf13/afero"
)

func TestOpenLogFile(t *testing.T) {
	tests := []struct {
		name       string
		appendMode bool
		want       string
	}{
		{"truncates previous run", false, "second\n"},
		{"appends when configured", true, "first\nsecond\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if err := afero.WriteFile(fs, "run.log", []byte("first\n"), 0o644); err != nil {
				t.Fatal(err)
			}

			f, err := openLogFile(fs, "run.log", tt.appendMode)
			if err != nil {
				t.Fatalf("openLogFile() error = %v", err)
			}
			if _, err := f.WriteString("second\n"); err != nil {
				t.Fatal(err)
			}
			f.Close()

			got, err := afero.ReadFile(fs, "run.log")
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.want {
				t.Errorf("log file = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpenLogFile_CreatesMissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	f, err := openLogFile(fs, "new.log", false)
	if err != nil {
		t.Fatalf("openLogFile() error = %v", err)
	}
	f.Close()

	if ok, _ := afero.Exists(fs, "new.log"); !ok {
		t.Error("expected the log file to be created")
	}
}
