package app

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		args []string
		want Command
	}{
		{[]string{}, CommandServe},
		{[]string{"serve"}, CommandServe},
		{[]string{"worker"}, CommandWorker},
		{[]string{"migrate"}, CommandMigrate},
		{[]string{"healthcheck"}, CommandHealthcheck},
		{[]string{"unknown"}, CommandServe},
	}
	for _, tt := range tests {
		if got := ParseCommand(tt.args); got != tt.want {
			t.Errorf("ParseCommand(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestParseArgs_Defaults(t *testing.T) {
	opts, err := ParseArgs(nil, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if opts.Command != CommandServe {
		t.Errorf("Command = %q, want %q", opts.Command, CommandServe)
	}
	if opts.EnvFile != ".env" {
		t.Errorf("EnvFile = %q, want %q", opts.EnvFile, ".env")
	}
}

func TestParseArgs_EnvFileAfterCommand(t *testing.T) {
	opts, err := ParseArgs([]string{"worker", "--env-file", "/etc/researchtracker.env"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if opts.Command != CommandWorker {
		t.Errorf("Command = %q, want %q", opts.Command, CommandWorker)
	}
	if opts.EnvFile != "/etc/researchtracker.env" {
		t.Errorf("EnvFile = %q", opts.EnvFile)
	}
}

func TestParseArgs_EnvFileBeforeCommand(t *testing.T) {
	opts, err := ParseArgs([]string{"--env-file=prod.env", "migrate"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if opts.Command != CommandMigrate || opts.EnvFile != "prod.env" {
		t.Errorf("unexpected options: %+v", opts)
	}
}

func TestParseArgs_Help(t *testing.T) {
	var buf bytes.Buffer
	_, err := ParseArgs([]string{"--help"}, &buf)
	if !errors.Is(err, pflag.ErrHelp) {
		t.Fatalf("expected pflag.ErrHelp, got %v", err)
	}
	if !strings.Contains(buf.String(), "--env-file") {
		t.Errorf("expected usage to list --env-file, got %q", buf.String())
	}
}

func TestParseArgs_UnknownFlag(t *testing.T) {
	if _, err := ParseArgs([]string{"--verbose"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}
