package pandoc

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type mockRunner struct {
	stdout     string
	stderr     string
	err        error
	calledWith []string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) (string, string, error) {
	m.calledWith = append([]string{name}, args...)
	return m.stdout, m.stderr, m.err
}

func TestNew_DefaultBinary(t *testing.T) {
	t.Parallel()

	if c := New(""); c.Path != DefaultBinary {
		t.Errorf("Path = %q, want %q", c.Path, DefaultBinary)
	}
	if c := New("/opt/pandoc"); c.Path != "/opt/pandoc" {
		t.Errorf("Path = %q, want %q", c.Path, "/opt/pandoc")
	}
}

func TestToLaTeX_Success(t *testing.T) {
	t.Parallel()

	mock := &mockRunner{stdout: "converted body\n"}
	c := &Converter{Path: "pandoc", Runner: mock}

	out, err := c.ToLaTeX(context.Background(), "<p>Hello</p>", "/tmp/filter.lua")
	if err != nil {
		t.Fatalf("ToLaTeX() error = %v", err)
	}
	if out != "converted body\n" {
		t.Errorf("output = %q", out)
	}

	// pandoc <tmp> -f html -t latex --lua-filter <filter>
	args := mock.calledWith
	if len(args) != 8 {
		t.Fatalf("called with %d args: %v", len(args), args)
	}
	if args[0] != "pandoc" {
		t.Errorf("binary = %q", args[0])
	}
	want := []string{"-f", "html", "-t", "latex", "--lua-filter", "/tmp/filter.lua"}
	got := args[2:]
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("arg %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestToLaTeX_FailureAttachesStderr(t *testing.T) {
	t.Parallel()

	mock := &mockRunner{
		stderr: "pandoc: unknown filter function",
		err:    errors.New("exit status 83"),
	}
	c := &Converter{Path: "pandoc", Runner: mock}

	_, err := c.ToLaTeX(context.Background(), "<p>x</p>", "f.lua")
	if !errors.Is(err, ErrConvert) {
		t.Fatalf("error = %v, want ErrConvert", err)
	}
	if !strings.Contains(err.Error(), "unknown filter function") {
		t.Errorf("stderr not attached: %v", err)
	}
}

func TestToLaTeX_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := &mockRunner{err: errors.New("signal: killed")}
	c := &Converter{Path: "pandoc", Runner: mock}

	_, err := c.ToLaTeX(ctx, "<p>x</p>", "f.lua")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrConvert) {
		t.Errorf("cancellation misreported as conversion failure: %v", err)
	}
}
