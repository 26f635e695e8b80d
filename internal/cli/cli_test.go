package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/marcelocantos/stagecraft/internal/audit"
	"github.com/marcelocantos/stagecraft/internal/stage"
	"github.com/marcelocantos/stagecraft/internal/store"
)

// env is a config file whose audit log and plugin directory live in a
// temp dir.
type env struct {
	dir    string
	config string
	audit  string
}

func newEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	e := env{
		dir:    dir,
		config: filepath.Join(dir, "config.yaml"),
		audit:  filepath.Join(dir, "audit.jsonl"),
	}
	body := fmt.Sprintf("plugins:\n  dir: %s\naudit:\n  path: %s\n", filepath.Join(dir, "plugins"), e.audit)
	require.NoError(t, os.WriteFile(e.config, []byte(body), 0o644))
	return e
}

type result struct {
	code   int
	stdout string
	stderr string
}

func (e env) run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	app := &App{
		Version: "test",
		Stdin:   strings.NewReader(stdin),
		Stdout:  &out,
		Stderr:  &errOut,
		Logger:  zap.NewNop(),
	}
	code := app.Run(context.Background(), append([]string{"--config", e.config}, args...))
	return result{code, out.String(), errOut.String()}
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
}

func TestParse(t *testing.T) {
	e := newEnv(t)
	r := e.run(t, "", "parse", "--", "echo 123 | sed s/1/one/g")
	require.Equal(t, 0, r.code, r.stderr)

	var mods []stage.EnhancedModule
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &mods))
	require.Len(t, mods, 2)
	assert.Equal(t, "echo", mods[0].Type)
	assert.Equal(t, stage.OpPipe, mods[0].Operator)
	assert.Equal(t, "s/1/one/g", mods[1].Fields.String("script"))
}

func TestParseFromStdinAndAST(t *testing.T) {
	e := newEnv(t)
	r := e.run(t, "ls | wc -l\n", "parse", "--ast", "-")
	require.Equal(t, 0, r.code, r.stderr)

	var tree map[string]any
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &tree))
	assert.Equal(t, "Script", tree["type"])
}

func TestParseError(t *testing.T) {
	e := newEnv(t)
	r := e.run(t, "", "parse", "--", "echo 'oops")
	assert.Equal(t, 2, r.code)
	assert.True(t, strings.HasPrefix(r.stderr, "stagecraft: "), r.stderr)

	r = e.run(t, "", "parse")
	assert.Equal(t, 2, r.code)
	assert.Contains(t, r.stderr, "no pipeline given")
}

func TestCompile(t *testing.T) {
	e := newEnv(t)
	in := `[{"type":"echo","text":"123","operator":"pipe"},{"type":"sed","script":"s/1/one/g"}]`
	r := e.run(t, in, "compile")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "echo 123 | sed s/1/one/g\n", r.stdout)

	r = e.run(t, `[{"type":"echo","noNewline":"yes"}]`, "compile", "-")
	assert.Equal(t, 2, r.code)
	assert.Contains(t, r.stderr, "stage 0")

	r = e.run(t, `not json`, "compile")
	assert.Equal(t, 2, r.code)
}

func TestCompileAST(t *testing.T) {
	e := newEnv(t)
	tree := e.run(t, "", "parse", "--ast", "--", "cat f && wc -l")
	require.Equal(t, 0, tree.code, tree.stderr)

	path := filepath.Join(e.dir, "tree.json")
	require.NoError(t, os.WriteFile(path, []byte(tree.stdout), 0o644))
	r := e.run(t, "", "compile", "--ast", path)
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "cat f && wc -l\n", r.stdout)
}

func TestRun(t *testing.T) {
	requireShell(t)
	e := newEnv(t)

	r := e.run(t, "", "run", "--", "echo 123 | sed s/1/one/g")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "one23\n", r.stdout)

	r = e.run(t, "", "run", "false")
	assert.Equal(t, 1, r.code)
	assert.Empty(t, r.stderr)

	r = e.run(t, "", "run", "--", "cat /nonexistent-stagecraft/x")
	assert.NotEqual(t, 0, r.code)
	assert.NotEmpty(t, r.stderr)
	assert.Empty(t, r.stdout)

	require.NoError(t, audit.Verify(e.audit))
	entries, err := audit.Tail(e.audit, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, audit.ModeRun, entries[0].Mode)
	assert.Equal(t, []string{"echo", "sed"}, entries[0].Stages)
	assert.NotEmpty(t, entries[0].RunID)
	assert.Equal(t, 1, entries[1].ExitCode)
}

func TestRunStages(t *testing.T) {
	requireShell(t)
	e := newEnv(t)

	file := filepath.Join(e.dir, "pipe.sh")
	require.NoError(t, store.Save(file, "echo 123 | sed s/1/one/g"))
	r := e.run(t, "", "run", "--stages", "-f", file)
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "[0] echo 123\n123\n[1] echo 123 | sed s/1/one/g\none23\n", r.stdout)

	entries, err := audit.Tail(e.audit, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ModeIncremental, entries[0].Mode)
	assert.NotEmpty(t, entries[0].RunID)
}

func TestEdit(t *testing.T) {
	e := newEnv(t)
	file := filepath.Join(e.dir, "pipe.sh")
	require.NoError(t, store.Save(file, "echo 123 | sed s/1/one/g"))

	steps := []struct {
		args []string
		want string
	}{
		{[]string{"--stage", "1", "--set", "script=s/2/two/g"}, "echo 123 | sed s/2/two/g"},
		{[]string{"--stage", "1", "--set", "quiet=true"}, "echo 123 | sed -n s/2/two/g"},
		{[]string{"--add", "wc"}, "echo 123 | sed -n s/2/two/g | wc"},
		{[]string{"--stage", "2", "--move", "0"}, "wc | echo 123 | sed -n s/2/two/g"},
		{[]string{"--stage", "0", "--remove"}, "echo 123 | sed -n s/2/two/g"},
	}
	for _, step := range steps {
		r := e.run(t, "", append([]string{"edit", "-f", file}, step.args...)...)
		require.Equal(t, 0, r.code, "%v: %s", step.args, r.stderr)
		assert.Equal(t, step.want+"\n", r.stdout)

		saved, err := store.Load(file)
		require.NoError(t, err)
		assert.Equal(t, step.want, saved)
	}
}

func TestEditErrors(t *testing.T) {
	e := newEnv(t)
	file := filepath.Join(e.dir, "pipe.sh")
	require.NoError(t, store.Save(file, "sed s/1/one/g"))

	tests := [][]string{
		{"edit"},
		{"edit", "-f", file},
		{"edit", "-f", file, "--set", "quiet=maybe"},
		{"edit", "-f", file, "--set", "novalue"},
		{"edit", "-f", file, "--stage", "4", "--set", "script=x"},
		{"edit", "-f", filepath.Join(e.dir, "missing.sh"), "--remove"},
	}
	for _, args := range tests {
		r := e.run(t, "", args...)
		assert.Equal(t, 2, r.code, "%v", args)
	}

	saved, err := store.Load(file)
	require.NoError(t, err)
	assert.Equal(t, "sed s/1/one/g", saved)
}

func TestStages(t *testing.T) {
	e := newEnv(t)

	r := e.run(t, "", "stages")
	require.Equal(t, 0, r.code)
	assert.Contains(t, r.stdout, "grep ")
	assert.Contains(t, r.stdout, "generic ")

	r = e.run(t, "", "stages", "grep")
	require.Equal(t, 0, r.code)
	assert.Contains(t, r.stdout, `"ignoreCase"`)

	r = e.run(t, "", "stages", "gre")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, `did you mean "grep"?`)
}

func TestScriptedPluginOverridesBuiltin(t *testing.T) {
	e := newEnv(t)
	plugins := filepath.Join(e.dir, "plugins")
	require.NoError(t, os.MkdirAll(plugins, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(plugins, "tr.star"), []byte(`
command = "tr"
description = "translate (scripted)"
fields = {"sets": "string"}

def parse(cmd):
    return {"sets": " ".join(cmd["args"])}

def compile(fields):
    return fields["sets"].split(" ")
`), 0o644))

	r := e.run(t, "", "stages")
	require.Equal(t, 0, r.code)
	assert.Contains(t, r.stdout, "translate (scripted)")

	r = e.run(t, "", "parse", "--", "tr a b")
	require.Equal(t, 0, r.code, r.stderr)
	var mods []stage.EnhancedModule
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &mods))
	require.Len(t, mods, 1)
	assert.Equal(t, stage.Fields{"sets": "a b"}, mods[0].Fields)
}

func TestAudit(t *testing.T) {
	e := newEnv(t)

	r := e.run(t, "", "audit", "tail")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "no audit entries\n", r.stdout)

	l, err := audit.NewLogger(e.audit)
	require.NoError(t, err)
	for _, cmd := range []string{"ls", "wc -l"} {
		_, err := l.Log(audit.Entry{Mode: audit.ModeRun, Command: cmd})
		require.NoError(t, err)
	}

	r = e.run(t, "", "audit", "verify")
	require.Equal(t, 0, r.code)
	assert.Equal(t, "audit log integrity verified\n", r.stdout)

	r = e.run(t, "", "audit", "tail", "-n", "1")
	require.Equal(t, 0, r.code)
	assert.Contains(t, r.stdout, `"command": "wc -l"`)
	assert.NotContains(t, r.stdout, `"command": "ls"`)

	require.NoError(t, os.WriteFile(e.audit, []byte("{}\n"), 0o600))
	r = e.run(t, "", "audit", "verify")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stdout, "FAILED")
}

func TestVersion(t *testing.T) {
	r := newEnv(t).run(t, "", "version")
	assert.Equal(t, 0, r.code)
	assert.Equal(t, "stagecraft test\n", r.stdout)
}

func TestBadConfig(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.WriteFile(e.config, []byte("log:\n  level: loud\n"), 0o644))
	r := e.run(t, "", "version")
	assert.Equal(t, 2, r.code)
	assert.Contains(t, r.stderr, "log level")
}

func TestResolveError(t *testing.T) {
	var a App
	var w bytes.Buffer
	assert.Equal(t, 0, a.resolveError(&w, nil))
	assert.Equal(t, 7, a.resolveError(&w, fmt.Errorf("wrapped: %w", &ExitError{Code: 7})))
	assert.Empty(t, w.String())
	assert.Equal(t, 2, a.resolveError(&w, errors.New("boom")))
	assert.Equal(t, "stagecraft: boom\n", w.String())
}

// syncBuffer is a bytes.Buffer safe for concurrent writers and readers.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestWatch(t *testing.T) {
	requireShell(t)
	e := newEnv(t)
	file := filepath.Join(e.dir, "pipe.sh")
	require.NoError(t, store.Save(file, "echo 123 | sed s/1/one/g"))

	var out syncBuffer
	app := &App{Stdout: &out, Stderr: &out, Logger: zap.NewNop()}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan int, 1)
	go func() {
		done <- app.Run(ctx, []string{"--config", e.config, "watch", "-f", file})
	}()

	waitFor := func(what string, poke func(i int)) {
		t.Helper()
		deadline := time.Now().Add(5 * time.Second)
		for i := 0; !strings.Contains(out.String(), what); i++ {
			if time.Now().After(deadline) {
				t.Fatalf("never saw %q in:\n%s", what, out.String())
			}
			if poke != nil {
				poke(i)
			}
			time.Sleep(50 * time.Millisecond)
		}
	}

	waitFor("[1] echo 123 | sed s/1/one/g\none23\n", nil)

	// Each save differs so that a save landing before the watch is set up
	// is still followed by one it sees.
	waitFor("| sed s/a/b/\nb", func(i int) {
		require.NoError(t, store.Save(file, fmt.Sprintf("echo a%d | sed s/a/b/", i)))
	})

	cancel()
	select {
	case code := <-done:
		assert.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
