package script

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/marcelocantos/stagecraft/internal/ast"
	"github.com/marcelocantos/stagecraft/internal/stage"
)

const jqPlugin = `
command = "jq"
description = "JSON processor (scripted)"
fields = {"filter": "string", "raw": "boolean"}

def parse(cmd):
    raw = False
    filter = ""
    for a in cmd["args"]:
        if a == "-r":
            raw = True
        else:
            filter = a
    return {"filter": filter, "raw": raw}

def compile(fields):
    out = []
    if fields["raw"]:
        out.append("-r")
    if fields["filter"]:
        out.append(fields["filter"])
    return out
`

func writePlugin(t *testing.T, dir, name, src string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
}

func TestLoadSourceRoundTrip(t *testing.T) {
	p, err := LoadSource("jq.star", []byte(jqPlugin), nil)
	require.NoError(t, err)
	assert.Equal(t, "jq", p.CommandName())
	assert.Equal(t, "JSON processor (scripted)", p.Description())

	m := p.Parse(ast.NewCommand("jq", "-r", ".name"))
	assert.Equal(t, stage.Module{
		Type:   "jq",
		Fields: stage.Fields{"filter": ".name", "raw": true},
	}, m)

	cmd := p.Compile(m)
	assert.Equal(t, "jq", cmd.CommandName())
	assert.Equal(t, []string{"-r", ".name"}, cmd.Args())
}

func TestSchemaFromFields(t *testing.T) {
	p, err := LoadSource("jq.star", []byte(jqPlugin), nil)
	require.NoError(t, err)

	reg := stage.NewRegistry()
	reg.Register(p)
	assert.NoError(t, reg.Validate(stage.Module{Type: "jq", Fields: stage.Fields{"filter": ".", "raw": false}}))
	assert.Error(t, reg.Validate(stage.Module{Type: "jq", Fields: stage.Fields{"raw": "yes"}}))
}

func TestNoFieldsMeansNoSchema(t *testing.T) {
	src := `
command = "x"
def parse(cmd):
    return {}
def compile(fields):
    return []
`
	p, err := LoadSource("x.star", []byte(src), nil)
	require.NoError(t, err)
	assert.Nil(t, p.Schema())
}

func TestLoadSourceErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", "command = \n"},
		{"no command", "def parse(c):\n    return {}\ndef compile(f):\n    return []\n"},
		{"no parse", "command = \"x\"\ndef compile(f):\n    return []\n"},
		{"parse not callable", "command = \"x\"\nparse = 1\ndef compile(f):\n    return []\n"},
		{"bad fields", "command = \"x\"\nfields = {\"a\": \"int\"}\ndef parse(c):\n    return {}\ndef compile(f):\n    return []\n"},
		{"infinite loop", "def f():\n    for i in range(1000000000):\n        pass\nf()\ncommand = \"x\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSource("bad.star", []byte(tt.src), nil)
			assert.Error(t, err)
		})
	}
}

func TestParseFailureDegrades(t *testing.T) {
	src := `
command = "boom"
fields = {"level": "string"}
def parse(cmd):
    fail("nope")
def compile(fields):
    return 42
`
	core, logs := observer.New(zap.WarnLevel)
	p, err := LoadSource("boom.star", []byte(src), zap.New(core))
	require.NoError(t, err)
	reg := stage.NewRegistry()
	reg.Register(p)

	m := p.Parse(ast.NewCommand("boom", "a", "b"))
	assert.Equal(t, stage.Module{
		Type:   stage.GenericType,
		Fields: stage.Fields{"command": "boom", "args": "a b"},
	}, m)
	require.NoError(t, reg.Validate(m))
	assert.Equal(t, []string{"a", "b"}, reg.Compile(m).Args())

	cmd := p.Compile(stage.Module{Type: "boom", Fields: stage.Fields{"args": "a b"}})
	assert.Equal(t, "boom", cmd.CommandName())
	assert.Equal(t, []string{"a", "b"}, cmd.Args())

	assert.Equal(t, 1, logs.FilterMessage("plugin parse failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("plugin compile failed").Len())
}

func TestLoadDirOverridesBuiltins(t *testing.T) {
	dir := t.TempDir()
	writePlugin(t, dir, "jq.star", jqPlugin)
	writePlugin(t, dir, "broken.star", "command = (\n")
	writePlugin(t, dir, "notes.txt", "ignored")

	plugins, err := Load(dir, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.star")
	require.Len(t, plugins, 1)

	reg := stage.NewRegistry()
	reg.Register(&fakeBuiltin{})
	Register(reg, plugins)

	p, ok := reg.Lookup("jq")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "jq.star"), p.(*Plugin).File())
}

func TestLoadMissingDir(t *testing.T) {
	plugins, err := Load(filepath.Join(t.TempDir(), "nope"), nil)
	require.NoError(t, err)
	assert.Empty(t, plugins)
}

type fakeBuiltin struct{}

func (fakeBuiltin) CommandName() string               { return "jq" }
func (fakeBuiltin) Description() string               { return "builtin" }
func (fakeBuiltin) Parse(*ast.Command) stage.Module   { return stage.Module{Type: "jq"} }
func (fakeBuiltin) Compile(stage.Module) *ast.Command { return ast.NewCommand("jq") }
func (fakeBuiltin) Schema() map[string]any            { return nil }

func TestCompileQuotesShellSyntax(t *testing.T) {
	src := `
command = "filt"
fields = {"expr": "string"}
def parse(cmd):
    return {"expr": " ".join(cmd["args"])}
def compile(fields):
    return [fields["expr"]]
`
	p, err := LoadSource("filt.star", []byte(src), nil)
	require.NoError(t, err)

	cmd := p.Compile(stage.Module{Type: "filt", Fields: stage.Fields{"expr": "a|b"}})
	require.Len(t, cmd.Suffix, 1)
	w := cmd.Suffix[0].(*ast.Word)
	assert.Equal(t, "a|b", w.Text)
	assert.Equal(t, "'", w.QuoteChar)
}
