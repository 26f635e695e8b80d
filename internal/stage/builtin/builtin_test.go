package builtin

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelocantos/stagecraft/internal/ast"
	"github.com/marcelocantos/stagecraft/internal/printer"
	"github.com/marcelocantos/stagecraft/internal/shparse"
	"github.com/marcelocantos/stagecraft/internal/stage"
)

var plain = printer.New(printer.Options{}, nil)

func parseCommand(t *testing.T, text string) *ast.Command {
	t.Helper()
	s, err := shparse.Parse(text)
	require.NoError(t, err)
	require.Len(t, s.Commands, 1)
	cmd, ok := s.Commands[0].(*ast.Command)
	require.True(t, ok, "not a command: %T", s.Commands[0])
	return cmd
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string // "" means same as text
	}{
		{"sed plain", "sed s/1/one/g", ""},
		{"sed quiet", "sed -n s/a/b/p", ""},
		{"sed files", "sed -E s/x/y/ a b", ""},
		{"grep flags", "grep -i -v foo", ""},
		{"grep combined", "grep -in foo", "grep -i -n foo"},
		{"grep long", "grep --ignore-case foo", "grep -i foo"},
		{"grep context", "grep -A 3 foo", ""},
		{"grep attached value", "grep -A3 foo", "grep -A 3 foo"},
		{"grep unknown long", "grep --color=auto foo", ""},
		{"grep dash pattern", "grep -- -x", ""},
		{"grep redirect", "grep foo >out", "grep >out foo"},
		{"head lines", "head -n 5", ""},
		{"head attached", "head -n5", "head -n 5"},
		{"head long eq", "head --lines=5", "head -n 5"},
		{"tail follow", "tail -f -n 20 log", "tail -n 20 -f log"},
		{"sort", "sort -r -n -k 2", ""},
		{"uniq", "uniq -c", ""},
		{"wc", "wc -l", ""},
		{"cut", "cut -d : -f 1", ""},
		{"tr", "tr a-z A-Z", ""},
		{"tr empty set1", "tr '' x", ""},
		{"cat", "cat -n a b", ""},
		{"jq", "jq -r .name", ""},
		{"awk", "awk -F : '{print $1}'", ""},
		{"awk assigns", "awk -v a=1 -v b=2 prog", ""},
		{"curl", "curl -s -H 'A: 1' -H 'B: 2' http://x", "curl -H 'A: 1' -H 'B: 2' -s http://x"},
		{"echo", "echo 123", ""},
		{"echo flags", "echo -n hi", ""},
		{"echo words", "echo hello world", "echo 'hello world'"},
		{"echo leading", "echo hi -n", "echo 'hi -n'"},
		{"xargs", "xargs -n 1 rm -f", ""},
		{"xargs double dash", "xargs -- rm -f", ""},
		{"echo double dash", "echo -- -n", "echo '-- -n'"},
		{"grep alternation", "grep 'a|b' f", ""},
		{"grep quote and pipe", `grep "it's|x"`, ""},
		{"sed two commands", "sed 's/x/y/;s/y/z/'", ""},
		{"sed anchor", "sed 's/$/!/'", ""},
		{"sed escaped dot", `sed 's/\./,/g'`, ""},
		{"cut backslash delimiter", `cut -d '\t' -f 2`, ""},
	}

	reg := stage.NewRegistry()
	RegisterAll(reg)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := tt.want
			if want == "" {
				want = tt.text
			}
			m := reg.Parse(parseCommand(t, tt.text))
			require.NoError(t, reg.Validate(m))
			got := plain.Print(reg.Compile(m))
			assert.Equal(t, want, got)

			// Compile is a left inverse of Parse.
			again := reg.Parse(parseCommand(t, got))
			if diff := cmp.Diff(m, again); diff != "" {
				t.Errorf("reparse mismatch (-first +second):\n%s", diff)
			}
		})
	}
}

func TestParseFields(t *testing.T) {
	tests := []struct {
		name string
		text string
		want stage.Fields
	}{
		{"sed", "sed -n s/1/one/g in", stage.Fields{
			"quiet": true, "extended": false, "inPlace": false,
			"script": "s/1/one/g", "files": "in", OptionsField: "",
		}},
		{"head default", "head", stage.Fields{
			"lines": "", "bytes": "", "files": "", OptionsField: "",
		}},
		{"tr surplus", "tr a b c", stage.Fields{
			"delete": false, "squeeze": false, "complement": false,
			"set1": "a", "set2": "b", OptionsField: "c",
		}},
		{"cut unknown", "cut -z -f 2", stage.Fields{
			"delimiter": "", "fields": "2", "characters": "", "bytes": "",
			"files": "", OptionsField: "-z",
		}},
		{"curl headers", "curl -H a -H b u", stage.Fields{
			"method": "", "headers": "a\nb", "data": "", "output": "", "user": "",
			"silent": false, "showError": false, "location": false,
			"include": false, "fail": false, "insecure": false,
			"url": "u", OptionsField: "",
		}},
		{"xargs", "xargs -I {} mv {} /tmp", stage.Fields{
			"maxArgs": "", "replace": "{}", "null": false, "parallel": "",
			"command": "mv {} /tmp", OptionsField: "",
		}},
	}

	reg := stage.NewRegistry()
	RegisterAll(reg)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := reg.Parse(parseCommand(t, tt.text))
			if diff := cmp.Diff(tt.want, m.Fields); diff != "" {
				t.Errorf("fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCombinedFlagWithValueIsUnknown(t *testing.T) {
	// -nA cannot be split: A takes a value.
	m := Grep.Parse(parseCommand(t, "grep -nA foo"))
	assert.Equal(t, "-nA", m.Fields.String(OptionsField))
	assert.False(t, m.Fields.Bool("lineNumber"))
	assert.Equal(t, "foo", m.Fields.String("pattern"))
}

func TestMissingValueAtEnd(t *testing.T) {
	m := Head.Parse(parseCommand(t, "head -n"))
	assert.Equal(t, "", m.Fields.String("lines"))
	assert.Equal(t, "-n", m.Fields.String(OptionsField))
}

func TestNewStageDefaults(t *testing.T) {
	reg := stage.NewRegistry()
	RegisterAll(reg)

	m := reg.New("sed")
	assert.Equal(t, "sed", m.Type)
	assert.Equal(t, "", m.Fields.String("script"))
	assert.Equal(t, "sed", plain.Print(reg.Compile(m)))
}

func TestRegisterAll(t *testing.T) {
	reg := stage.NewRegistry()
	RegisterAll(reg)
	want := []string{
		"awk", "cat", "curl", "cut", "echo", "grep", "head", "jq",
		"sed", "sort", "tail", "tr", "uniq", "wc", "xargs",
	}
	assert.Equal(t, want, reg.Names())
}

func TestSchemaRejectsWrongTypes(t *testing.T) {
	reg := stage.NewRegistry()
	RegisterAll(reg)

	m := reg.New("grep")
	m.Fields["ignoreCase"] = "yes"
	assert.Error(t, reg.Validate(m))

	m = reg.New("grep")
	m.Fields["bogus"] = "x"
	assert.Error(t, reg.Validate(m))
}

func TestCompileEditedFields(t *testing.T) {
	m := Sed.Parse(parseCommand(t, "sed s/1/one/g"))
	m.Fields["script"] = "s/2/two/g"
	m.Fields["quiet"] = true
	assert.Equal(t, "sed -n s/2/two/g", plain.Print(Sed.Compile(m)))
}
