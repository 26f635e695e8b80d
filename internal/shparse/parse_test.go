package shparse

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelocantos/stagecraft/internal/ast"
	"github.com/marcelocantos/stagecraft/internal/printer"
)

func TestParsePipeline(t *testing.T) {
	s, err := Parse("echo 123 | sed s/1/one/g")
	require.NoError(t, err)

	want := &ast.Script{Commands: []ast.Node{
		&ast.Pipeline{Commands: []ast.Node{
			ast.NewCommand("echo", "123"),
			ast.NewCommand("sed", "s/1/one/g"),
		}},
	}}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLongPipelineIsFlat(t *testing.T) {
	s, err := Parse("a | b | c | d")
	require.NoError(t, err)
	p, ok := s.Commands[0].(*ast.Pipeline)
	require.True(t, ok)
	var names []string
	for _, c := range p.Commands {
		names = append(names, c.(*ast.Command).CommandName())
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, names)
}

func TestParseBlank(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t", "# just a comment"} {
		s, err := Parse(text)
		require.NoError(t, err, "%q", text)
		assert.Equal(t, ast.EmptyScript(), s, "%q", text)
	}
}

func TestParseLogical(t *testing.T) {
	s, err := Parse("a && b || c")
	require.NoError(t, err)
	require.Len(t, s.Commands, 1)

	or, ok := s.Commands[0].(*ast.LogicalExpression)
	require.True(t, ok)
	assert.Equal(t, ast.OpOr, or.Op)
	and, ok := or.Left.(*ast.LogicalExpression)
	require.True(t, ok)
	assert.Equal(t, ast.OpAnd, and.Op)
	assert.Equal(t, "c", or.Right.(*ast.Command).CommandName())
}

func TestParseSequence(t *testing.T) {
	s, err := Parse("a; b\nc")
	require.NoError(t, err)
	assert.Len(t, s.Commands, 3)
}

func TestParseWords(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		want  string
		quote string
		exps  int
	}{
		{"plain", "x abc", "abc", "", 0},
		{"single", "x 'a b'", "a b", "'", 0},
		{"double", `x "a b"`, "a b", `"`, 0},
		{"escaped space", `x a\ b`, "a b", "'", 0},
		{"escaped dollar", `x \$HOME`, "$HOME", "'", 0},
		{"escape beside expansion", `x \$a$b`, "$a$b", `"`, 1},
		{"double escapes", `x "a\"b\\c"`, `a"b\c`, `"`, 0},
		{"param", "x $HOME", "$HOME", "", 1},
		{"param braces in double", `x "${HOME}/bin"`, "${HOME}/bin", `"`, 1},
		{"command subst", "x $(date +%s)", "$(date +%s)", "", 1},
		{"arith", "x $((1 + 2))", "$((1 + 2))", "", 1},
		{"mixed", `x pre'mid'"$v"`, "premid$v", `"`, 1},
		{"single beside expansion", "x 'a'$v", "a$v", `"`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse(tt.text)
			require.NoError(t, err)
			cmd := s.Commands[0].(*ast.Command)
			require.Len(t, cmd.Suffix, 1)
			w := cmd.Suffix[0].(*ast.Word)
			assert.Equal(t, tt.want, w.Text)
			assert.Equal(t, tt.quote, w.QuoteChar)
			assert.Len(t, w.Expansions, tt.exps)
		})
	}
}

func TestParseExpansionDetails(t *testing.T) {
	s, err := Parse("echo $(ls -l) ${USER} $((2*3))")
	require.NoError(t, err)
	cmd := s.Commands[0].(*ast.Command)
	require.Len(t, cmd.Suffix, 3)

	ce := cmd.Suffix[0].(*ast.Word).Expansions[0].(*ast.CommandExpansion)
	assert.Equal(t, "ls -l", ce.Command)
	pe := cmd.Suffix[1].(*ast.Word).Expansions[0].(*ast.ParameterExpansion)
	assert.Equal(t, "USER", pe.Parameter)
	ae := cmd.Suffix[2].(*ast.Word).Expansions[0].(*ast.ArithmeticExpansion)
	assert.Equal(t, "2*3", ae.Expression)
}

func TestParseAssignmentsAndRedirects(t *testing.T) {
	s, err := Parse("A=1 B=2 cmd x >out 2>&1")
	require.NoError(t, err)
	cmd := s.Commands[0].(*ast.Command)

	require.Len(t, cmd.Prefix, 2)
	assert.Equal(t, "A=1", cmd.Prefix[0].(*ast.AssignmentWord).Text)
	assert.Equal(t, "cmd", cmd.CommandName())
	assert.Equal(t, []string{"x"}, cmd.Args())

	rs := cmd.Redirects()
	require.Len(t, rs, 2)
	assert.Equal(t, ">", rs[0].Op)
	assert.Equal(t, "out", rs[0].File.Text)
	assert.Equal(t, "2>&", rs[1].Op)
	assert.Equal(t, "1", rs[1].File.Text)
}

func TestParseCompound(t *testing.T) {
	tests := []struct {
		text string
		typ  string
	}{
		{"(a; b)", ast.TypeSubshell},
		{"{ a; b; }", ast.TypeCompoundList},
		{"for x in a b; do echo $x; done", ast.TypeFor},
		{"case $x in a) echo a;; esac", ast.TypeCase},
		{"if a; then b; elif c; then d; else e; fi", ast.TypeIf},
		{"while a; do b; done", ast.TypeWhile},
		{"until a; do b; done", ast.TypeUntil},
		{"f() { echo hi; }", ast.TypeFunction},
		{"export A=1", ast.TypeCommand},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			s, err := Parse(tt.text)
			require.NoError(t, err)
			require.Len(t, s.Commands, 1)
			assert.Equal(t, tt.typ, s.Commands[0].Type())
		})
	}
}

func TestParseForWithoutIn(t *testing.T) {
	s, err := Parse("for x; do echo $x; done")
	require.NoError(t, err)
	f := s.Commands[0].(*ast.For)
	assert.Nil(t, f.WordList)

	s, err = Parse("for x in a; do echo $x; done")
	require.NoError(t, err)
	f = s.Commands[0].(*ast.For)
	assert.Len(t, f.WordList, 1)
}

func TestParseElif(t *testing.T) {
	s, err := Parse("if a; then b; elif c; then d; else e; fi")
	require.NoError(t, err)
	n := s.Commands[0].(*ast.If)
	elif, ok := n.Else.(*ast.If)
	require.True(t, ok)
	_, ok = elif.Else.(*ast.CompoundList)
	assert.True(t, ok)
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"echo 'unterminated",
		"a |",
		"sleep 1 &",
		"! true",
		"cat <<EOF\nx\nEOF",
		"for ((i=0; i<3; i++)); do echo; done",
		"echo $'\\n'",
		"a |& b",
		"(a) > out",
	}
	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			_, err := Parse(text)
			require.Error(t, err)
			var pe *ParseError
			assert.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
		})
	}
}

func TestPrintParseRoundTrip(t *testing.T) {
	p := printer.New(printer.Options{}, nil)
	tests := []string{
		"echo 123 | sed s/1/one/g",
		"a && b || c",
		"grep -i 'a b' file.txt | wc -l",
		`echo "$HOME/x" | cat`,
		"A=1 env 2>err",
		"for x in a b; do echo $x; done",
		"if a; then b; else c; fi",
		"(a; b)",
		"f() { echo hi; }",
		`echo a\;b | cat`,
		`echo \$HOME | cat`,
		`echo '$y'"$y"`,
	}
	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			s, err := Parse(text)
			require.NoError(t, err)
			printed := p.Print(s)
			again, err := Parse(printed)
			require.NoError(t, err, "reparse %q", printed)
			assert.Equal(t, printed, p.Print(again))
		})
	}
}

func TestPrintKeepsQuotedSyntaxLiteral(t *testing.T) {
	p := printer.New(printer.Options{}, nil)
	tests := []struct {
		text string
		want string
	}{
		{`echo a\;b | cat`, `echo 'a;b' | cat`},
		{`echo \$HOME | cat`, `echo '$HOME' | cat`},
		{`echo '$y'"$y"`, `echo "\$y$y"`},
		{`echo "$y"'$y'`, `echo "$y\$y"`},
		{`find . -name x -exec echo {} \;`, `find . -name x -exec echo {} ';'`},
		{`grep 'a|b' f`, `grep 'a|b' f`},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			s, err := Parse(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Print(s))
		})
	}
}

func TestParseRecordsExpansionOffsets(t *testing.T) {
	s, err := Parse(`echo '$y'"$y"`)
	require.NoError(t, err)
	w := s.Commands[0].(*ast.Command).Suffix[0].(*ast.Word)
	require.Len(t, w.Expansions, 1)
	pe := w.Expansions[0].(*ast.ParameterExpansion)
	assert.Equal(t, 2, pe.Pos)
	assert.Equal(t, "$y$y", w.Text)
}
