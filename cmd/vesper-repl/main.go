// vesper-repl is an interactive line interface over the Vesper
// frontend: it lexes, parses and type checks whatever is typed,
// buffering lines until braces balance.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/vesper-lang/vesper/internal/cli"
	"github.com/vesper-lang/vesper/internal/diag"
	"github.com/vesper-lang/vesper/internal/lexer"
	"github.com/vesper-lang/vesper/internal/parser"
	"github.com/vesper-lang/vesper/internal/source"
)

const (
	historyFile = ".vesper_history"
	promptMain  = "vsp> "
	promptCont  = "...> "
)

const helpText = `REPL commands:
  :check <code>    Type check (the default for bare input)
  :tokens <code>   List the token stream
  :ast <code>      Print the structural AST dump
  :help            Show this help
  :quit            Exit the REPL
`

func main() {
	fmt.Printf("Vesper %s REPL. Type :help for commands, :quit to exit.\n", cli.Version)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	histPath := historyPath()
	if f, err := os.Open(histPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	for {
		input, ok := readInput(line)
		if !ok {
			return
		}
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		cmd, rest := splitCommand(input)
		switch cmd {
		case ":quit", ":q":
			return
		case ":help":
			fmt.Print(helpText)
		case ":tokens":
			showTokens(rest)
		case ":ast":
			showAST(rest)
		case ":check", "":
			check(rest)
		default:
			fmt.Printf("unknown command %s, try :help\n", cmd)
		}
	}
}

// readInput collects one logical input, continuing onto further lines
// while braces or parens stay open. The second result is false when
// the session should end.
func readInput(line *liner.State) (string, bool) {
	var buf strings.Builder
	prompt := promptMain
	for {
		text, err := line.Prompt(prompt)
		switch err {
		case nil:
		case liner.ErrPromptAborted:
			return "", true // Ctrl+C cancels the current input
		default:
			return "", false // Ctrl+D or a terminal error ends the session
		}

		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(text)
		if openDelims(buf.String()) <= 0 {
			return strings.TrimSpace(buf.String()), true
		}
		prompt = promptCont
	}
}

// openDelims counts unclosed braces, brackets and parens, skipping
// string literals and comments so a brace in a string does not hold
// the prompt open.
func openDelims(s string) int {
	depth := 0
	inStr := false
	inLine := false
	inBlock := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case inLine:
			if ch == '\n' {
				inLine = false
			}
		case inBlock:
			if ch == '*' && i+1 < len(s) && s[i+1] == '/' {
				inBlock = false
				i++
			}
		case inStr:
			if ch == '\\' {
				i++
			} else if ch == '"' {
				inStr = false
			}
		case ch == '"':
			inStr = true
		case ch == '/' && i+1 < len(s) && s[i+1] == '/':
			inLine = true
			i++
		case ch == '/' && i+1 < len(s) && s[i+1] == '*':
			inBlock = true
			i++
		case ch == '{' || ch == '(' || ch == '[':
			depth++
		case ch == '}' || ch == ')' || ch == ']':
			depth--
		}
	}
	return depth
}

// splitCommand separates a leading :command from its argument text.
// Bare input comes back with an empty command.
func splitCommand(input string) (string, string) {
	if !strings.HasPrefix(input, ":") {
		return "", input
	}
	cmd, rest, _ := strings.Cut(input, " ")
	return cmd, strings.TrimSpace(rest)
}

// replFile wraps the typed text as an in-memory unit
const replFile = "repl.vsp"

func showTokens(code string) {
	file := source.NewFile(replFile, code)
	sink := diag.NewSink()
	stream := lexer.NewStream(file, sink)
	for !stream.AtEnd() {
		tok, err := stream.Pull()
		if err != nil {
			fmt.Printf("%s\n", err)
			return
		}
		fmt.Printf("%-8s %s\n", tok.Span.Start, tok.DebugString())
	}
	render(file, sink)
}

func showAST(code string) {
	session := parser.NewSharedState(source.MapLoader{replFile: code})
	unit, err := session.ParseRoot(replFile)
	if err != nil {
		fmt.Printf("%s\n", err)
		return
	}
	if unit.AST() != nil {
		fmt.Println(unit.AST().DebugFmt(0))
	}
	renderSession(session)
}

func check(code string) {
	session := parser.NewSharedState(source.MapLoader{replFile: code})
	if _, err := session.ParseRoot(replFile); err != nil {
		fmt.Printf("%s\n", err)
		return
	}
	renderSession(session)
	if !session.Sink().HasErrors() {
		fmt.Println("ok")
	}
}

func render(file *source.File, sink *diag.Sink) {
	r := diag.NewRenderer(true)
	r.AddFile(file)
	r.Render(os.Stdout, sink.Messages())
}

func renderSession(session *parser.SharedState) {
	r := diag.NewRenderer(true)
	for _, f := range session.Files() {
		r.AddFile(f)
	}
	r.Render(os.Stdout, session.Sink().Messages())
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return historyFile
	}
	return filepath.Join(home, historyFile)
}
