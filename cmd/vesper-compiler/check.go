package main

import (
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/vesper-lang/vesper/internal/diag"
	"github.com/vesper-lang/vesper/internal/lexer"
	"github.com/vesper-lang/vesper/internal/parser"
	"github.com/vesper-lang/vesper/internal/source"
	"github.com/vesper-lang/vesper/internal/symindex"
)

type checkCmd struct {
	Files []string `arg:"" name:"file" help:"Vesper source files to check" type:"existingfile"`

	DumpAST    bool   `help:"Print the structural AST dump of each unit"`
	DumpTokens bool   `help:"Print the token stream of each file"`
	EmitIndex  string `help:"Write exported symbols to a SQLite index at this path" placeholder:"DB"`
	Watch      bool   `help:"Keep running and recheck when the files change"`
	NoColor    bool   `help:"Disable colored diagnostics"`
	Jobs       int    `default:"4" help:"Number of root files checked concurrently"`
}

func (c *checkCmd) Run() error {
	if err := loadManifest(); err != nil {
		return err
	}

	if c.DumpTokens {
		for _, path := range c.Files {
			if err := dumpTokens(path); err != nil {
				return err
			}
		}
	}

	if c.Watch {
		return c.watch()
	}

	clean, err := c.checkOnce()
	if err != nil {
		return err
	}
	if !clean {
		os.Exit(1)
	}
	return nil
}

// checkOnce runs one full check session over the root files. Roots
// check concurrently; imports shared between them are still parsed
// once. The return value is false when the session found errors.
func (c *checkCmd) checkOnce() (bool, error) {
	session := parser.NewSharedState(source.DiskLoader{})

	if c.Jobs < 1 {
		c.Jobs = 1
	}
	var g errgroup.Group
	g.SetLimit(c.Jobs)
	for _, path := range c.Files {
		path := path
		g.Go(func() error {
			_, err := session.ParseRoot(path)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}

	renderer := diag.NewRenderer(!c.NoColor)
	for _, f := range session.Files() {
		renderer.AddFile(f)
	}
	renderer.Render(os.Stdout, session.Sink().Messages())

	if c.DumpAST {
		for _, unit := range session.Units() {
			if unit.AST() == nil {
				continue
			}
			fmt.Printf("== %s ==\n%s\n", unit.File().Name, unit.AST().DebugFmt(0))
		}
	}

	if c.EmitIndex != "" {
		if err := c.emitIndex(session); err != nil {
			return false, err
		}
	}

	errs := session.Sink().Count(diag.SeverityError)
	warns := session.Sink().Count(diag.SeverityWarning)
	if errs > 0 || warns > 0 {
		fmt.Printf("%d error(s), %d warning(s)\n", errs, warns)
	}
	return errs == 0, nil
}

// emitIndex writes the exports of every checked unit to the symbol
// index, skipping units whose content the index has already seen.
func (c *checkCmd) emitIndex(session *parser.SharedState) error {
	idx, err := symindex.Open(c.EmitIndex)
	if err != nil {
		return err
	}
	defer idx.Close()

	for _, unit := range session.Units() {
		if unit.Failed() {
			continue
		}
		file := unit.File()
		if sum, ok := idx.Checksum(file.Name); ok && sum == file.Checksum {
			continue
		}
		syms := symindex.FromUnit(session.Pool(), unit)
		if err := idx.ReplaceUnit(file.Name, file.Checksum, syms); err != nil {
			return fmt.Errorf("indexing %s: %w", file.Name, err)
		}
	}
	return nil
}

// dumpTokens lexes one file on its own and lists every token with its
// position. Lexer diagnostics print inline where they occur.
func dumpTokens(path string) error {
	content, err := (source.DiskLoader{}).Load(path)
	if err != nil {
		return err
	}
	file := source.NewFile(path, content)
	sink := diag.NewSink()
	stream := lexer.NewStream(file, sink)

	fmt.Printf("== %s ==\n", path)
	for !stream.AtEnd() {
		mark := sink.Len()
		tok, err := stream.Pull()
		if err != nil {
			fmt.Printf("%s\n", err)
			return nil
		}
		for _, m := range sink.Messages()[mark:] {
			fmt.Printf("%s\n", m)
		}
		fmt.Printf("%-12s %s\n", tok.Span.Start, tok.DebugString())
	}
	return nil
}
