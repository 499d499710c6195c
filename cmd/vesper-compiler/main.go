// vesper-compiler is the batch frontend driver: it parses and type
// checks Vesper source files, renders diagnostics, and optionally
// dumps token streams or ASTs, emits a symbol index, or keeps watching
// the files for changes.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/pkg/profile"

	"github.com/vesper-lang/vesper/internal/cli"
	"github.com/vesper-lang/vesper/internal/manifest"
)

var root struct {
	Profile string `help:"Enable profiling (cpu or mem)" enum:",cpu,mem" default:""`

	Check   checkCmd   `cmd:"" default:"withargs" help:"Parse and type check source files"`
	Version versionCmd `cmd:"" help:"Print version information"`
}

type versionCmd struct {
	JSON bool `help:"Print version information as JSON"`
}

func (c *versionCmd) Run() error {
	cli.PrintVersion("vesper-compiler", c.JSON)
	return nil
}

func main() {
	ctx := kong.Parse(&root,
		kong.Name("vesper-compiler"),
		kong.Description("Frontend for the Vesper language."),
		kong.UsageOnError(),
	)

	switch root.Profile {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	}

	if err := ctx.Run(); err != nil {
		cli.ExitWithError("%v", err)
	}
}

// loadManifest applies the project manifest when one is present in the
// working directory.
func loadManifest() error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	m, err := manifest.Load(wd)
	if err != nil {
		return err
	}
	if m == nil {
		return nil
	}
	if err := m.CheckLanguage(cli.LangVersion); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "project %s (language %s)\n", m.Name, cli.LangVersion)
	return nil
}
