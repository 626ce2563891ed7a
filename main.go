// A small CLI tool to generate pseudo-random related entities from a
// JSON or YAML description, and write them to a file, a SQL database or a
// MongoDB database.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/jessevdk/go-flags"

	"github.com/feliixx/mockbuilder/datagen"
)

const version = "0.1.0"

func main() {
	var options datagen.Options
	p := flags.NewParser(&options, flags.Default&^flags.HelpFlag)
	_, err := p.Parse()
	if err != nil {
		color.Red("invalid flags, try mockbuilder --help for more informations: %v", err)
		os.Exit(1)
	}
	if options.Help {
		fmt.Fprintf(os.Stdout, "mockbuilder version %s\n\n", version)
		p.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	if options.Version {
		fmt.Fprintf(os.Stdout, "mockbuilder version %s\n", version)
		os.Exit(0)
	}
	err = datagen.Generate(&options, os.Stdout)
	if err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}
}
