// fluentgen - Java class descriptions for fluent assertion generators.
//
// fluentgen parses Java sources, classifies the getters of every class and
// stores one description per class: property names, property types and the
// imports an assertion class for it needs.
package main

import (
	"fmt"
	"os"

	"github.com/Benny93/fluentgen/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
