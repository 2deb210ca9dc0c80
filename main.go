// The main package for the tractorcrawl executable.
package main

import (
	"github.com/agdata/tractorcrawl/cmd"
)

func main() {
	cmd.Execute()
}
