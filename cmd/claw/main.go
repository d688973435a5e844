// Command claw compiles per-tenant agent harness specs into deployable
// artifacts and talks to the tenant's memory service.
package main

import (
	"os"

	"github.com/kr8tiv/claw/cmd/claw/commands"
)

var version = "dev"

func main() {
	os.Exit(commands.Execute(version, os.Args[1:]))
}
