// Command cling manages local-first tasks, habits and focus sessions.
package main

import "github.com/mesh-intelligence/cling/internal/cli"

func main() {
	cli.Execute()
}
