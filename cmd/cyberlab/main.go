// cyberlab serves simulated web security training labs over HTTP, gRPC,
// MCP and the command line.
package main

import "github.com/ppiankov/cyberlab/internal/cli"

func main() {
	cli.Execute()
}
