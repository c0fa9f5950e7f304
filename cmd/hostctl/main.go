// Command hostctl runs a chronicals host SDK process: connecting to an
// orchestrator, serving actions and pages, or bridging a local MCP
// client for development.
package main

func main() {
	Execute()
}
