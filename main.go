package main

import "github.com/agentic-research/tangodb/cmd"

func main() {
	cmd.Execute()
}
