package main

import "github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/cmd"

func main() {
	cmd.Execute()
}
