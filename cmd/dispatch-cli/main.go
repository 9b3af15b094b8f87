package main

import "dispatch-core/cmd/dispatch-cli/cmd"

func main() {
	cmd.Execute()
}
