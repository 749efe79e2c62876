package main

import "custody-core/cmd/custody-cli/cmd"

func main() {
	cmd.Execute()
}
