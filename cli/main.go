package main

import "southwinds.dev/rooster/cli/cmd"

func main() {
	cmd.Execute()
}
