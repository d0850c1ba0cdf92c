package main

import "github.com/kiesman99/assembler/cmd"

func main() {
	cmd.Execute()
}
