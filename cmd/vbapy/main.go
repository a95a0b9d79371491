package main

import "martianoff/vbapy/cmd/vbapy/commands"

func main() {
	commands.Execute()
}
