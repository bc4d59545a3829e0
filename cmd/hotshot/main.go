package main

import "github.com/bryanchriswhite/hotshot/cmd/hotshot/commands"

func main() {
	commands.Execute()
}
