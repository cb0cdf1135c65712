package main

import (
	cmd "github.com/akane-bot/akane/cmd"
)

func main() {
	cmd.Execute()
}
