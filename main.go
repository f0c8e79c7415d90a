package main

import "github.com/devrewind/rewind/cmd"

func main() {
	cmd.Execute()
}
