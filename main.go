package main

import "github.com/brogergvhs/batocbz/cmd"

func main() {
	cmd.Execute()
}
