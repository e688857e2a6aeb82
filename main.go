package main

import "github.com/cerita/nobat/cmd"

func main() {
	cmd.Execute()
}
