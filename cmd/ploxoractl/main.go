package main

import "ploxora/internal/cli"

func main() {
	cli.Execute()
}
