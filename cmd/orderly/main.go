package main

import "github.com/orderly-agent/orderly/cli"

func main() {
	cli.Execute()
}
