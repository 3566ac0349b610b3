package main

import "github.com/campushub/campushub/internal/cli"

var version = "dev"

func main() {
	cli.Version = version
	cli.Execute()
}
