package main

import "github.com/dragonfall-gg/dragonfall/internal/cli"

func main() {
	cli.Execute()
}
