package main

import "github.com/forPelevin/reelgen/internal/cli"

func main() {
	cli.Main()
}
