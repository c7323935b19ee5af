package main

import "emwy/internal/cli"

func main() {
	cli.Execute()
}
