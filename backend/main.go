package main

import "cactus/backend/cli"

func main() {
	cli.Execute()
}
