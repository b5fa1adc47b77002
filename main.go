package main

import "swing-alerts/internal/cli"

func main() {
	cli.Execute()
}
