package main

import "github.com/folio/folio/internal/cli"

func main() {
	cli.Execute()
}
