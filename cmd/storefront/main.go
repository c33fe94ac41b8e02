package main

import "github.com/goliatone/go-storefront/internal/cli"

func main() {
	cli.Execute()
}
