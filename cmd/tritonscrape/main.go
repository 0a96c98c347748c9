package main

import "github.com/tritonscrape/tritonscrape/internal/cli"

func main() {
	cli.Execute()
}
