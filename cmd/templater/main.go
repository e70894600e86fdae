package main

import (
	"os"

	"github.com/lapluviosilla/amplenote-templater/internal/cli"
)

func main() {
	code := cli.Run(os.Args[1:])
	os.Exit(code)
}
