package main

import (
	"os"

	"github.com/solguard-dev/solguard/cmd"
)

func main() {
	code := cmd.Execute()
	os.Exit(code)
}
