package main

import (
	"os"

	"github.com/batonworks/baton/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
