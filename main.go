package main

import (
	"os"

	"github.com/liutentor/tentor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
