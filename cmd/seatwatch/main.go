// Package main is the entry point for seatwatch.
package main

import (
	"os"

	"seatwatch/cmd/seatwatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
