// Package main is the entry point for the NearDeal CLI application.
package main

import (
	"neardeal/cli/cmd"
)

func main() {
	cmd.Execute()
}
