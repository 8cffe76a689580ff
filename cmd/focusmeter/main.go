// Package main is the entry point for the focusmeter CLI.
//
// Usage:
//
//	focusmeter [flags] <command> [args]
//
// Commands:
//
//	run        - Monitor the microphone (headless or with --tray)
//	history    - Show stored 30 s slices
//	settings   - Show or change display settings
//	devices    - List audio input devices
//	version    - Show version information
package main

import (
	"os"

	"github.com/petems/focusmeter/cmd/focusmeter/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		commands.PrintError(err.Error())
		os.Exit(1)
	}
}
