package main

import (
	"os"

	appLog "github.com/jdejaegh/ics-fusion/internal/log"
)

// Version is overridden at build time via -ldflags.
var Version = "dev"

func main() {
	if err := newCLIApp().Run(os.Args); err != nil {
		appLog.Error("ics-fusion exited with error", err)
		os.Exit(1)
	}
}
