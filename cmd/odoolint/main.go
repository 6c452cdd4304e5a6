// Package main provides the odoolint binary entry point.
// Odoolint validates Odoo addon source artifacts: Python models, XML
// records, CSV data and PO translation catalogs.
package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "odoolint"
)

// errBlocking marks a run that finished but found blocking issues.
var errBlocking = errors.New("blocking issues found")

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		if errors.Is(err, errBlocking) {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}
