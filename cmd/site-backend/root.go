package main

import (
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/tbourn/site-backend/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = ""

var rootCmd = &cobra.Command{
	Use:          "site-backend",
	Short:        "Backend API for the electrician site",
	SilenceUsage: true,
	RunE:         runServe,
}

// appVersion prefers the linker-injected version, then the module version
// recorded by the Go toolchain.
func appVersion() string {
	var modVersion string
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "(devel)" {
		modVersion = info.Main.Version
	}
	return sysutil.FirstNonEmpty(version, modVersion, "dev")
}
