// Command protot is the ProtoT scheduler process entry point.
//
// Usage:
//
//	protot run                  # start per configs/default.yaml
//	protot run -c custom.yaml   # start with a custom config file
//	protot init                 # write a default Scheduler-mode config
//	protot status                # print the config this node would start with
package main

import (
	"fmt"
	"os"

	"github.com/protot/scheduler/internal/cli"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "fatal error: %v\n", r)
			os.Exit(1)
		}
	}()

	rootCmd := cli.BuildCLI()
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
