// chirpd is the social feed service daemon.
package main

import (
	"fmt"
	"os"

	"github.com/chirpnet/chirp/pkg/cli"
)

func main() {
	rootCmd := cli.NewRootCommand(cli.Options{
		Name:        "chirpd",
		Description: "Minimal social feed service",
		EnvPrefix:   "CHIRP",
		RunServer:   cli.RunServer,
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
