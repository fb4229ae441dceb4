// Package cmd implements the nntpcat command line tool, a thin diagnostic
// front end over the nntp library.
package cmd

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/damianoneill/nntp/client"
	"github.com/damianoneill/nntp/ops"
)

// RootCmd is the main entry point.
var RootCmd = &cobra.Command{
	Use:   "nntpcat",
	Short: "Poke at an NNTP server",
}

var (
	server   string
	useTLS   bool
	username string
	password string
	timeout  int
	verbose  bool
)

func init() {
	RootCmd.PersistentFlags().StringVarP(&server, "server", "s", "", "server address as host:port")
	RootCmd.PersistentFlags().BoolVar(&useTLS, "tls", false, "connect with TLS")
	RootCmd.PersistentFlags().StringVarP(&username, "user", "u", "", "username for AUTHINFO")
	RootCmd.PersistentFlags().StringVarP(&password, "pass", "p", "", "password for AUTHINFO")
	RootCmd.PersistentFlags().IntVar(&timeout, "timeout", 0, "per-operation timeout in seconds")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	if err := RootCmd.MarkPersistentFlagRequired("server"); err != nil {
		log.Fatal(err)
	}
}

// connect dials the configured server and enters reader mode.
func connect() (*ops.Session, error) {
	log.SetLevel(log.InfoLevel)
	ctx := context.Background()
	if verbose {
		log.SetLevel(log.DebugLevel)
		ctx = client.WithClientTrace(ctx, client.DiagnosticLoggingHooks)
	}

	cfg := &client.Config{
		TimeoutSecs: timeout,
		TLS:         useTLS,
		Username:    username,
		Password:    password,
	}
	return ops.NewSession(ctx, server, cfg)
}

// Execute is the main entry point for the CLI interface.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
