// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// dispatchctl is a diagnostic CLI for AleutianDispatch. It exercises the
// protocol dispatch engine against a built-in demo protocol and evaluates
// lazy-module selection manifests without writing a program.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jinterlante1206/AleutianDispatch/pkg/logging"
	"github.com/jinterlante1206/AleutianDispatch/pkg/ux"
)

// logger is shared by all subcommands; configured in PersistentPreRun.
var logger *logging.Logger

var (
	verbose   bool
	plainMode bool
)

var rootCmd = &cobra.Command{
	Use:   "dispatchctl",
	Short: "Inspect protocol dispatch and lazy-module selection",
	Long: `dispatchctl exercises the AleutianDispatch runtime mechanisms:

  protocols   run the built-in demo protocol and print dispatch diagnostics
  select      evaluate one options object against a selection manifest
  probe       evaluate every options set in a selection manifest`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug-level selection and dispatch logging")
	rootCmd.PersistentFlags().BoolVar(&plainMode, "plain", false,
		"disable styled output")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if plainMode {
			ux.SetPlain(true)
		}
		level := logging.LevelInfo
		if verbose {
			level = logging.LevelDebug
		}
		logger = logging.New(logging.Config{
			Level:   level,
			Service: "dispatchctl",
		})
	}
}
