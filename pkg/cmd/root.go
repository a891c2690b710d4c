// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package cmd implements the mzflatten command line driver: a cobra
// command tree rooted at rootCmd with subcommands flatten, eval and
// check, exercising the evaluator/flattener pipeline against a small
// set of named builtin fixture models (real MiniZinc parsing is out of
// scope, per spec.md's Non-goals).
package cmd

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version is filled when building with make, but *not* when installing via
// "go install".
var Version string

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mzflatten",
	Short: "A parameter evaluator and flattener for a MiniZinc-style modeling language.",
	Long:  "A compiler front end that evaluates par expressions and lowers a typed model to a flat, solver-ready form.",
	Run: func(cmd *cobra.Command, args []string) {
		if GetFlag(cmd, "version") {
			fmt.Print("mzflatten ")

			switch {
			case Version != "":
				fmt.Printf("%s", Version)
			default:
				if info, ok := debug.ReadBuildInfo(); ok {
					fmt.Printf("%s", info.Main.Version)
				} else {
					fmt.Printf("(unknown version)")
				}
			}

			fmt.Println()

			return
		}

		cmd.Help() //nolint:errcheck
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().Bool("version", false, "report the version of this executable")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "increase logging verbosity")
	rootCmd.PersistentFlags().Uint("width", 0, "pretty-print line width (0 autodetects the terminal width, falling back to 80)")
	rootCmd.PersistentFlags().Bool("json", false, "emit JSON output rather than the default text/pretty form")
	rootCmd.PersistentFlags().Bool("encapsulate-json", false, "wrap --json output under a top-level \"solution\" object")
}
