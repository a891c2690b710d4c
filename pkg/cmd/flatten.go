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
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mzflatten/mzflatten/pkg/env"
	"github.com/mzflatten/mzflatten/pkg/flatten"
	"github.com/mzflatten/mzflatten/pkg/printer"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var flattenCmd = &cobra.Command{
	Use:   "flatten [flags]",
	Short: "flatten a fixture model into flat, solver-ready form.",
	Long: `Run the evaluator and flattener over one of the builtin fixture models,
optionally binding its undefined pars from a JSON data file, and print the
resulting flat model.`,
	Run: func(cmd *cobra.Command, args []string) {
		if GetFlag(cmd, "verbose") {
			log.SetLevel(log.DebugLevel)
		}

		fx, err := lookupFixture(GetString(cmd, "model"))
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}

		opts := env.DefaultFlatteningOptions()
		opts.OnlyRangeDomains = GetFlag(cmd, "only-range-domains")
		opts.RecordDomainChanges = GetFlag(cmd, "record-domain-changes")
		opts.EnableHalfReification = !GetFlag(cmd, "no-half-reification")
		opts.RandomSeed = GetInt64(cmd, "seed")
		opts.EncapsulateJSON = GetFlag(cmd, "encapsulate-json")

		if GetFlag(cmd, "json") {
			opts.OutputMode = env.OutputModeJSON
		}

		e := env.New(context.Background(), fx.model, opts)
		e.Verbose = GetFlag(cmd, "verbose")

		if dataFile := GetString(cmd, "data"); dataFile != "" {
			if err := bindDataFile(e, fx, dataFile); err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
		}

		f := flatten.New(e)
		if err := f.Run(); err != nil {
			fmt.Printf("flattening failed: %s\n", err)
			os.Exit(1)
		}

		for _, w := range e.Warnings() {
			log.Warn(w.String())
		}

		pr := printerFor(cmd).WithDecls(e)

		emitModel(e, pr, opts)
	},
}

// printerFor builds a Printer honouring the --width persistent flag,
// autodetecting the terminal width (falling back to 80) when --width is
// 0 and stdout is a terminal.
func printerFor(cmd *cobra.Command) *printer.Printer {
	width := int(GetUint(cmd, "width"))

	if width == 0 {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
			width = w
		} else {
			width = 80
		}
	}

	return printer.NewPrinter().WithWidth(width)
}

func init() {
	rootCmd.AddCommand(flattenCmd)
	flattenCmd.Flags().String("model", "sum", fmt.Sprintf("fixture model to flatten (one of %v)", fixtureNames()))
	flattenCmd.Flags().String("data", "", "JSON data file binding the model's undefined pars")
	flattenCmd.Flags().Bool("only-range-domains", false, "forbid multi-range integer domains")
	flattenCmd.Flags().Bool("record-domain-changes", false, "emit explicit constraints for domain narrowings")
	flattenCmd.Flags().Bool("no-half-reification", false, "disable the _imp half-reification preference")
	flattenCmd.Flags().Int64("seed", 0, "seed for the environment's PRNG")
}
