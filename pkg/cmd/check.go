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
	"path/filepath"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/mzflatten/mzflatten/pkg/env"
	"github.com/mzflatten/mzflatten/pkg/flatten"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags]",
	Short: "flatten a fixture model against every data file in a directory.",
	Long: `Load each *.json file under --dir as a data binding for a fixture
model's undefined pars, flatten the resulting model on a fresh environment,
and report a PASS/FAIL summary -- a batch regression check against a corpus
of example inputs.`,
	Run: func(cmd *cobra.Command, args []string) {
		if GetFlag(cmd, "verbose") {
			log.SetLevel(log.DebugLevel)
		}

		modelName := GetString(cmd, "model")
		dir := GetString(cmd, "dir")

		files, err := dataFiles(dir)
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}

		if len(files) == 0 {
			fmt.Printf("no *.json files found under %s\n", dir)
			os.Exit(2)
		}

		var errs *multierror.Error

		failures := 0

		for _, path := range files {
			if err := checkOne(modelName, path); err != nil {
				fmt.Printf("FAIL %s: %s\n", path, err)
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", path, err))
				failures++

				continue
			}

			fmt.Printf("PASS %s\n", path)
		}

		fmt.Printf("%d/%d passed\n", len(files)-failures, len(files))

		if failures > 0 {
			os.Exit(1)
		}
	},
}

// checkOne runs one data file through a fresh environment built from
// modelName's fixture, returning the flattening error (if any).
func checkOne(modelName, path string) error {
	fx, err := lookupFixture(modelName)
	if err != nil {
		return err
	}

	e := env.New(context.Background(), fx.model, env.DefaultFlatteningOptions())

	if err := bindDataFile(e, fx, path); err != nil {
		return err
	}

	return flatten.New(e).Run()
}

// dataFiles lists the *.json files directly under dir, sorted for a
// deterministic report order.
func dataFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string

	for _, ent := range entries {
		if ent.IsDir() || filepath.Ext(ent.Name()) != ".json" {
			continue
		}

		files = append(files, filepath.Join(dir, ent.Name()))
	}

	sort.Strings(files)

	return files, nil
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().String("model", "params", fmt.Sprintf("fixture model to check data files against (one of %v)", fixtureNames()))
	checkCmd.Flags().String("dir", "", "directory of *.json data files to check")
	checkCmd.MarkFlagRequired("dir") //nolint:errcheck
}
