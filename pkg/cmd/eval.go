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

	"github.com/mzflatten/mzflatten/pkg/ast"
	"github.com/mzflatten/mzflatten/pkg/env"
	"github.com/mzflatten/mzflatten/pkg/eval"
	"github.com/mzflatten/mzflatten/pkg/types"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var evalCmd = &cobra.Command{
	Use:   "eval [flags]",
	Short: "evaluate a fixture model's defined par declarations.",
	Long: `Evaluate every top-level par declaration of a fixture model that has a
defining expression, printing one "name = value" line per declaration in
source order. Declarations left undefined (meant to be bound by a data
file) are skipped; use "flatten --data" to supply their values instead.`,
	Run: func(cmd *cobra.Command, args []string) {
		if GetFlag(cmd, "verbose") {
			log.SetLevel(log.DebugLevel)
		}

		fx, err := lookupFixture(GetString(cmd, "model"))
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}

		e := env.New(context.Background(), fx.model, env.DefaultFlatteningOptions())
		e.Verbose = GetFlag(cmd, "verbose")

		for _, decl := range fx.decls {
			e.DeclareVar(decl)

			if decl.Def == nil {
				continue
			}

			val, err := evalDecl(e, decl)
			if err != nil {
				fmt.Printf("%s: %s\n", decl.Name, err)
				os.Exit(1)
			}

			fmt.Printf("%s = %s\n", decl.Name, val)
		}
	},
}

// evalDecl dispatches decl's base kind to the matching eval.Eval*
// entrypoint and renders the result as MiniZinc-literal text.
func evalDecl(e *env.EnvI, decl *ast.VarDecl) (string, error) {
	switch decl.Declared.Base {
	case types.BoolKind:
		v, err := eval.EvalBool(e, decl.Def)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("%t", v), nil
	case types.FloatKind:
		v, err := eval.EvalFloat(e, decl.Def)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("%g", v), nil
	case types.StringKind:
		v, err := eval.EvalString(e, decl.Def)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("%q", v), nil
	default:
		v, err := eval.EvalInt(e, decl.Def)
		if err != nil {
			return "", err
		}

		return v.String(), nil
	}
}

func init() {
	rootCmd.AddCommand(evalCmd)
	evalCmd.Flags().String("model", "range", fmt.Sprintf("fixture model to evaluate (one of %v)", fixtureNames()))
}
