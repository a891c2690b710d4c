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
	"encoding/json"
	"fmt"
	"os"

	"github.com/mzflatten/mzflatten/pkg/ast"
	"github.com/mzflatten/mzflatten/pkg/env"
	"github.com/mzflatten/mzflatten/pkg/printer"
)

// flatModel is the JSON rendering of a flattened model: each item
// rendered through pr so the JSON and text forms always agree on
// syntax, keyed by kind the way output.cpp's solution dump keys its
// entries by variable name.
type flatModel struct {
	CompilationID string            `json:"compilation_id"`
	Variables     map[string]string `json:"variables,omitempty"`
	Constraints   []string          `json:"constraints,omitempty"`
	Solve         string            `json:"solve,omitempty"`
	Output        []string          `json:"output,omitempty"`
	Warnings      []string          `json:"warnings,omitempty"`
}

// emitModel prints e.Flat per opts.OutputMode: OutputModeText prints the
// pretty/compact text form unchanged, OutputModeJSON marshals a
// flatModel instead, wrapped under a top-level "solution" object when
// opts.EncapsulateJSON is set.
func emitModel(e *env.EnvI, pr *printer.Printer, opts env.FlatteningOptions) {
	if opts.OutputMode != env.OutputModeJSON {
		fmt.Println(pr.Model(e.Flat))
		return
	}

	model := buildFlatModel(e, pr)

	var payload any = model
	if opts.EncapsulateJSON {
		payload = map[string]flatModel{"solution": model}
	}

	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	fmt.Println(string(encoded))
}

func buildFlatModel(e *env.EnvI, pr *printer.Printer) flatModel {
	model := flatModel{CompilationID: e.CompilationID.String()}

	for _, item := range e.Flat.Items {
		switch it := item.(type) {
		case *ast.VarDeclI:
			if model.Variables == nil {
				model.Variables = make(map[string]string)
			}

			model.Variables[it.VarDecl.Name] = pr.Item(it)
		case *ast.ConstraintI:
			model.Constraints = append(model.Constraints, pr.Item(it))
		case *ast.SolveI:
			model.Solve = pr.Item(it)
		case *ast.OutputI:
			model.Output = append(model.Output, pr.Item(it))
		}
	}

	for _, w := range e.Warnings() {
		model.Warnings = append(model.Warnings, w.String())
	}

	return model
}
