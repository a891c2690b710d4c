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
	"os"

	"github.com/mzflatten/mzflatten/pkg/ast"
	"github.com/mzflatten/mzflatten/pkg/env"
	"github.com/mzflatten/mzflatten/pkg/jsonload"
)

// bindDataFile parses the JSON data file at path against fx's top-level
// declarations and splices the resulting assignments into fx.model,
// right before the first non-declaration item -- so the flattener
// processes every VarDeclI (establishing decl.SelfID) before it reaches
// the AssignI items that reference them by that same id.
func bindDataFile(e *env.EnvI, fx fixture, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return err
	}

	loader := jsonload.NewLoader(fx.model, e.Interner, jsonload.EnumTable{})

	assigns, err := loader.Load(data, path)
	if err != nil {
		return err
	}

	insertAt := len(fx.model.Items)

	for i, it := range fx.model.Items {
		if _, ok := it.(*ast.VarDeclI); !ok {
			insertAt = i
			break
		}
	}

	items := make([]ast.Item, 0, len(fx.model.Items)+len(assigns))
	items = append(items, fx.model.Items[:insertAt]...)

	for _, a := range assigns {
		items = append(items, a)
	}

	items = append(items, fx.model.Items[insertAt:]...)

	fx.model.Items = items

	return nil
}
