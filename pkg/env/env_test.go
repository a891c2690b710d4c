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
package env_test

import (
	"context"
	"testing"

	"github.com/mzflatten/mzflatten/pkg/ast"
	"github.com/mzflatten/mzflatten/pkg/env"
	"github.com/mzflatten/mzflatten/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnv() *env.EnvI {
	return env.New(context.Background(), ast.NewModel(), env.DefaultFlatteningOptions())
}

func TestDeclareVarAndLookup(t *testing.T) {
	e := newTestEnv()
	decl := &ast.VarDecl{Name: "x"}

	id := e.DeclareVar(decl)
	require.True(t, id.IsValid())
	assert.Same(t, decl, e.Decl(id))
}

func TestMemoizeDeclRewritesDef(t *testing.T) {
	e := newTestEnv()
	decl := &ast.VarDecl{Name: "x"}
	id := e.DeclareVar(decl)

	lit := &ast.BoolLit{Val: true}
	e.MemoizeDecl(id, lit)

	assert.Same(t, lit, e.Decl(id).Def)
}

func TestRemoveVarInvalidatesCSE(t *testing.T) {
	e := newTestEnv()
	decl := &ast.VarDecl{Name: "x"}
	id := e.DeclareVar(decl)

	e.CSEPut("key", &ast.BoolLit{Val: true}, &ast.BoolLit{Val: true}, id)
	_, ok := e.CSEGet("key")
	require.True(t, ok)

	e.RemoveVar(id)

	_, ok = e.CSEGet("key")
	assert.False(t, ok)
}

func TestWarningBufferCapsAndSuppresses(t *testing.T) {
	e := newTestEnv()

	for i := 0; i < 25; i++ {
		e.Warn(source.NoSpan, "warning %d", i)
	}

	all := e.Warnings()
	require.Len(t, all, 21)
	assert.Contains(t, all[20].Message, "suppressed")
}

func TestCheckCancelRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := env.New(ctx, ast.NewModel(), env.DefaultFlatteningOptions())

	require.NoError(t, e.CheckCancel())

	cancel()

	err := e.CheckCancel()
	require.Error(t, err)
	assert.Equal(t, source.KindCancellation, err.(*source.Error).ErrKind)
}

func TestReconstructSolutionAppliesRegisteredMapper(t *testing.T) {
	e := newTestEnv()
	e.RegisterReverseMapper("p", []string{"p_x", "p_y"}, func(in map[string]env.Value) env.Value {
		return env.Value{Kind: env.ValueTuple, Tuple: []env.Value{in["p_x"], in["p_y"]}}
	})

	solved := map[string]env.Value{
		"p_x": {Kind: env.ValueInt, Int: 1},
		"p_y": {Kind: env.ValueInt, Int: 2},
		"q":   {Kind: env.ValueInt, Int: 3},
	}

	result := e.ReconstructSolution(solved)

	require.Contains(t, result, "p")
	assert.NotContains(t, result, "p_x")
	assert.Equal(t, int64(1), result["p"].Tuple[0].Int)
	assert.Equal(t, int64(3), result["q"].Int)
}

func TestPathStoreRoundTrip(t *testing.T) {
	e := newTestEnv()
	decl := &ast.VarDecl{Name: "x"}
	id := e.DeclareVar(decl)

	e.PathBind("model.mzn:3:5", id)

	got, ok := e.PathLookup("model.mzn:3:5")
	require.True(t, ok)
	assert.Equal(t, id, got)
}
