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
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// GetFlag fetches a bool flag, or panics (via os.Exit) if it was never
// registered -- a programmer error, not a user-facing one.
func GetFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return v
}

// GetString fetches a string flag.
func GetString(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return v
}

// GetUint fetches a uint flag.
func GetUint(cmd *cobra.Command, name string) uint {
	v, err := cmd.Flags().GetUint(name)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return v
}

// GetInt64 fetches an int64 flag.
func GetInt64(cmd *cobra.Command, name string) int64 {
	v, err := cmd.Flags().GetInt64(name)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return v
}
