// Copyright 2024 The chute Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/chutedev/chute/internal/errors/resolver"
	"github.com/chutedev/chute/internal/util/cmdutil"
	"github.com/chutedev/chute/run"
)

func main() {
	ctx := context.Background()
	cmd := run.GetMain(ctx)

	err := cmd.Execute()
	if err == nil {
		return
	}
	_ = cmdutil.HandleError(cmd, err)

	if res, ok := resolver.ResolveError(err); ok {
		fmt.Fprintf(os.Stderr, "%s\n", res.Message)
		if res.ExitCode != 0 {
			os.Exit(res.ExitCode)
		}
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
