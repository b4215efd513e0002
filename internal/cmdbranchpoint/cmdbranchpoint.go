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

// Package cmdbranchpoint contains the branch-point command.
package cmdbranchpoint

import (
	"context"

	"github.com/chutedev/chute/internal/errors"
	"github.com/chutedev/chute/internal/printer"
	"github.com/chutedev/chute/internal/workspace"
	"github.com/spf13/cobra"
)

const (
	shortMessage = "Show where a changeset diverged from its parent line"
	longMessage  = `chute branch-point [REF]

Prints the commit the changeset branched from. With no argument the
currently checked-out branch is used. Prints "unknown" when the
ancestry gives no answer.
`
)

// NewRunner returns a command runner.
func NewRunner(ctx context.Context) *Runner {
	r := &Runner{ctx: ctx}
	r.Command = &cobra.Command{
		Use:   "branch-point [REF]",
		Short: shortMessage,
		Long:  longMessage,
		Args:  cobra.MaximumNArgs(1),
		RunE:  r.runE,
	}
	return r
}

// NewCommand returns a new cobra command.
func NewCommand(ctx context.Context) *cobra.Command {
	return NewRunner(ctx).Command
}

// Runner contains the run function.
type Runner struct {
	ctx     context.Context
	Command *cobra.Command
}

func (r *Runner) runE(_ *cobra.Command, args []string) error {
	const op errors.Op = "cmdbranchpoint.runE"
	pr := printer.FromContextOrDie(r.ctx)

	refName := ""
	if len(args) == 1 {
		refName = args[0]
	}

	w, err := workspace.Open(r.ctx)
	if err != nil {
		return errors.E(op, err)
	}
	bp, err := w.BranchPoints()
	if err != nil {
		return errors.E(op, err)
	}
	id, err := bp.BranchPoint(r.ctx, refName)
	if err != nil {
		return errors.E(op, err)
	}
	if id.Empty() {
		pr.Printf("unknown\n")
		return nil
	}
	pr.Printf("%s\n", string(id))
	return nil
}
