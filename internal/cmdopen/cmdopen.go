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

// Package cmdopen contains the open command.
package cmdopen

import (
	"context"
	goerrors "errors"
	"fmt"

	"github.com/chutedev/chute/internal/errors"
	"github.com/chutedev/chute/internal/ledger"
	"github.com/chutedev/chute/internal/printer"
	"github.com/chutedev/chute/internal/tracker"
	"github.com/chutedev/chute/internal/transaction"
	"github.com/chutedev/chute/internal/types"
	"github.com/chutedev/chute/internal/workspace"
	"github.com/spf13/cobra"
)

const (
	shortMessage = "Open a new changeset"
	longMessage  = `chute open NAME [flags]

Creates the changeset branch and records the opening event in the
changeset's ledger. Both effects are undone if either fails.

Args:
  NAME:
    Name of the changeset. Must not collide with an existing branch.

Flags:
  --at:
    Ref to branch from. Defaults to the current HEAD.
  --reviewer:
    Reviewer recorded on the opening event.
`
)

// NewRunner returns a command runner.
func NewRunner(ctx context.Context) *Runner {
	r := &Runner{ctx: ctx}
	c := &cobra.Command{
		Use:   "open NAME",
		Short: shortMessage,
		Long:  longMessage,
		Args:  cobra.ExactArgs(1),
		RunE:  r.runE,
	}
	c.Flags().StringVar(&r.at, "at", "", "ref to branch from; defaults to HEAD")
	c.Flags().StringVar(&r.reviewer, "reviewer", "", "reviewer recorded on the opening event")
	r.Command = c
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

	at       string
	reviewer string
}

func (r *Runner) runE(_ *cobra.Command, args []string) error {
	const op errors.Op = "cmdopen.runE"
	pr := printer.FromContextOrDie(r.ctx)
	cs := types.Changeset(args[0])

	w, err := workspace.Open(r.ctx)
	if err != nil {
		return errors.E(op, cs, err)
	}

	err = transaction.Run(r.ctx, func(ctx context.Context, tx *transaction.Tx) error {
		tx.SetRollbackWarning(fmt.Sprintf("opening changeset %q failed, undoing partial setup", cs))

		branchArgs := []string{"branch", string(cs)}
		if r.at != "" {
			branchArgs = append(branchArgs, r.at)
		}
		if err := w.Git.Run(ctx, branchArgs...); err != nil {
			return err
		}
		tx.OnRollback("delete branch", func(ctx context.Context) error {
			return w.Git.Run(ctx, "branch", "-D", string(cs))
		})

		_, err := w.Ledger.AppendEvents(ctx, []ledger.Entry{{
			Changeset: cs,
			Action:    "open",
			Reviewer:  r.reviewer,
		}})
		if err != nil {
			return err
		}
		tx.OnRollback("drop ledger", func(ctx context.Context) error {
			return w.Ledger.RemoveAllEvents(ctx, cs, true)
		})

		r.notify(ctx, w, cs)
		return nil
	})
	if err != nil {
		return errors.E(op, cs, err)
	}

	pr.OptPrintf(printer.NewOpt().Cs(cs), "opened at branch %q\n", string(cs))
	return nil
}

// notify moves the tracked issue along. Notification is best effort: a
// missing tracker or an unreachable one never fails the open.
func (r *Runner) notify(ctx context.Context, w *workspace.Workspace, cs types.Changeset) {
	if w.Config.NotifySuppressed {
		return
	}
	pr := printer.FromContextOrDie(r.ctx)
	tr, err := w.Tracker()
	if err != nil {
		pr.OptPrintf(printer.NewOpt().Stderr(), "warning: %v\n", err)
		return
	}
	number := tr.IssueNumber(cs)
	if number == "" {
		return
	}
	if err := tr.TransitionState(ctx, number, "open"); err != nil &&
		!goerrors.Is(err, tracker.ErrNotConfigured) {
		pr.OptPrintf(printer.NewOpt().Stderr(),
			"warning: unable to update issue %s: %v\n", number, err)
	}
}
