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

// Package cmdpurge contains the purge command.
package cmdpurge

import (
	"context"
	"fmt"
	"strings"

	"github.com/chutedev/chute/internal/errors"
	"github.com/chutedev/chute/internal/printer"
	"github.com/chutedev/chute/internal/ref"
	"github.com/chutedev/chute/internal/transaction"
	"github.com/chutedev/chute/internal/types"
	"github.com/chutedev/chute/internal/workspace"
	"github.com/spf13/cobra"
)

const (
	shortMessage = "Remove every trace of a changeset"
	longMessage  = `chute purge NAME

Removes the changeset's ledger, its branch, its marker tags and its
pending-review ref. All removals happen in one transaction: if any step
fails, the already-removed pieces are restored.
`
)

// NewRunner returns a command runner.
func NewRunner(ctx context.Context) *Runner {
	r := &Runner{ctx: ctx}
	r.Command = &cobra.Command{
		Use:   "purge NAME",
		Short: shortMessage,
		Long:  longMessage,
		Args:  cobra.ExactArgs(1),
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
	const op errors.Op = "cmdpurge.runE"
	pr := printer.FromContextOrDie(r.ctx)
	cs := types.Changeset(args[0])

	w, err := workspace.Open(r.ctx)
	if err != nil {
		return errors.E(op, cs, err)
	}

	err = transaction.Run(r.ctx, func(ctx context.Context, tx *transaction.Tx) error {
		tx.SetRollbackWarning(fmt.Sprintf("purging changeset %q failed, restoring removed pieces", cs))

		if err := r.purgeLedger(ctx, w, tx, cs); err != nil {
			return err
		}
		if err := r.purgeTags(ctx, w, tx, cs); err != nil {
			return err
		}
		if err := r.purgeBranch(ctx, w, tx, cs); err != nil {
			return err
		}
		return r.purgePendingReview(ctx, w, tx, cs)
	})
	if err != nil {
		return errors.E(op, cs, err)
	}

	pr.OptPrintf(printer.NewOpt().Cs(cs), "purged\n")
	return nil
}

func (r *Runner) purgeLedger(ctx context.Context, w *workspace.Workspace, tx *transaction.Tx, cs types.Changeset) error {
	events, err := w.Ledger.History(ctx, w.Config.Project, cs)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	if err := w.Ledger.RemoveAllEvents(ctx, cs, true); err != nil {
		return err
	}
	tx.OnRollback("restore ledger", func(ctx context.Context) error {
		return w.Ledger.Restore(ctx, cs, events, true)
	})
	return nil
}

// purgeTags removes the head tag and every promotion and demotion
// marker of the changeset.
func (r *Runner) purgeTags(ctx context.Context, w *workspace.Workspace, tx *transaction.Tx, cs types.Changeset) error {
	prefix := "cs/" + string(cs) + "/"
	for _, name := range w.Decorations.Names() {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		name := name
		target, ok := w.Decorations.CommitOf(name)
		if !ok {
			continue
		}
		if err := w.Decorations.Untag(ctx, name); err != nil {
			return err
		}
		tx.OnRollback("restore tag "+name, func(ctx context.Context) error {
			return w.Decorations.Tag(ctx, name, target, true)
		})
	}
	return nil
}

func (r *Runner) purgeBranch(ctx context.Context, w *workspace.Workspace, tx *transaction.Tx, cs types.Changeset) error {
	target, err := ref.ResolveRef(ctx, w.Git, "refs/heads/"+string(cs))
	if err != nil {
		if errors.Is(errors.RefNotFound, err) {
			return nil
		}
		return err
	}
	if err := w.Git.Run(ctx, "branch", "-D", string(cs)); err != nil {
		return err
	}
	tx.OnRollback("restore branch", func(ctx context.Context) error {
		return w.Git.Run(ctx, "branch", string(cs), string(target))
	})
	return nil
}

func (r *Runner) purgePendingReview(ctx context.Context, w *workspace.Workspace, tx *transaction.Tx, cs types.Changeset) error {
	name := ref.PendingReview(cs)
	target, ok := w.Decorations.CommitOf(name)
	if !ok {
		return nil
	}
	full := "refs/remotes/" + name
	if err := w.Git.Run(ctx, "update-ref", "-d", full); err != nil {
		return err
	}
	tx.OnRollback("restore pending-review ref", func(ctx context.Context) error {
		return w.Git.Run(ctx, "update-ref", full, string(target))
	})
	return nil
}
