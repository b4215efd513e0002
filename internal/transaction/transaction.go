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

// Package transaction runs a unit of work so that its side effects are
// undone, in reverse order, if the unit fails or is interrupted.
package transaction

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/chutedev/chute/internal/errors"
	"github.com/chutedev/chute/internal/printer"
	"github.com/chutedev/chute/internal/util/stack"
)

// Unit is the work executed reversibly. It registers undo actions on tx
// as it completes side effects, and must treat cancellation of ctx as a
// failure at its next suspension point.
type Unit func(ctx context.Context, tx *Tx) error

// Tx is the per-run transaction handle. Each Run gets a fresh one, so a
// nested Run's failure never unwinds its caller's undo actions.
type Tx struct {
	undos   *stack.Actions
	warning string

	// rollbackCtx is handed to undo actions. It is detached from the
	// run context so that the cancellation which failed the unit does
	// not also abort the unwind.
	rollbackCtx context.Context
}

// OnRollback registers an undo action. Actions run in reverse order of
// registration, only on failure, each at most once. The context given
// to fn stays live through an interrupted run.
func (t *Tx) OnRollback(name string, fn func(ctx context.Context) error) {
	t.undos.Push(stack.Action{Name: name, Fn: func() error {
		return fn(t.rollbackCtx)
	}})
}

// SetRollbackWarning sets the message emitted if the unit ultimately
// fails. Last write wins.
func (t *Tx) SetRollbackWarning(msg string) {
	t.warning = msg
}

// InterruptError is the failure injected when a registered signal
// arrives during the unit's execution.
type InterruptError struct {
	Signal os.Signal
}

func (e *InterruptError) Error() string {
	return fmt.Sprintf("interrupted by %s", e.Signal)
}

// Run executes unit reversibly. SIGINT and SIGTERM fail the unit via
// context cancellation, and any failure first emits the rollback
// warning (if set), then runs every registered undo action newest
// first, and finally re-raises the original failure annotated to
// indicate the rollback. Individual undo failures are warned about and
// skipped: rollback is best effort, not transactional.
func Run(ctx context.Context, unit Unit) error {
	const op errors.Op = "transaction.Run"
	pr := printer.FromContextOrDie(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var mu sync.Mutex
	var received os.Signal
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case s := <-sigCh:
			mu.Lock()
			received = s
			mu.Unlock()
			cancel()
		case <-done:
		}
	}()

	tx := &Tx{undos: stack.NewActions(), rollbackCtx: context.WithoutCancel(ctx)}
	err := unit(runCtx, tx)

	mu.Lock()
	sig := received
	mu.Unlock()
	if sig != nil {
		ie := &InterruptError{Signal: sig}
		if err != nil {
			err = fmt.Errorf("%s: %w", ie.Error(), err)
		} else {
			err = ie
		}
	}
	if err == nil {
		return nil
	}

	if tx.warning != "" {
		pr.OptPrintf(printer.NewOpt().Stderr(), "%s\n", tx.warning)
	}
	for tx.undos.Len() > 0 {
		a := tx.undos.Pop()
		if uerr := a.Fn(); uerr != nil {
			pr.OptPrintf(printer.NewOpt().Stderr(),
				"warning: undo %q failed during rollback: %v\n", a.Name, uerr)
		}
	}

	if sig != nil {
		return errors.E(op, errors.Interrupted,
			fmt.Errorf("rolled back: %w", err))
	}
	return errors.E(op, fmt.Errorf("rolled back: %w", err))
}
