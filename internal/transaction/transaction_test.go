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

package transaction

import (
	"bytes"
	"context"
	"fmt"
	"syscall"
	"testing"

	"github.com/chutedev/chute/internal/errors"
	"github.com/chutedev/chute/internal/printer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) (context.Context, *bytes.Buffer) {
	t.Helper()
	errBuf := &bytes.Buffer{}
	pr := printer.New(&bytes.Buffer{}, errBuf)
	return printer.WithContext(context.Background(), pr), errBuf
}

func TestSuccessRunsNoUndos(t *testing.T) {
	ctx, _ := testContext(t)
	var undone []string

	err := Run(ctx, func(ctx context.Context, tx *Tx) error {
		tx.OnRollback("u1", func(context.Context) error {
			undone = append(undone, "u1")
			return nil
		})
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, undone)
}

func TestFailureUnwindsInReverse(t *testing.T) {
	ctx, errBuf := testContext(t)
	var undone []string

	err := Run(ctx, func(ctx context.Context, tx *Tx) error {
		tx.SetRollbackWarning("partial work is being undone")
		tx.OnRollback("u1", func(context.Context) error {
			undone = append(undone, "u1")
			return nil
		})
		tx.OnRollback("u2", func(context.Context) error {
			undone = append(undone, "u2")
			return nil
		})
		return fmt.Errorf("step three failed")
	})
	require.Error(t, err)
	assert.Equal(t, []string{"u2", "u1"}, undone)
	assert.Contains(t, err.Error(), "rolled back")
	assert.Contains(t, err.Error(), "step three failed")
	assert.Contains(t, errBuf.String(), "partial work is being undone")
}

func TestInterruptUnwindsWithLiveContext(t *testing.T) {
	ctx, errBuf := testContext(t)
	var undone []string

	err := Run(ctx, func(ctx context.Context, tx *Tx) error {
		tx.SetRollbackWarning("interrupted, undoing partial setup")
		tx.OnRollback("u1", func(undoCtx context.Context) error {
			// the undo must still be able to start subprocesses after
			// the run context was canceled by the signal
			assert.NoError(t, undoCtx.Err())
			undone = append(undone, "u1")
			return nil
		})
		tx.OnRollback("u2", func(undoCtx context.Context) error {
			assert.NoError(t, undoCtx.Err())
			undone = append(undone, "u2")
			return nil
		})
		require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGINT))
		<-ctx.Done()
		return ctx.Err()
	})
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Interrupted, err))
	assert.Equal(t, []string{"u2", "u1"}, undone)
	assert.Contains(t, err.Error(), "rolled back")
	assert.Contains(t, errBuf.String(), "interrupted, undoing partial setup")
}

func TestUndoFailureIsWarnedAndSkipped(t *testing.T) {
	ctx, errBuf := testContext(t)
	var undone []string

	err := Run(ctx, func(ctx context.Context, tx *Tx) error {
		tx.OnRollback("u1", func(context.Context) error {
			undone = append(undone, "u1")
			return nil
		})
		tx.OnRollback("u2", func(context.Context) error {
			return fmt.Errorf("undo broke")
		})
		return fmt.Errorf("unit failed")
	})
	require.Error(t, err)
	// the failing undo does not stop the remaining ones
	assert.Equal(t, []string{"u1"}, undone)
	assert.Contains(t, errBuf.String(), "u2")
	assert.Contains(t, errBuf.String(), "undo broke")
}

func TestLastWarningWins(t *testing.T) {
	ctx, errBuf := testContext(t)

	err := Run(ctx, func(ctx context.Context, tx *Tx) error {
		tx.SetRollbackWarning("first")
		tx.SetRollbackWarning("second")
		return fmt.Errorf("unit failed")
	})
	require.Error(t, err)
	assert.Contains(t, errBuf.String(), "second")
	assert.NotContains(t, errBuf.String(), "first")
}

func TestNestedRunsAreIsolated(t *testing.T) {
	ctx, _ := testContext(t)
	var undone []string

	err := Run(ctx, func(ctx context.Context, tx *Tx) error {
		tx.OnRollback("outer", func(context.Context) error {
			undone = append(undone, "outer")
			return nil
		})

		// the inner failure unwinds only its own undo stack
		innerErr := Run(ctx, func(ctx context.Context, tx *Tx) error {
			tx.OnRollback("inner", func(context.Context) error {
				undone = append(undone, "inner")
				return nil
			})
			return fmt.Errorf("inner failed")
		})
		require.Error(t, innerErr)
		assert.Equal(t, []string{"inner"}, undone)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"inner"}, undone)
}
