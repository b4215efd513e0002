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

package errors

import (
	"fmt"
	"testing"

	"github.com/chutedev/chute/internal/types"
	"gotest.tools/assert"
)

func TestIsWalksTheChain(t *testing.T) {
	inner := E(Op("ledger.read"), RefNotFound, fmt.Errorf("gone"))
	outer := E(Op("cmdhistory.runE"), types.Changeset("e1"), inner)
	wrapped := fmt.Errorf("context: %w", outer)

	assert.Assert(t, Is(RefNotFound, wrapped))
	assert.Assert(t, !Is(Interrupted, wrapped))
}

func TestKindOverridesInner(t *testing.T) {
	inner := E(Op("a"), Git, fmt.Errorf("boom"))
	outer := E(Op("b"), Interrupted, inner)

	assert.Assert(t, Is(Interrupted, outer))
	assert.Assert(t, Is(Git, outer))
}

func TestAs(t *testing.T) {
	err := fmt.Errorf("wrap: %w", E(Op("a"), Exist, fmt.Errorf("already there")))
	var e *Error
	assert.Assert(t, As(err, &e))
	assert.Equal(t, Exist, e.Kind)
}

func TestChangesetCarried(t *testing.T) {
	err := E(Op("a"), types.Changeset("e7583"), fmt.Errorf("boom"))
	var e *Error
	assert.Assert(t, As(err, &e))
	assert.Equal(t, types.Changeset("e7583"), e.Changeset)
}
