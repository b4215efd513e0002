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

package stack

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPushPop(t *testing.T) {
	s := NewActions()
	assert.Zero(t, s.Len())

	s.Push(Action{Name: "a"})
	s.Push(Action{Name: "b"})
	assert.Equal(t, 2, s.Len())

	assert.Equal(t, "b", s.Pop().Name)
	assert.Equal(t, "a", s.Pop().Name)
	assert.Zero(t, s.Len())
}

func TestPopEmptyPanics(t *testing.T) {
	s := NewActions()
	assert.Panics(t, func() { s.Pop() })
}
