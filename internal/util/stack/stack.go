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

import "fmt"

// Action is a named, argument-less operation held on a stack.
type Action struct {
	// Name describes the action for diagnostics.
	Name string

	// Fn performs the action.
	Fn func() error
}

// NewActions returns a new stack for elements of Action type.
func NewActions() *Actions {
	return &Actions{
		slice: make([]Action, 0),
	}
}

type Actions struct {
	slice []Action
}

func (s *Actions) Push(a Action) {
	s.slice = append(s.slice, a)
}

func (s *Actions) Pop() Action {
	l := len(s.slice)
	if l == 0 {
		panic(fmt.Errorf("can't pop an empty stack"))
	}
	a := s.slice[l-1]
	s.slice = s.slice[:l-1]
	return a
}

func (s *Actions) Len() int {
	return len(s.slice)
}
