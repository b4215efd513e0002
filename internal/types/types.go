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

// Package types defines types shared by most packages in the codebase.
package types

// Changeset is the short name of a changeset, unique within a project.
// It is the key under which the branch, the promotion markers and the
// meta-data ledger for a unit of work are filed in the ref namespace.
type Changeset string

func (c Changeset) String() string {
	return string(c)
}

// Empty returns true if the changeset name is empty.
func (c Changeset) Empty() bool {
	return string(c) == ""
}

// CommitID is a git commit identifier (full or abbreviated SHA).
type CommitID string

func (id CommitID) String() string {
	return string(id)
}

// Empty returns true if the commit id is empty.
func (id CommitID) Empty() bool {
	return string(id) == ""
}
