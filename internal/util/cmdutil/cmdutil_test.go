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

package cmdutil

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixDocs(t *testing.T) {
	c := &cobra.Command{
		Use:     "open NAME",
		Short:   "chute open creates a changeset",
		Long:    "chute open NAME\n\nCreates the changeset branch.",
		Example: "  chute open e7583",
	}
	FixDocs("chute", "ct", c)
	assert.Equal(t, "ct open creates a changeset", c.Short)
	assert.Contains(t, c.Long, "ct open NAME")
	assert.Contains(t, c.Example, "ct open e7583")
	assert.NotContains(t, c.Long, "chute")
}

func TestHandleErrorStackTrace(t *testing.T) {
	errBuf := &bytes.Buffer{}
	c := &cobra.Command{}
	c.SetErr(errBuf)

	StackOnError = false
	defer func() { StackOnError = false }()

	err := fmt.Errorf("boom")
	require.Equal(t, err, HandleError(c, err))
	assert.Empty(t, errBuf.String())

	StackOnError = true
	require.Equal(t, err, HandleError(c, err))
	assert.Contains(t, errBuf.String(), "boom")

	require.NoError(t, HandleError(c, nil))
}
