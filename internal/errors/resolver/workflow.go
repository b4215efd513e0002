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

package resolver

import (
	"fmt"

	"github.com/chutedev/chute/internal/errors"
)

//nolint:gochecknoinits
func init() {
	AddErrorResolver(&workflowErrorResolver{})
}

// workflowErrorResolver produces messages for the error kinds raised by
// the workflow core itself.
type workflowErrorResolver struct{}

func (*workflowErrorResolver) Resolve(err error) (ResolvedResult, bool) {
	var chuteErr *errors.Error
	if !errors.As(err, &chuteErr) {
		return ResolvedResult{}, false
	}

	switch {
	case errors.Is(errors.RefNotFound, err):
		return ResolvedResult{
			Message: fmt.Sprintf("Error: %v", err),
		}, true
	case errors.Is(errors.ConfigMissing, err):
		return ResolvedResult{
			Message: fmt.Sprintf("Error: %v", err),
		}, true
	case errors.Is(errors.Interrupted, err):
		return ResolvedResult{
			Message:  fmt.Sprintf("Error: operation interrupted, completed changes were rolled back\n%v", err),
			ExitCode: 130,
		}, true
	}
	return ResolvedResult{}, false
}
