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

import goerrors "errors"

// As is a thin wrapper around the standard library's errors.As so that
// callers of this package don't need a second errors import.
func As(err error, target interface{}) bool {
	return goerrors.As(err, target)
}

// Unwrap is a thin wrapper around the standard library's errors.Unwrap.
func Unwrap(err error) error {
	return goerrors.Unwrap(err)
}
