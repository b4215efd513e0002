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

// Package tracker gives workflow commands one handle over the remote
// issue tracker. The variants form a closed set selected by
// configuration; a repository with no tracker configured gets a working
// handle whose calls report ErrNotConfigured, which callers tolerate.
package tracker

import (
	"context"
	goerrors "errors"
	"fmt"
	"regexp"

	"github.com/chutedev/chute/internal/config"
	"github.com/chutedev/chute/internal/errors"
	"github.com/chutedev/chute/internal/types"
)

// ErrNotConfigured is reported by the none variant.
var ErrNotConfigured = goerrors.New("no issue tracker configured")

// Issue is the tracker-independent view of an issue.
type Issue struct {
	Number  string
	State   string
	Summary string
	URL     string
}

// Tracker is the capability interface every variant implements.
type Tracker interface {
	GetIssue(ctx context.Context, number string) (*Issue, error)
	TransitionState(ctx context.Context, number, state string) error
	IssueState(ctx context.Context, number string) (string, error)
	IssueNumber(cs types.Changeset) string
	LabelService() string
}

// New selects the tracker variant from configuration.
func New(cfg config.Tracker) (Tracker, error) {
	const op errors.Op = "tracker.New"
	switch cfg.Kind {
	case "":
		return &none{}, nil
	case "eventum":
		return &eventum{cfg: cfg}, nil
	case "jira":
		return &jira{cfg: cfg}, nil
	case "github":
		return &github{cfg: cfg}, nil
	case "rt":
		return &rt{cfg: cfg}, nil
	}
	return nil, errors.E(op, errors.InvalidParam,
		fmt.Errorf("unknown tracker kind %q", cfg.Kind))
}

// digitsRe extracts the numeric issue id embedded in a changeset name.
var digitsRe = regexp.MustCompile(`[0-9]+`)

func issueDigits(cs types.Changeset) string {
	return digitsRe.FindString(string(cs))
}

// none is the variant used when no tracker is configured.
type none struct{}

func (*none) GetIssue(context.Context, string) (*Issue, error) {
	return nil, ErrNotConfigured
}

func (*none) TransitionState(context.Context, string, string) error {
	return ErrNotConfigured
}

func (*none) IssueState(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}

func (*none) IssueNumber(types.Changeset) string { return "" }

func (*none) LabelService() string { return "none" }
