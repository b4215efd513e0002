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

// Package ref owns the ref naming contract shared by every component:
//
//	cs/<changeset>/head          merged head of the changeset
//	cs/<changeset>/to-<env>      promotion marker for an environment
//	cs/<changeset>/rm-<env>      demotion marker (read-only here)
//	meta/<changeset>             ledger tag
//	origin/pu/<changeset>        pending-review remote ref
//	version/<branch>/<maj>.<min> version tags
package ref

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/chutedev/chute/internal/errors"
	"github.com/chutedev/chute/internal/gitutil"
	"github.com/chutedev/chute/internal/types"
)

const (
	csPrefix      = "cs/"
	metaPrefix    = "meta/"
	pendingPrefix = "origin/pu/"
	versionPrefix = "version/"
)

// Head returns the merged-head ref for a changeset.
func Head(cs types.Changeset) string {
	return csPrefix + string(cs) + "/head"
}

// Promoted returns the promotion marker for a changeset and environment.
func Promoted(cs types.Changeset, env string) string {
	return csPrefix + string(cs) + "/to-" + env
}

// Demoted returns the demotion marker for a changeset and environment.
func Demoted(cs types.Changeset, env string) string {
	return csPrefix + string(cs) + "/rm-" + env
}

// Meta returns the ledger tag for a changeset.
func Meta(cs types.Changeset) string {
	return metaPrefix + string(cs)
}

// PendingReview returns the pending-review remote ref for a changeset.
func PendingReview(cs types.Changeset) string {
	return pendingPrefix + string(cs)
}

// Version returns the version tag for a branch.
func Version(branch string, major, minor uint64) string {
	return fmt.Sprintf("%s%s/%d.%d", versionPrefix, branch, major, minor)
}

var (
	headRe     = regexp.MustCompile(`^cs/(.+)/head$`)
	promotedRe = regexp.MustCompile(`^cs/(.+)/to-([^/]+)$`)
	demotedRe  = regexp.MustCompile(`^cs/(.+)/rm-([^/]+)$`)
	pendingRe  = regexp.MustCompile(`^origin/pu/(.+)$`)
	versionRe  = regexp.MustCompile(`^version/(.+)/(\d+)\.(\d+)$`)
)

// ParseHead extracts the changeset from a merged-head decoration.
func ParseHead(name string) (types.Changeset, bool) {
	m := headRe.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return types.Changeset(m[1]), true
}

// ParsePromoted extracts the changeset and environment from a promotion
// marker decoration.
func ParsePromoted(name string) (types.Changeset, string, bool) {
	m := promotedRe.FindStringSubmatch(name)
	if m == nil {
		return "", "", false
	}
	return types.Changeset(m[1]), m[2], true
}

// ParseDemoted extracts the changeset and environment from a demotion
// marker decoration.
func ParseDemoted(name string) (types.Changeset, string, bool) {
	m := demotedRe.FindStringSubmatch(name)
	if m == nil {
		return "", "", false
	}
	return types.Changeset(m[1]), m[2], true
}

// ParsePendingReview extracts the changeset from a pending-review
// decoration.
func ParsePendingReview(name string) (types.Changeset, bool) {
	m := pendingRe.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return types.Changeset(m[1]), true
}

// ParseVersion extracts the branch and version from a version tag.
func ParseVersion(name string) (string, *semver.Version, bool) {
	m := versionRe.FindStringSubmatch(name)
	if m == nil {
		return "", nil, false
	}
	v, err := semver.NewVersion(m[2] + "." + m[3] + ".0")
	if err != nil {
		return "", nil, false
	}
	return m[1], v, true
}

// Changeset extracts the changeset short name from any of the ref forms
// that can address one: a merged head, a pending-review ref, or the bare
// branch name itself.
func Changeset(name string) types.Changeset {
	if cs, ok := ParseHead(name); ok {
		return cs
	}
	if cs, ok := ParsePendingReview(name); ok {
		return cs
	}
	if cs, _, ok := ParsePromoted(name); ok {
		return cs
	}
	name = strings.TrimPrefix(name, metaPrefix)
	return types.Changeset(name)
}

// Resolve resolves a changeset to a commit, trying the three address
// forms in priority order: merged head, pending-review ref, open branch.
// The returned string is the ref form that matched.
func Resolve(ctx context.Context, g *gitutil.Runner, cs types.Changeset) (types.CommitID, string, error) {
	const op errors.Op = "ref.Resolve"
	for _, name := range []string{Head(cs), PendingReview(cs), string(cs)} {
		id, err := ResolveRef(ctx, g, name)
		if err == nil {
			return id, name, nil
		}
		if !errors.Is(errors.RefNotFound, err) {
			return "", "", errors.E(op, cs, err)
		}
	}
	return "", "", errors.E(op, cs, errors.RefNotFound,
		fmt.Errorf("no head, pending-review ref or branch for changeset"))
}

// ResolveRef resolves a single ref name to a commit id. A name that does
// not resolve yields a RefNotFound error, which most callers treat as
// "changeset not applicable" rather than a failure.
func ResolveRef(ctx context.Context, g *gitutil.Runner, name string) (types.CommitID, error) {
	const op errors.Op = "ref.ResolveRef"
	out, err := g.RunScalar(ctx, "rev-parse", "--verify", "--quiet", name+"^{commit}")
	if err != nil {
		return "", errors.E(op, err)
	}
	// rev-parse --quiet prints nothing when the name is unknown; its
	// exit status is not visible in scalar mode by design.
	if !commitIDRe.MatchString(out) {
		return "", errors.E(op, errors.RefNotFound,
			fmt.Errorf("%q does not resolve to a commit", name))
	}
	return types.CommitID(out), nil
}

var commitIDRe = regexp.MustCompile(`^[0-9a-f]{4,64}$`)

// nameRe splits a changeset name into a letter prefix, a numeric core
// and a trailing suffix for canonical ordering.
var nameRe = regexp.MustCompile(`^([^0-9]*)([0-9]+)(.*)$`)

// Compare orders changeset names canonically: by prefix, then numeric
// core compared as a number, then suffix. Names without a numeric core
// sort after all numeric ones, among themselves lexically.
func Compare(a, b types.Changeset) int {
	ma := nameRe.FindStringSubmatch(string(a))
	mb := nameRe.FindStringSubmatch(string(b))
	switch {
	case ma == nil && mb == nil:
		return strings.Compare(string(a), string(b))
	case ma == nil:
		return 1
	case mb == nil:
		return -1
	}
	if c := strings.Compare(ma[1], mb[1]); c != 0 {
		return c
	}
	na, _ := strconv.Atoi(ma[2])
	nb, _ := strconv.Atoi(mb[2])
	if na != nb {
		if na < nb {
			return -1
		}
		return 1
	}
	return strings.Compare(ma[3], mb[3])
}

// Sort sorts changeset names in place into canonical order.
func Sort(names []types.Changeset) {
	sort.SliceStable(names, func(i, j int) bool {
		return Compare(names[i], names[j]) < 0
	})
}
