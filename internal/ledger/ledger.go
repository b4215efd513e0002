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

// Package ledger reads and writes the append-only per-changeset event
// log. The events of one changeset are serialized together as a single
// YAML blob referenced by the tag meta/<changeset>; replacing that tag
// (delete, create, force-push) is the only write mechanism.
package ledger

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chutedev/chute/internal/decoration"
	"github.com/chutedev/chute/internal/errors"
	"github.com/chutedev/chute/internal/gitutil"
	"github.com/chutedev/chute/internal/ref"
	"github.com/chutedev/chute/internal/types"
	"gopkg.in/yaml.v3"
)

// Event is one record of a changeset's history.
type Event struct {
	// ID is the event's position in the sequence. It is not
	// serialized: removal of an earlier event shifts later ids down.
	ID int `yaml:"-"`

	User      string `yaml:"user"`
	Changeset string `yaml:"changeset"`
	Action    string `yaml:"action"`
	Stamp     int64  `yaml:"stamp"`
	Target    string `yaml:"target,omitempty"`
	Reviewer  string `yaml:"reviewer,omitempty"`

	// Extra carries free-form fields round-trip.
	Extra map[string]string `yaml:",inline"`
}

// Entry is one append request.
type Entry struct {
	Changeset types.Changeset
	Action    string
	User      string
	Target    string
	Reviewer  string
	Extra     map[string]string

	// NoFlush leaves the buffered tag updates unpublished at the end
	// of the call, so several related writes can share one push.
	NoFlush bool
}

// Ledger provides the event-log operations.
type Ledger struct {
	g      *gitutil.Runner
	cache  *decoration.Cache
	remote string

	// user is the acting user stamped on entries that don't name one.
	user string

	// now is the clock, swappable in tests.
	now func() time.Time

	buf *pushBuffer
}

// New returns a Ledger. The remote defaults to origin and the acting
// user to $USER.
func New(g *gitutil.Runner, cache *decoration.Cache) *Ledger {
	return &Ledger{
		g:      g,
		cache:  cache,
		remote: "origin",
		user:   os.Getenv("USER"),
		now:    time.Now,
	}
}

// pushBuffer queues tag publications. Queuing a name twice keeps only
// the later operation for that name.
type pushBuffer struct {
	order []string
	ops   map[string]pushOp
}

type pushOp int

const (
	opPush pushOp = iota
	opDelete
)

func (b *pushBuffer) queue(tag string, op pushOp) {
	if b.ops == nil {
		b.ops = make(map[string]pushOp)
	}
	if _, ok := b.ops[tag]; !ok {
		b.order = append(b.order, tag)
	}
	b.ops[tag] = op
}

func (b *pushBuffer) empty() bool {
	return b == nil || len(b.order) == 0
}

// History returns the ordered event sequence of a changeset, empty when
// its ledger tag does not exist. Changesets are unique within a
// project; the ledger tag namespace belongs to the project's repository
// so the project argument only scopes reporting.
func (l *Ledger) History(ctx context.Context, project string, cs types.Changeset) ([]Event, error) {
	const op errors.Op = "ledger.History"
	events, err := l.read(ctx, cs)
	if err != nil {
		return nil, errors.E(op, cs, err)
	}
	return events, nil
}

// HistoryStatus returns the action of the most recent event, or empty
// when the changeset has no history.
func (l *Ledger) HistoryStatus(ctx context.Context, project string, cs types.Changeset) (string, error) {
	events, err := l.History(ctx, project, cs)
	if err != nil || len(events) == 0 {
		return "", err
	}
	return events[len(events)-1].Action, nil
}

// HistoryOwner returns the user who opened the changeset.
func (l *Ledger) HistoryOwner(ctx context.Context, project string, cs types.Changeset) (string, error) {
	events, err := l.History(ctx, project, cs)
	if err != nil || len(events) == 0 {
		return "", err
	}
	for _, ev := range events {
		if ev.Action == "open" {
			return ev.User, nil
		}
	}
	return events[0].User, nil
}

// HistoryReviewer returns the reviewer named by the most recent event
// that carries one.
func (l *Ledger) HistoryReviewer(ctx context.Context, project string, cs types.Changeset) (string, error) {
	events, err := l.History(ctx, project, cs)
	if err != nil {
		return "", err
	}
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Reviewer != "" {
			return events[i].Reviewer, nil
		}
	}
	return "", nil
}

// HistorySubmitter returns the user of the most recent submit event.
func (l *Ledger) HistorySubmitter(ctx context.Context, project string, cs types.Changeset) (string, error) {
	events, err := l.History(ctx, project, cs)
	if err != nil {
		return "", err
	}
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Action == "submit" {
			return events[i].User, nil
		}
	}
	return "", nil
}

// AppendEvents appends each entry to its changeset's sequence and
// returns the id assigned to the last entry, or -1 when entries is
// empty. Tag publication follows each entry's flush setting.
func (l *Ledger) AppendEvents(ctx context.Context, entries []Entry) (int, error) {
	const op errors.Op = "ledger.AppendEvents"
	lastID := -1
	for _, entry := range entries {
		if entry.Changeset.Empty() {
			return lastID, errors.E(op, errors.MissingParam,
				fmt.Errorf("entry has no changeset"))
		}
		events, err := l.read(ctx, entry.Changeset)
		if err != nil {
			return lastID, errors.E(op, entry.Changeset, err)
		}
		ev := Event{
			ID:        len(events),
			User:      entry.User,
			Changeset: string(entry.Changeset),
			Action:    entry.Action,
			Stamp:     l.now().Unix(),
			Target:    entry.Target,
			Reviewer:  entry.Reviewer,
			Extra:     entry.Extra,
		}
		if ev.User == "" {
			ev.User = l.user
		}
		events = append(events, ev)
		if err := l.write(ctx, entry.Changeset, events); err != nil {
			return lastID, errors.E(op, entry.Changeset, err)
		}
		lastID = ev.ID
		if !entry.NoFlush {
			if err := l.Flush(ctx); err != nil {
				return lastID, errors.E(op, entry.Changeset, err)
			}
		}
	}
	return lastID, nil
}

// RemoveEvent splices out the event at the given position. Later events
// shift down by one id; identifiers held across a removal go stale.
// That array-index behavior is long-standing and kept deliberately.
func (l *Ledger) RemoveEvent(ctx context.Context, cs types.Changeset, id int, flush bool) error {
	const op errors.Op = "ledger.RemoveEvent"
	events, err := l.read(ctx, cs)
	if err != nil {
		return errors.E(op, cs, err)
	}
	if id < 0 || id >= len(events) {
		return errors.E(op, cs, errors.InvalidParam,
			fmt.Errorf("no event with id %d (ledger has %d events)", id, len(events)))
	}
	events = append(events[:id], events[id+1:]...)
	for i := range events {
		events[i].ID = i
	}
	if err := l.write(ctx, cs, events); err != nil {
		return errors.E(op, cs, err)
	}
	if flush {
		if err := l.Flush(ctx); err != nil {
			return errors.E(op, cs, err)
		}
	}
	return nil
}

// RemoveAllEvents drops the changeset's ledger entirely, locally and,
// on flush, on the remote.
func (l *Ledger) RemoveAllEvents(ctx context.Context, cs types.Changeset, flush bool) error {
	const op errors.Op = "ledger.RemoveAllEvents"
	tag := ref.Meta(cs)
	if l.tagExists(ctx, tag) {
		if err := l.cache.Untag(ctx, tag); err != nil {
			return errors.E(op, cs, err)
		}
	}
	l.buffer().queue(tag, opDelete)
	if flush {
		if err := l.Flush(ctx); err != nil {
			return errors.E(op, cs, err)
		}
	}
	return nil
}

// Restore writes a previously read event sequence back verbatim,
// stamps included. Purge uses it to roll the ledger back when a wider
// transaction fails after the removal.
func (l *Ledger) Restore(ctx context.Context, cs types.Changeset, events []Event, flush bool) error {
	const op errors.Op = "ledger.Restore"
	if err := l.write(ctx, cs, events); err != nil {
		return errors.E(op, cs, err)
	}
	if flush {
		if err := l.Flush(ctx); err != nil {
			return errors.E(op, cs, err)
		}
	}
	return nil
}

// Flush publishes the buffered tag updates to the shared remote in one
// forced push. There is no locking: the push force-replaces each tag,
// so two processes racing on the same changeset overwrite one another
// last-write-wins. That optimistic trade-off is accepted.
func (l *Ledger) Flush(ctx context.Context) error {
	const op errors.Op = "ledger.Flush"
	if l.buf.empty() {
		return nil
	}
	args := []string{"push", "--force", l.remote}
	for _, tag := range l.buf.order {
		spec := "refs/tags/" + tag
		if l.buf.ops[tag] == opDelete {
			spec = ":refs/tags/" + tag
		}
		args = append(args, spec)
	}
	if err := l.g.Run(ctx, args...); err != nil {
		return errors.E(op, err)
	}
	l.buf = nil
	return nil
}

// Pending returns the tags queued for publication, in order. Used by
// callers deciding whether a deferred flush is still owed.
func (l *Ledger) Pending() []string {
	if l.buf.empty() {
		return nil
	}
	return append([]string(nil), l.buf.order...)
}

func (l *Ledger) buffer() *pushBuffer {
	if l.buf == nil {
		l.buf = &pushBuffer{}
	}
	return l.buf
}

// read loads and decodes the changeset's event sequence.
func (l *Ledger) read(ctx context.Context, cs types.Changeset) ([]Event, error) {
	const op errors.Op = "ledger.read"
	tag := ref.Meta(cs)
	if !l.tagExists(ctx, tag) {
		return nil, nil
	}
	lines, err := l.g.RunLines(ctx, "cat-file", "blob", "refs/tags/"+tag)
	if err != nil {
		return nil, errors.E(op, err)
	}
	var events []Event
	if err := yaml.Unmarshal([]byte(strings.Join(lines, "\n")), &events); err != nil {
		return nil, errors.E(op, errors.Internal,
			fmt.Errorf("malformed ledger object for tag %s: %w", tag, err))
	}
	for i := range events {
		events[i].ID = i
	}
	return events, nil
}

// write serializes the sequence as one blob and replaces the ledger tag
// with the delete-then-create discipline, queuing the publication.
func (l *Ledger) write(ctx context.Context, cs types.Changeset, events []Event) error {
	const op errors.Op = "ledger.write"
	data, err := yaml.Marshal(events)
	if err != nil {
		return errors.E(op, errors.Internal, err)
	}
	blob, err := l.g.RunInput(ctx, string(data), "hash-object", "-w", "--stdin")
	if err != nil {
		return errors.E(op, err)
	}
	tag := ref.Meta(cs)
	if l.tagExists(ctx, tag) {
		if err := l.cache.Untag(ctx, tag); err != nil {
			return errors.E(op, err)
		}
	}
	if err := l.cache.Tag(ctx, tag, types.CommitID(blob), false); err != nil {
		return errors.E(op, err)
	}
	l.buffer().queue(tag, opPush)
	return nil
}

// tagExists checks the local repository, not just the snapshot cache,
// since ledger tags are created and deleted within one invocation.
func (l *Ledger) tagExists(ctx context.Context, tag string) bool {
	if _, ok := l.cache.CommitOf(tag); ok {
		return true
	}
	out, err := l.g.RunScalar(ctx, "rev-parse", "--verify", "--quiet", "refs/tags/"+tag)
	return err == nil && out != ""
}
