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

// Package printer defines utilities to display chute CLI output.
package printer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chutedev/chute/internal/types"
)

// Printer defines capabilities to display content in the chute CLI.
// Abstracting away output in the CLI lets the UX evolve without
// touching the workflow code.
type Printer interface {
	Printf(format string, args ...interface{})
	OptPrintf(opt *Options, format string, args ...interface{})
	OutStream() io.Writer
}

// Options are optional options for printer
type Options struct {
	// Indentation is the number of spaces added at the beginning
	// of each line
	Indentation int
	// OutputToStderr indicates should output be printed to stderr instead
	// of stdout
	OutputToStderr bool
	// Changeset is the changeset the message is about.
	Changeset types.Changeset
}

// NewOpt returns a pointer to new options
func NewOpt() *Options {
	return &Options{}
}

// Changeset sets the changeset in options
func (opt *Options) Cs(c types.Changeset) *Options {
	opt.Changeset = c
	return opt
}

// Indent sets the output indentation in options
func (opt *Options) Indent(i int) *Options {
	opt.Indentation = i
	return opt
}

// Stderr sets output to stderr in options
func (opt *Options) Stderr() *Options {
	opt.OutputToStderr = true
	return opt
}

// New returns an instance of Printer.
func New(outStream, errStream io.Writer) Printer {
	if outStream == nil {
		outStream = os.Stdout
	}
	if errStream == nil {
		errStream = os.Stderr
	}
	return &printer{
		outStream: outStream,
		errStream: errStream,
	}
}

// printer implements the default Printer used in the chute codebase.
type printer struct {
	outStream io.Writer
	errStream io.Writer
}

// The key type is unexported to prevent collisions with context keys defined in
// other packages.
type contextKey int

// printerKey is the context key for the printer.  Its value of zero is
// arbitrary.  If this package defined other context keys, they would have
// different integer values.
const printerKey contextKey = 0

// Printf is the wrapper over fmt.Printf that displays the output.
func (pr *printer) Printf(format string, args ...interface{}) {
	fmt.Fprintf(pr.outStream, format, args...)
}

// OutStream returns the writer used for stdout output.
func (pr *printer) OutStream() io.Writer {
	return pr.outStream
}

// OptPrintf is the wrapper over fmt.Printf that displays the output according
// to the opt.
func (pr *printer) OptPrintf(opt *Options, format string, args ...interface{}) {
	if opt == nil {
		fmt.Fprintf(pr.outStream, format, args...)
		return
	}
	o := pr.outStream
	if opt.OutputToStderr {
		o = pr.errStream
	}
	if !opt.Changeset.Empty() {
		format = fmt.Sprintf("Changeset %q: ", string(opt.Changeset)) + format
	}
	if opt.Indentation != 0 {
		// we need to add indentation to each line
		indentPrintf(o, opt.Indentation, format, args...)
		return
	}
	fmt.Fprintf(o, format, args...)
}

func indentPrintf(w io.Writer, indentation int, format string, a ...interface{}) {
	s := fmt.Sprintf(format, a...)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		// don't add newline for last line to respect the original input
		// format
		newline := "\n"
		if i == len(lines)-1 {
			newline = ""
		}
		if l == "" {
			// don't print indentation when the line is empty
			fmt.Fprint(w, newline)
		} else {
			fmt.Fprint(w, strings.Repeat(" ", indentation)+l+newline)
		}
	}
}

// Helper functions to set and retrieve printer instance from a context.
// Defining them here avoids the context key collision.

// FromContextOrDie returns printer instance associated with the context.
func FromContextOrDie(ctx context.Context) Printer {
	pr, ok := ctx.Value(printerKey).(Printer)
	if ok {
		return pr
	}
	panic("printer missing in context")
}

// WithContext creates new context from the given parent context
// by setting the printer instance.
func WithContext(ctx context.Context, pr Printer) context.Context {
	return context.WithValue(ctx, printerKey, pr)
}
