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

// Package run assembles the chute command tree.
package run

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/chutedev/chute/internal/cmdbranchpoint"
	"github.com/chutedev/chute/internal/cmdhistory"
	"github.com/chutedev/chute/internal/cmdopen"
	"github.com/chutedev/chute/internal/cmdpurge"
	"github.com/chutedev/chute/internal/cmdreleases"
	"github.com/chutedev/chute/internal/cmdunpromoted"
	"github.com/chutedev/chute/internal/printer"
	"github.com/chutedev/chute/internal/util/cmdutil"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

// GetMain returns the root command with the printer wired into ctx.
func GetMain(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "chute",
		Short:        "Chute promotes changesets between environments",
		Long:         "Chute tracks changesets as git refs and promotes them between environments.",
		SilenceUsage: true,
		// Errors are handled in main after cobra returns, so library
		// error messages can be rewritten first.
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := cmd.Flags().GetBool("help")
			if err != nil {
				return err
			}
			if h {
				return cmd.Help()
			}
			return cmd.Usage()
		},
	}

	klog.InitFlags(flag.CommandLine)
	cmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	cmd.PersistentFlags().BoolVar(&cmdutil.StackOnError, "stack-trace", false,
		"Print a stack-trace on failure")

	pr := printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx = printer.WithContext(ctx, pr)

	cmd.InitDefaultHelpCmd()
	cmd.AddCommand(
		cmdopen.NewCommand(ctx),
		cmdhistory.NewCommand(ctx),
		cmdunpromoted.NewCommand(ctx),
		cmdbranchpoint.NewCommand(ctx),
		cmdpurge.NewCommand(ctx),
		cmdreleases.NewCommand(ctx),
		versionCmd,
	)

	// Command docs name the binary; keep them truthful when the tool is
	// installed under a different name.
	if name := filepath.Base(os.Args[0]); name != "chute" {
		for _, c := range cmd.Commands() {
			cmdutil.FixDocs("chute", name, c)
		}
	}

	if _, err := exec.LookPath("git"); err != nil {
		fmt.Fprintln(os.Stderr, "chute requires that `git` is installed and on the PATH")
		os.Exit(1)
	}

	hideFlags(cmd)
	return cmd
}

var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of chute",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s\n", version)
	},
}

// hideFlags hides cobra flags that are unlikely to be used day to day.
func hideFlags(cmd *cobra.Command) {
	flags := []string{
		// Flags related to logging
		"add_dir_header",
		"alsologtostderr",
		"log_backtrace_at",
		"log_dir",
		"log_file",
		"log_file_max_size",
		"logtostderr",
		"one_output",
		"skip_headers",
		"skip_log_headers",
		"stack-trace",
		"stderrthreshold",
		"vmodule",
	}
	for _, f := range flags {
		_ = cmd.PersistentFlags().MarkHidden(f)
	}

	// We need to recurse into subcommands otherwise flags aren't hidden on leaf commands
	for _, child := range cmd.Commands() {
		hideFlags(child)
	}
}
