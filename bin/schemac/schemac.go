// Copyright (c) 2024 John Millikin <john@john-millikin.com>
//
// Permission to use, copy, modify, and/or distribute this software for any
// purpose with or without fee is hereby granted.
//
// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH
// REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY
// AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT,
// INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM
// LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR
// OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR
// PERFORMANCE OF THIS SOFTWARE.
//
// SPDX-License-Identifier: 0BSD

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type command interface {
	help() *commandHelp
	flags(flags *pflag.FlagSet)
	run(ctx context.Context, env *cmdEnv, argv []string) int
}

type commandHelp struct {
	usage   string
	summary string
}

// cmdEnv is everything a command touches outside its own flags.
type cmdEnv struct {
	fs     afero.Fs
	stdout io.Writer
	stderr io.Writer
	log    *logrus.Logger
	cfg    *config
}

func main() {
	ctx := context.Background()
	os.Exit(execute(ctx, afero.NewOsFs(), os.Args[1:], os.Stdout, os.Stderr))
}

func execute(
	ctx context.Context,
	fs afero.Fs,
	args []string,
	stdout, stderr io.Writer,
) int {
	var configFile string
	rc := 0

	schemacCmd := &cobra.Command{
		Use:           "schemac [options] COMMAND",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	schemacCmd.SetArgs(args)
	schemacCmd.SetOut(stdout)
	schemacCmd.SetErr(stderr)
	schemacCmd.RunE = func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(stderr, schemacCmd.UsageString())
		rc = 1
		return nil
	}
	schemacCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Config file (default ./schemac.yaml if present)")
	schemacCmd.PersistentFlags().BoolP("verbose", "v", false,
		"Log import resolution to stderr")

	commands := []command{
		&cmdCompile{},
		&cmdEval{},
		&cmdID{},
		&cmdCodegen{},
	}
	for _, cmd := range commands {
		help := cmd.help()
		cobraCmd := &cobra.Command{
			Use:   help.usage,
			Short: help.summary,
		}
		cobraCmd.RunE = func(_ *cobra.Command, args []string) error {
			cfg, err := loadConfig(fs, configFile, cobraCmd.Flags())
			if err != nil {
				fmt.Fprintln(stderr, err)
				rc = 1
				return nil
			}
			env := &cmdEnv{
				fs:     fs,
				stdout: stdout,
				stderr: stderr,
				log:    newLogger(stderr, cfg.Verbose),
				cfg:    cfg,
			}
			rc = cmd.run(ctx, env, args)
			return nil
		}
		schemacCmd.AddCommand(cobraCmd)
		cmd.flags(cobraCmd.Flags())
	}

	if err := schemacCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return rc
}

func newLogger(w io.Writer, verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}
