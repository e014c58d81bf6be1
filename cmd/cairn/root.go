// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package main

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cairn-dev/cairn/internal/config"
	"github.com/cairn-dev/cairn/internal/secrets"
	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

// NewRootCmd creates the root cairn command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cairn",
		Short:         "Cairn, a work-planning graph on Postgres and Apache AGE",
		Long:          "Cairn stores zones, plans, tasks and memories as a property graph and keeps task order, dependencies and related notes queryable.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initViper(cmd); err != nil {
				return err
			}
			setupLogging(cmd.ErrOrStderr())
			return nil
		},
	}

	// Global flags, bound to viper keys in initViper.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringP("output", "o", outputText, "output format: text, json or yaml")

	root.AddCommand(
		newInitCmd(),
		newStatusCmd(),
		newVersionCmd(),
		newZoneCmd(),
		newPlanCmd(),
		newTaskCmd(),
		newMemoryCmd(),
		newSecretCmd(),
		newDoctorCmd(),
	)

	return root
}

// initViper sets up the global Viper with defaults, env bindings, flag
// bindings, and optional config file so the standard precedence
// (flag > env > file > defaults) is handled uniformly.
func initViper(cmd *cobra.Command) error {
	v := viper.GetViper()

	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return cairnerr.Errorf(cairnerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// SetConfigType is omitted so viper never tries the bare name,
		// which would collide with a ./cairn binary.
		v.SetConfigName("cairn")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/cairn")
		v.AddConfigPath("/etc/cairn")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return cairnerr.Errorf(cairnerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
			if path := config.BootstrapConfig(); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return cairnerr.Errorf(cairnerr.CodeConfigLoadReadFailure, "reading bootstrapped config: %w", err)
				}
			}
		}
	}

	secrets.ResolveViper(v, secretStoreFactory(), slog.Default())

	if err := v.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
		return cairnerr.Errorf(cairnerr.CodeCLISetupFailure, "binding verbose flag: %w", err)
	}

	return nil
}

// setupLogging installs the default slog handler from log.level and
// log.format. --verbose forces debug.
func setupLogging(w io.Writer) {
	slog.SetDefault(newLogger(w,
		config.LogConfig{Level: viper.GetString("log.level"), Format: viper.GetString("log.format")},
		viper.GetBool("verbose")))
}

func newLogger(w io.Writer, lc config.LogConfig, verbose bool) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := lc.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
