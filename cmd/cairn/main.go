// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload" // load .env before viper reads the environment

	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cairnerr.ExitCode(err))
	}
}
