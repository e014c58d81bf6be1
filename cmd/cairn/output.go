// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

// outputFormat returns the validated --output value.
func outputFormat(cmd *cobra.Command) (string, error) {
	format, _ := cmd.Flags().GetString("output")
	switch format {
	case "", outputText:
		return outputText, nil
	case outputJSON, outputYAML:
		return format, nil
	default:
		return "", cairnerr.Errorf(cairnerr.CodeCLIInputInvalid,
			"unknown output format %q (want text, json or yaml)", format)
	}
}

// render writes v in the selected format. text renders the human form.
func render(cmd *cobra.Command, v any, text func(w io.Writer) error) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return cairnerr.Wrap(err, cairnerr.CodeCLIOutputFailure, "encoding json")
		}
		return nil
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return cairnerr.Wrap(err, cairnerr.CodeCLIOutputFailure, "encoding yaml")
		}
		if err := enc.Close(); err != nil {
			return cairnerr.Wrap(err, cairnerr.CodeCLIOutputFailure, "encoding yaml")
		}
		return nil
	default:
		return text(w)
	}
}

// table writes a tab-aligned table with a header row.
func table(w io.Writer, header string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, header)
	for _, row := range rows {
		_, _ = fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// none prints the empty-result line for a text listing.
func none(w io.Writer, what string) error {
	_, err := fmt.Fprintf(w, "No %s found\n", what)
	return err
}

func shorten(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
