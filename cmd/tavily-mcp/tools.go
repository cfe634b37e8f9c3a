package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// errToolFailed makes `call` exit non-zero after printing the failure text.
var errToolFailed = errors.New("tool call failed")

func newToolsCmd(opts *rootOptions) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools this server exposes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			out := cmd.OutOrStdout()
			if !verbose {
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "NAME\tDESCRIPTION\n")
				for _, s := range a.dispatcher.ListTools() {
					fmt.Fprintf(w, "%s\t%s\n", s.Name, s.Description)
				}
				return w.Flush()
			}

			for _, s := range a.dispatcher.ListTools() {
				fmt.Fprintf(out, "Name:        %s\n", s.Name)
				fmt.Fprintf(out, "Description: %s\n", s.Description)
				fmt.Fprintf(out, "Input Schema:\n")
				var pretty bytes.Buffer
				if err := json.Indent(&pretty, s.Parameters, "", "  "); err == nil {
					fmt.Fprintf(out, "%s\n\n", pretty.String())
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print input schemas")
	return cmd
}

func newCallCmd(opts *rootOptions) *cobra.Command {
	var pairs []string
	var rawJSON string

	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Invoke one tool and print its text result",
		Example: `  tavily-mcp call simple_search --arg query="go generics"
  tavily-mcp call fetch --json '{"url":"https://go.dev"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			callArgs, err := buildCallArgs(pairs, rawJSON)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), opts.configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			result := a.dispatcher.CallTool(cmd.Context(), args[0], callArgs)
			fmt.Fprintln(cmd.OutOrStdout(), result.Content)
			if result.IsError {
				return errToolFailed
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&pairs, "arg", nil, "argument as key=value (repeatable)")
	cmd.Flags().StringVar(&rawJSON, "json", "", "arguments as a JSON object")
	cmd.MarkFlagsMutuallyExclusive("arg", "json")
	return cmd
}

// buildCallArgs turns --arg pairs or --json into the raw argument object.
func buildCallArgs(pairs []string, rawJSON string) (json.RawMessage, error) {
	if rawJSON != "" {
		var obj map[string]any
		if err := json.Unmarshal([]byte(rawJSON), &obj); err != nil {
			return nil, fmt.Errorf("--json must be a JSON object: %w", err)
		}
		return json.RawMessage(rawJSON), nil
	}

	obj := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --arg %q: want key=value", p)
		}
		obj[strings.TrimSpace(k)] = v
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	return data, nil
}
