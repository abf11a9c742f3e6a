package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mec/internal/event"
	"mec/internal/queue"
	"mec/internal/rdf"
)

// readEventFile loads an envelope or a bare event from path, or stdin for "-".
func readEventFile(cmd *cobra.Command, path string) (*event.MusicEvent, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	env, err := queue.DecodeEnvelope(data)
	if err == nil {
		return env.Event, nil
	}
	if !errors.Is(err, queue.ErrEmptyEnvelope) {
		return nil, err
	}
	var ev event.MusicEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &ev, nil
}

func doorPolicy(ctx *commandContext, flag string) (event.DoorPolicy, error) {
	if flag = strings.TrimSpace(flag); flag != "" {
		return event.ParseDoorPolicy(flag)
	}
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return event.DoorsEqualOrLater, err
	}
	return event.ParseDoorPolicy(cfg.Handler.DoorPolicy)
}

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var policyFlag string
	cmd := &cobra.Command{
		Use:   "validate <file|->",
		Short: "Validate an event or envelope JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := doorPolicy(ctx, policyFlag)
			if err != nil {
				return err
			}
			ev, err := readEventFile(cmd, args[0])
			if err != nil {
				return err
			}
			ev.EnsureIDs()
			failures := event.Validator{Doors: policy}.Validate(ev)
			out := cmd.OutOrStdout()
			if len(failures) == 0 {
				fmt.Fprintf(out, "%s: valid\n", ev.Name)
				return nil
			}
			rows := make([][]string, 0, len(failures))
			for _, f := range failures {
				rows = append(rows, []string{f.Field, f.Reason})
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Problem"}, rows, nil))
			return fmt.Errorf("%d validation failure(s)", len(failures))
		},
	}
	cmd.Flags().StringVar(&policyFlag, "door-policy", "", "Override handler.door_policy (equal-or-later or strict)")
	return cmd
}

func newSerializeCommand(ctx *commandContext) *cobra.Command {
	var policyFlag string
	var skipValidation bool
	cmd := &cobra.Command{
		Use:   "serialize <file|->",
		Short: "Print the N-Triples for an event or envelope JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := readEventFile(cmd, args[0])
			if err != nil {
				return err
			}
			ev.EnsureIDs()
			if !skipValidation {
				policy, err := doorPolicy(ctx, policyFlag)
				if err != nil {
					return err
				}
				if err := (event.Validator{Doors: policy}).Validate(ev).Err(); err != nil {
					return fmt.Errorf("event is invalid: %w", err)
				}
			}
			triples, err := event.Serialize(ev)
			if err != nil {
				return err
			}
			return rdf.WriteNTriples(cmd.OutOrStdout(), triples)
		},
	}
	cmd.Flags().StringVar(&policyFlag, "door-policy", "", "Override handler.door_policy (equal-or-later or strict)")
	cmd.Flags().BoolVar(&skipValidation, "no-validate", false, "Serialize without validating first")
	return cmd
}
