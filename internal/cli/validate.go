package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldwork-io/fieldwork/internal/events"
	"github.com/fieldwork-io/fieldwork/internal/instrument"
	"github.com/fieldwork-io/fieldwork/internal/schema"
)

// NewValidateCommand checks an instrument and form pair: structural
// checks, type resolution, schema compilation, and event catalog
// construction (reporting unknown-target warnings).
func NewValidateCommand(opts *RootOptions) *cobra.Command {
	var instrumentPath, formPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate an instrument and form definition pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := LoadInstrument(instrumentPath)
			if err != nil {
				return err
			}
			if err := def.Validate(); err != nil {
				return fmt.Errorf("instrument: %w", err)
			}
			catalog, err := instrument.NewCatalog(def.Types)
			if err != nil {
				return fmt.Errorf("instrument types: %w", err)
			}
			record, err := schema.Compile(def.Record, "", catalog)
			if err != nil {
				return fmt.Errorf("schema: %w", err)
			}

			formDef, err := LoadForm(formPath)
			if err != nil {
				return err
			}
			if err := formDef.Validate(); err != nil {
				return fmt.Errorf("form: %w", err)
			}
			_, warnings, err := events.Create(formDef, record, events.NewCUEEvaluator())
			if err != nil {
				return fmt.Errorf("events: %w", err)
			}

			return printValidation(cmd, opts, def.ID, len(record), warnings)
		},
	}

	cmd.Flags().StringVarP(&instrumentPath, "instrument", "i", "", "instrument definition file (required)")
	cmd.Flags().StringVarP(&formPath, "form", "f", "", "form definition file (required)")
	cmd.MarkFlagRequired("instrument")
	cmd.MarkFlagRequired("form")
	return cmd
}

func printValidation(cmd *cobra.Command, opts *RootOptions, instrumentID string, fields int, warnings []events.Warning) error {
	if opts.Format == "json" {
		payload := map[string]any{
			"instrument": instrumentID,
			"fields":     fields,
			"valid":      true,
			"warnings":   warningStrings(warnings),
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "ok: instrument %s (%d fields)\n", instrumentID, fields)
	for _, w := range warnings {
		fmt.Fprintf(cmd.OutOrStdout(), "warning: %s\n", w)
	}
	return nil
}

func warningStrings(warnings []events.Warning) []string {
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, w.String())
	}
	return out
}
