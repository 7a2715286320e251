package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fieldwork-io/fieldwork/internal/draft"
	"github.com/fieldwork-io/fieldwork/internal/session"
)

// NewAssessCommand loads definitions plus a value document, runs event
// processing and validation, and prints the projected assessment.
func NewAssessCommand(opts *RootOptions) *cobra.Command {
	var instrumentPath, formPath, valuesPath, draftDB string
	var params []string

	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Project a value document into a submission-ready assessment",
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := LoadInstrument(instrumentPath)
			if err != nil {
				return err
			}
			formDef, err := LoadForm(formPath)
			if err != nil {
				return err
			}
			value, err := LoadValue(valuesPath)
			if err != nil {
				return err
			}

			paramMap, err := parseParams(params)
			if err != nil {
				return err
			}

			var sessionOpts []session.Option
			if draftDB != "" {
				store, err := draft.Open(draftDB)
				if err != nil {
					return err
				}
				defer store.Close()
				sessionOpts = append(sessionOpts, session.WithDraftStore(store))
			}

			sess, err := session.New(def, formDef, nil, paramMap, sessionOpts...)
			if err != nil {
				return err
			}
			if opts.Verbose {
				for _, w := range sess.Warnings() {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
				}
			}

			sess.Replace(cmd.Context(), value)
			violations := sess.Validate()
			doc, err := sess.Complete()
			if err != nil {
				return err
			}

			payload := map[string]any{
				"assessment": doc,
				"violations": violations,
			}
			data, err := json.MarshalIndent(payload, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			if len(violations) > 0 {
				return fmt.Errorf("%d validation failure(s)", len(violations))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&instrumentPath, "instrument", "i", "", "instrument definition file (required)")
	cmd.Flags().StringVarP(&formPath, "form", "f", "", "form definition file (required)")
	cmd.Flags().StringVar(&valuesPath, "values", "", "value document file (required)")
	cmd.Flags().StringVar(&draftDB, "draft-db", "", "sqlite database for draft snapshots")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "form parameter (name=value, repeatable)")
	cmd.MarkFlagRequired("instrument")
	cmd.MarkFlagRequired("form")
	cmd.MarkFlagRequired("values")
	return cmd
}

func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q: want name=value", pair)
		}
		out[name] = value
	}
	return out, nil
}
