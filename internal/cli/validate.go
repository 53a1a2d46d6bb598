package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ml-archive/dandy/internal/schema"
)

// NewValidateCommand creates the validate command: compile a model file and
// report what it defines.
func NewValidateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <model.cue>",
		Short: "Compile a CUE data model and report its entities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := schema.LoadModel(args[0])
			if err != nil {
				return err
			}

			type entitySummary struct {
				Name          string `json:"name"`
				Parent        string `json:"parent,omitempty"`
				Attributes    int    `json:"attributes"`
				Relationships int    `json:"relationships"`
				Unique        bool   `json:"unique"`
				Singleton     bool   `json:"singleton"`
			}

			var summaries []entitySummary
			for _, e := range model.Entities() {
				summaries = append(summaries, entitySummary{
					Name:          e.Name,
					Parent:        e.Parent,
					Attributes:    len(e.FlattenedAttributes()),
					Relationships: len(e.FlattenedRelationships()),
					Unique:        e.IsUnique(),
					Singleton:     e.IsSingleton(),
				})
			}

			if opts.Format == "text" {
				fmt.Fprintf(cmd.OutOrStdout(), "model OK: %d entities\n", len(summaries))
				for _, s := range summaries {
					marker := ""
					if s.Singleton {
						marker = " (singleton)"
					} else if s.Unique {
						marker = " (unique)"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d attributes, %d relationships%s\n",
						s.Name, s.Attributes, s.Relationships, marker)
				}
				return nil
			}
			return writeStructured(cmd.OutOrStdout(), opts.Format, summaries)
		},
	}
}
