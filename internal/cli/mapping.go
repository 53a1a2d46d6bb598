package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ml-archive/dandy/internal/mapping"
	"github.com/ml-archive/dandy/internal/schema"
)

// NewMappingCommand creates the mapping command: show the derived external
// key mapping for one entity.
func NewMappingCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mapping <model.cue> <entity>",
		Short: "Show the external-key mapping derived for an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := schema.LoadModel(args[0])
			if err != nil {
				return err
			}
			entity := model.Entity(args[1])
			if entity == nil {
				return fmt.Errorf("entity %q is not defined in %s", args[1], args[0])
			}

			m := mapping.Build(entity, nil)
			if opts.Format == "text" {
				keys := make([]string, 0, len(m))
				for k := range m {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					desc := m[k]
					switch desc.Kind {
					case schema.KindRelationship:
						card := "to-one"
						if desc.ToMany {
							card = "to-many"
							if desc.Ordered {
								card = "to-many ordered"
							}
						}
						fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%s %s)\n", k, desc.Name, card, desc.Destination)
					default:
						fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%s)\n", k, desc.Name, desc.Type)
					}
				}
				return nil
			}
			return writeStructured(cmd.OutOrStdout(), opts.Format, m)
		},
	}
}
