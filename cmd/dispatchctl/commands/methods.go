package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// NewMethodsCommand creates the methods command
func NewMethodsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "methods",
		Aliases: []string{"registry"},
		Short:   "List registry methods",
		Long:    "List every method declared in the active registry document",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := loadRegistry()
			if err != nil {
				return err
			}

			methods := registry.Methods()

			switch viper.GetString("output") {
			case "json":
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")

				return encoder.Encode(methods)
			case "yaml":
				encoder := yaml.NewEncoder(os.Stdout)

				return encoder.Encode(methods)
			default:
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Name", "Verb", "Path", "Required", "Aliases", "Deprecated")

				for _, method := range methods {
					deprecated := ""
					if method.Deprecated {
						deprecated = "yes"
					}

					_ = table.Append(
						method.Name,
						method.Verb,
						method.PathTemplate,
						strings.Join(method.Required, ", "),
						strings.Join(method.Aliases, ", "),
						deprecated,
					)
				}

				fmt.Printf("Methods: %d\n\n", len(methods))

				if err := table.Render(); err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}

				return nil
			}
		},
	}
}
