package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"omnify/internal/formula"
	"omnify/internal/render"
	"omnify/internal/ux"
)

var renderOut string

// renderInput binds a template to its data: the record value, the named
// datasource mappings available to formulas, and the field mappings.
type renderInput struct {
	Template   string            `yaml:"template"`
	Record     any               `yaml:"record"`
	Datasource map[string]any    `yaml:"datasource"`
	Mappings   map[string]string `yaml:"mappings"`
}

var renderCmd = &cobra.Command{
	Use:   "render <mapping.yaml>",
	Short: "Fill a spreadsheet template from a record",
	Long: `Renders an xlsx template whose cells contain {{field}} placeholders.
Each field's mapping expression runs through the formula evaluator, so
mappings can be literals ("1200"), record references ($record) or formulas
(CONCAT($customer.name, " 様")).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read mapping file: %w", err)
		}
		var input renderInput
		if err := yaml.Unmarshal(data, &input); err != nil {
			return fmt.Errorf("parse mapping file: %w", err)
		}
		if input.Template == "" {
			return fmt.Errorf("mapping file must name a template")
		}
		if renderOut == "" {
			return fmt.Errorf("--out is required")
		}

		parser := formula.NewParser(input.Record, input.Datasource)
		if err := render.Render(input.Template, renderOut, input.Mappings, parser); err != nil {
			return err
		}
		fmt.Println(ux.Success("rendered " + renderOut))
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "output file path")
}
