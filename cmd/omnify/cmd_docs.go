package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"omnify/internal/config"
	"omnify/internal/document"
	"omnify/internal/store"
	"omnify/internal/ux"
)

var docsDryRun bool

// docsInput is the YAML document describing one generation pass: the owning
// record, the document's base name and the candidate values per parameter.
// The host application exports this from its relation data.
type docsInput struct {
	Owner struct {
		Type string `yaml:"type"`
		ID   string `yaml:"id"`
	} `yaml:"owner"`
	Name       string `yaml:"name"`
	Parameters []struct {
		Name       string `yaml:"name"`
		Candidates []struct {
			ID    string `yaml:"id"`
			Title string `yaml:"title"`
		} `yaml:"candidates"`
	} `yaml:"parameters"`
}

var generateDocsCmd = &cobra.Command{
	Use:   "generate-docs <pass.yaml>",
	Short: "Reconcile combinatorial document records for an owner",
	Long: `Expands the parameter sets in the input file into every candidate
combination and reconciles the result against the generated-document store:
new combinations are created, existing ones refreshed, previously deleted
ones restored, and records whose combination disappeared are soft-deleted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(projectDir)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read pass file: %w", err)
		}
		var input docsInput
		if err := yaml.Unmarshal(data, &input); err != nil {
			return fmt.Errorf("parse pass file: %w", err)
		}
		if input.Owner.Type == "" || input.Owner.ID == "" {
			return fmt.Errorf("pass file must name an owner type and id")
		}

		sets := make([]document.ParameterSet, 0, len(input.Parameters))
		for _, param := range input.Parameters {
			set := document.ParameterSet{Name: param.Name}
			for _, cand := range param.Candidates {
				set.Candidates = append(set.Candidates, document.Candidate{ID: cand.ID, Title: cand.Title})
			}
			sets = append(sets, set)
		}

		owner := document.Owner{Type: input.Owner.Type, ID: input.Owner.ID}
		combos := document.ExpandCombinations(sets)
		logger.Info("combinations expanded",
			zap.Int("parameter_sets", len(sets)),
			zap.Int("combinations", len(combos)))

		db, err := store.New(cfg.Documents.DatabasePath)
		if err != nil {
			return err
		}
		defer db.Close()

		existing, err := db.ListByOwner(cmd.Context(), owner)
		if err != nil {
			return err
		}
		plan := document.BuildPlan(owner, input.Name, combos, existing)

		fmt.Print(ux.RenderPlan(plan))
		if docsDryRun {
			fmt.Println(ux.Warn("dry run, nothing applied"))
			return nil
		}

		if err := db.ApplyPlan(cmd.Context(), plan); err != nil {
			return err
		}
		fmt.Println(ux.Success("document records reconciled"))
		return nil
	},
}

func init() {
	generateDocsCmd.Flags().BoolVar(&docsDryRun, "dry-run", false, "print the plan without applying it")
}
