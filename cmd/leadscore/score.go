package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	service "github.com/Bizoholic-Digital/leadscore/internal/app"
	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
)

func newScoreCmd() *cobra.Command {
	var useAI bool
	cmd := &cobra.Command{
		Use:   "score FILE",
		Short: "Score one lead read from a YAML or JSON file",
		Long: `Scores a single lead and prints the result as JSON. The file holds one lead
record using the API field names. Use - to read standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			lead, err := readLead(cmd, args[0])
			if err != nil {
				return err
			}
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			svc, cleanup, err := buildService(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := svc.ScoreLead(ctx, lead, useAI)
			if res == nil {
				return err
			}
			if errors.Is(err, service.ErrPersistence) {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().BoolVar(&useAI, "ai", false, "ask the configured AI provider to qualify the lead")
	return cmd
}

// readLead decodes a lead from path. JSON documents are valid YAML.
func readLead(cmd *cobra.Command, path string) (model.LeadRecord, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return model.LeadRecord{}, fmt.Errorf("read lead: %w", err)
	}
	var lead model.LeadRecord
	if err := yaml.Unmarshal(raw, &lead); err != nil {
		return model.LeadRecord{}, fmt.Errorf("decode lead %s: %w", path, err)
	}
	return lead, nil
}
