package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"finance-advisor-server/internal/config"
	"finance-advisor-server/internal/domain"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// usageOpener returns the ledger service and a cleanup func.
type usageOpener func(ctx context.Context) (domain.UsageService, func(), error)

// openUsageService wires the same ledger backend as the server. The AI
// provider is never needed here.
func openUsageService(ctx context.Context) (domain.UsageService, func(), error) {
	cfg := config.NewConfig().(*config.AppConfig)
	cfg.AIProvider = config.ProviderNone
	container, err := config.NewContainerWithConfig(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return container.GetUsageService(), container.Close, nil
}

func newRootCmd(open usageOpener) *cobra.Command {
	var outputFormat string

	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Inspect and reset AI usage ledgers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&outputFormat, "output", "o", "yaml", "output format: yaml, json")

	root.AddCommand(&cobra.Command{
		Use:   "plans",
		Short: "Print the plan catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return render(cmd.OutOrStdout(), outputFormat, domain.Plans())
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "show <userId>",
		Short: "Print a user's ledger row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := open(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to open ledger: %w", err)
			}
			defer cleanup()

			entry, err := svc.Ledger(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("show %s: %w", args[0], err)
			}
			return render(cmd.OutOrStdout(), outputFormat, entry)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "reset <userId>",
		Short: "Zero a user's question count and restart their period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := open(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to open ledger: %w", err)
			}
			defer cleanup()

			entry, err := svc.Reset(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("reset %s: %w", args[0], err)
			}
			return render(cmd.OutOrStdout(), outputFormat, entry)
		},
	})

	return root
}

func render(w io.Writer, format string, data any) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
