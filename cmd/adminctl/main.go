// Package main provides adminctl, an operator CLI over the record services.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-admin-api/internal/bootstrap"
	"github.com/noah-isme/tutor-admin-api/internal/models"
	"github.com/noah-isme/tutor-admin-api/pkg/config"
	"github.com/noah-isme/tutor-admin-api/pkg/logger"
)

var (
	operatorID string

	services *bootstrap.Services
	logr     *zap.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "adminctl",
	Short: "Inspect and repair tutoring marketplace records",
	Long: `adminctl talks to the same record store as the API gateway, using the
configuration from the environment or .env. Mutations are audited under
the operator given with --operator.`,
	SilenceUsage:      true,
	PersistentPreRunE: initServices,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if services != nil {
			services.Close()
		}
		if logr != nil {
			_ = logr.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&operatorID, "operator", "", "operator id recorded in the audit trail")

	rootCmd.AddCommand(entitiesCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(bulkUpdateCmd)
}

func initServices(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logr, err = logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	services, err = bootstrap.New(cfg, logr)
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}
	return nil
}

func operator() models.Actor {
	return models.Actor{UserID: operatorID, Role: models.RoleSuperAdmin, UserAgent: "adminctl"}
}

func printJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
