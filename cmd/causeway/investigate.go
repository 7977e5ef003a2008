package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/causeway-ops/causeway/internal/config"
	"github.com/causeway-ops/causeway/internal/logging"
	"github.com/causeway-ops/causeway/internal/models"
)

var (
	investigateEventID string
	investigateSource  string
	investigateOrgID   string
	investigateTimeout time.Duration
)

var investigateCmd = &cobra.Command{
	Use:   "investigate",
	Short: "Run a one-shot investigation for an incident",
	RunE:  runInvestigate,
}

func init() {
	investigateCmd.Flags().StringVar(&investigateEventID, "event-id", "", "incident identifier at the alert vendor")
	investigateCmd.Flags().StringVar(&investigateSource, "source", models.VendorPagerDuty, "alert event source")
	investigateCmd.Flags().StringVar(&investigateOrgID, "org-id", "", "organization identifier")
	investigateCmd.Flags().DurationVar(&investigateTimeout, "timeout", 5*time.Minute, "overall run timeout")
	_ = investigateCmd.MarkFlagRequired("event-id")
	_ = investigateCmd.MarkFlagRequired("org-id")
}

func runInvestigate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)

	ctx, cancel := context.WithTimeout(context.Background(), investigateTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	analysis, err := a.engine.RunRCA(ctx, investigateEventID, investigateSource, investigateOrgID)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), analysis)
	return nil
}
