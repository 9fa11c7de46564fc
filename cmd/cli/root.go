package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dvloznov/lifeos/internal/app"
	"github.com/dvloznov/lifeos/internal/config"
	"github.com/dvloznov/lifeos/internal/logger"
	"github.com/spf13/cobra"
)

// cli is the state shared by every subcommand of one invocation.
type cli struct {
	configFile string
	owner      string

	cfg       *config.Config
	container *app.Container
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "lifeos",
		Short: "Record bank SMS notifications and daily plans",
		Long: `lifeos turns bank SMS notifications into categorized transactions and
free-form daily plans into structured schedules, storing both in a per-owner
append-only ledger.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.container == nil {
				return nil
			}
			return c.container.Close()
		},
	}

	root.PersistentFlags().StringVar(&c.configFile, "config", "", "Config file (default: ./lifeos.yaml or $HOME/.lifeos/lifeos.yaml)")
	root.PersistentFlags().StringVar(&c.owner, "owner", os.Getenv("LIFEOS_OWNER"), "Owner the records belong to (or set LIFEOS_OWNER)")

	root.AddCommand(
		c.expenseCmd(),
		c.planCmd(),
		c.listCmd(),
		c.importCmd(),
		c.chatCmd(),
		c.syncNotionCmd(),
		c.migrateCmd(),
	)
	return root
}

func (c *cli) setup(ctx context.Context) error {
	cfg, err := config.Load(c.configFile)
	if err != nil {
		return err
	}
	c.cfg = cfg

	// Logs go to stderr so command output stays machine readable.
	log := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	if ctx == nil {
		ctx = context.Background()
	}
	container, err := app.New(logger.WithContext(ctx, log), cfg, log)
	if err != nil {
		return err
	}
	c.container = container
	return nil
}

// context returns the command context carrying the configured logger.
func (c *cli) context(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logger.WithContext(ctx, c.container.Logger())
}

func (c *cli) requireOwner() error {
	if c.owner == "" {
		return fmt.Errorf("--owner or LIFEOS_OWNER is required")
	}
	return nil
}
