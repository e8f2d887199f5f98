package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/zaki-44/bio-hackathon/internal/app"
)

var (
	// Global flags
	dbDSN   string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "biomarketctl",
	Short: "Operator tooling for the bio marketplace",
	Long: `biomarketctl runs maintenance tasks against the marketplace database:
schema migration, admin bootstrap, password resets, demo data and
application review from the command line.

Configuration is read from the environment (and .env) the same way the
API server reads it. --db overrides DB_DSN.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbDSN, "db", "", "Database DSN (defaults to DB_DSN)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

// runtime is what every subcommand needs: config, logger and an open database.
type runtime struct {
	cfg app.Config
	log *logrus.Logger
	db  *gorm.DB
}

func (r *runtime) Close() {
	if s, err := r.db.DB(); err == nil {
		_ = s.Close()
	}
}

func (r *runtime) services() (*app.Services, error) {
	return app.NewServices(r.db, r.cfg, r.log)
}

func open() (*runtime, error) {
	_ = godotenv.Load()
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	if dbDSN != "" {
		cfg.DSN = dbDSN
	}
	log := app.NewLogger(cfg)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	db, err := app.OpenDB(cfg.DSN, log)
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, log: log, db: db}, nil
}
