package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rana718/datamock/internal/config"
	"github.com/Rana718/datamock/internal/gateway"
	"github.com/Rana718/datamock/internal/logger"
	"github.com/Rana718/datamock/internal/validation"
	"github.com/Rana718/datamock/internal/workflow"
	"github.com/fatih/color"
	"go.uber.org/zap"
)

// app bundles what every networked command needs.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	client *gateway.Client
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, verbose)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		log:    log,
		client: gateway.NewFromConfig(cfg, log),
	}, nil
}

func (a *app) newWorkflow(defaultCount int) *workflow.Workflow {
	return workflow.New(a.client, workflow.Options{
		DefaultEntryCount:           defaultCount,
		Timeout:                     a.cfg.Timeout(),
		ClearAttributeOnTableChange: a.cfg.Workflow.ClearAttributeOnTableChange,
		Logger:                      a.log,
	})
}

func (a *app) close() {
	a.log.Sync()
}

// loadUpload reads the schema and seed files named on the command line.
func loadUpload(dbType, schemaPath, seedPath string) (validation.UploadInput, error) {
	in := validation.UploadInput{DatabaseType: validation.DatabaseType(strings.ToLower(dbType))}

	primary, err := validation.LoadFile(schemaPath)
	if err != nil {
		return in, err
	}
	in.PrimaryFile = primary

	if seedPath != "" {
		seed, err := validation.LoadFile(seedPath)
		if err != nil {
			return in, err
		}
		in.SecondaryFile = seed
	}
	return in, nil
}

// reportUploadError prints validation failures one per line and folds them
// into a single error for the exit status.
func reportUploadError(err error) error {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, v := range verrs {
		color.Red("✗ %s: %s", v.Field, v.Message)
	}
	return fmt.Errorf("upload is invalid")
}

func printDuplicates(cfg workflow.Configure) {
	for _, dup := range cfg.DuplicateKeys {
		color.Yellow("⚠️  table %q appears in more than one database; they share one row count", dup)
	}
}
