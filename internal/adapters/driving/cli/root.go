// Package cli provides the leasequery command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
	"github.com/custodia-labs/leasequery/internal/core/ports/driving"
	"github.com/custodia-labs/leasequery/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

// Level is how much of the application a command needs.
type Level int

// Bootstrap levels.
const (
	// LevelNone runs without services.
	LevelNone Level = iota

	// LevelConfig loads configuration and settings only.
	LevelConfig

	// LevelFull opens storage and AI providers and wires every service.
	LevelFull
)

// levelAnnotation marks a command's bootstrap level. Commands without it
// get LevelFull.
const levelAnnotation = "leasequery/level"

// ConfigStore is the configuration store the CLI reads and writes.
type ConfigStore interface {
	driven.ConfigStore

	// BindFlag makes a changed command-line flag override key.
	BindFlag(key string, flag *pflag.Flag) error
}

// HealthCheck is the result of one dependency check.
type HealthCheck struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`

	// Required checks fail the health command.
	Required bool `json:"required"`
}

// Services holds everything a command may use. Unset fields mean the
// service is unavailable for the current command.
type Services struct {
	Ingestion     driving.IngestionService
	Registry      driving.RegistryService
	Query         driving.QueryService
	Leases        driving.LeaseService
	Notifications driving.NotificationService
	Settings      driving.SettingsService
	Config        ConfigStore
	Loaders       driven.LoaderRegistry

	// Health runs dependency checks.
	Health func(ctx context.Context) []HealthCheck

	// Close releases resources.
	Close func() error
}

// Options are the global flag values passed to the bootstrap.
type Options struct {
	ConfigDir string
	Verbose   bool
	JSON      bool
}

// BootstrapFunc builds services for cmd.
type BootstrapFunc func(ctx context.Context, cmd *cobra.Command, opts Options, level Level) (*Services, error)

// Global flags.
var (
	jsonOutput bool
	verbose    bool
	configDir  string
)

// Services used by commands. Set by the bootstrap or by tests.
var (
	ingestionService    driving.IngestionService
	registryService     driving.RegistryService
	queryService        driving.QueryService
	leaseService        driving.LeaseService
	notificationService driving.NotificationService
	settingsService     driving.SettingsService
	configStore         ConfigStore
	loaderRegistry      driven.LoaderRegistry
	healthCheck         func(ctx context.Context) []HealthCheck
	closeServices       func() error
)

var bootstrap BootstrapFunc

// SetBootstrap sets the function that builds services before each command.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// SetServices installs services directly, bypassing the bootstrap.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	ingestionService = s.Ingestion
	registryService = s.Registry
	queryService = s.Query
	leaseService = s.Leases
	notificationService = s.Notifications
	settingsService = s.Settings
	configStore = s.Config
	loaderRegistry = s.Loaders
	healthCheck = s.Health
	closeServices = s.Close
}

var rootCmd = &cobra.Command{
	Use:   "leasequery",
	Short: "Lease contract ingestion and question answering",
	Long: `leasequery ingests lease contracts (PDF, DOCX), extracts clauses and key
terms, indexes the text for retrieval and answers questions about the
portfolio with cited sources and a confidence score.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: runBootstrap,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "configuration directory (default ~/.leasequery)")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Execute runs the root command and releases services afterwards.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if cerr := closeAll(); err == nil {
		err = cerr
	}
	if err != nil {
		logger.Error("%v", err)
	}
	return err
}

func runBootstrap(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	level := levelFor(cmd)
	if level == LevelNone || bootstrap == nil {
		return nil
	}

	svc, err := bootstrap(cmd.Context(), cmd, Options{
		ConfigDir: configDir,
		Verbose:   verbose,
		JSON:      jsonOutput,
	}, level)
	if err != nil {
		return err
	}
	SetServices(svc)
	return nil
}

func closeAll() error {
	if closeServices == nil {
		return nil
	}
	err := closeServices()
	closeServices = nil
	return err
}

// levelFor returns the bootstrap level of cmd or its nearest annotated parent.
func levelFor(cmd *cobra.Command) Level {
	if cmd.Name() == "help" {
		return LevelNone
	}
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Annotations[levelAnnotation] {
		case "none":
			return LevelNone
		case "config":
			return LevelConfig
		case "full":
			return LevelFull
		}
	}
	return LevelFull
}

func levelNone() map[string]string {
	return map[string]string{levelAnnotation: "none"}
}

func levelConfig() map[string]string {
	return map[string]string{levelAnnotation: "config"}
}

// printJSON writes v as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

// writeJSONLine writes v as a single line of JSON, for streamed output.
func writeJSONLine(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

var errNotConfigured = errors.New("not configured")

func notConfigured(name string) error {
	return fmt.Errorf("%s service %w", name, errNotConfigured)
}
