// Command rb tracks study time and spends the points it earns.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/studyreward/rewardbook/internal/api"
	"github.com/studyreward/rewardbook/internal/config"
	"github.com/studyreward/rewardbook/internal/logging"
	"github.com/studyreward/rewardbook/internal/service"
	"github.com/studyreward/rewardbook/internal/storage"
	"github.com/studyreward/rewardbook/internal/store"
	"github.com/studyreward/rewardbook/internal/ui"
)

var (
	cfgFile string
	verbose bool
	noColor bool
	assumeY bool

	v   = viper.New()
	cfg *config.Config

	logOut   io.Writer = io.Discard
	logClose io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "rb",
	Short: "rewardbook - earn points for focused study and spend them on rewards",
	Long: `rewardbook times study tasks, credits one point per completed minute and
lets you exchange points for rewards.

Data lives in a local data directory (file or sqlite backend) or, when
api.base_url is set, on a running "rb serve" instance.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.DisableColor()
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddGroup(
		&cobra.Group{ID: "track", Title: "Tracking:"},
		&cobra.Group{ID: "catalog", Title: "Catalog:"},
		&cobra.Group{ID: "data", Title: "Data:"},
		&cobra.Group{ID: "admin", Title: "Administration:"},
	)

	f := rootCmd.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "config file (default: ./rewardbook.yaml)")
	f.String("data-dir", "", "data directory (overrides storage.dir)")
	f.String("backend", "", "storage backend: file | sqlite (overrides storage.backend)")
	f.String("api-url", "", "use a running server instead of local data (overrides api.base_url)")
	f.BoolVarP(&verbose, "verbose", "v", false, "log diagnostics to stderr")
	f.BoolVar(&noColor, "no-color", false, "disable colored output")
	f.BoolVarP(&assumeY, "yes", "y", false, "answer yes to confirmation prompts")

	bindFlag("storage.dir", "data-dir")
	bindFlag("storage.backend", "backend")
	bindFlag("api.base_url", "api-url")
}

func bindFlag(key, flag string) {
	if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("bindFlag %q -> %q: %v", flag, key, err))
	}
}

func initConfig() {
	if err := config.LoadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if err := config.Init(v, cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	loaded, err := config.Load(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}
	cfg = loaded

	if cfg.Log.File != "" {
		logOut, logClose = logging.Writer(cfg.Log)
	} else if verbose {
		logOut = os.Stderr
	}
}

// newLogger returns a component logger honoring --verbose and log.file.
func newLogger(component string) *log.Logger {
	return logging.New(logOut, component)
}

// cmdContext is cancelled on Ctrl+C.
func cmdContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openLocal opens the configured storage and returns the service over it
// together with the storage to close.
func openLocal(notifier service.Notifier) (*service.Service, io.Closer, error) {
	st, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Dir, newLogger("storage"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}
	m := store.New(st, store.Options{Logger: newLogger("store")})
	svc := service.New(m, service.Options{Logger: newLogger("service"), Notifier: notifier})
	return svc, st, nil
}

// client returns the API client for this invocation: remote when
// api.base_url is set, local otherwise. The returned func releases it.
func client() (api.Client, func(), error) {
	if cfg.API.BaseURL != "" {
		return api.NewHTTP(cfg.API.BaseURL, api.HTTPOptions{
			Timeout: cfg.API.Timeout,
			Retries: cfg.API.Retries,
			Logger:  newLogger("client"),
		}), func() {}, nil
	}
	svc, st, err := openLocal(nil)
	if err != nil {
		return nil, nil, err
	}
	return svc, func() {
		if err := st.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close storage: %v\n", err)
		}
	}, nil
}

// confirm asks unless --yes was given.
func confirm(title, description string) (bool, error) {
	if assumeY {
		return true, nil
	}
	return ui.Confirm(title, description)
}

// exitCode is 1 for business failures such as a missing task or too few
// points, and 2 for everything else.
func exitCode(err error) int {
	if service.IsUserError(err) {
		return 1
	}
	return 2
}

func main() {
	err := rootCmd.Execute()
	if logClose != nil {
		_ = logClose.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
