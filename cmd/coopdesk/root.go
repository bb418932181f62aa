package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/hupe1980/coopdesk"
	"github.com/hupe1980/coopdesk/config"
	"github.com/hupe1980/coopdesk/logging"
)

const version = "0.1.0"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "coopdesk",
		Short: "Asistente virtual multi-departamento de la cooperativa",
		Long: `coopdesk routes associate requests to department specialists
(nóminas, vivienda, crédito, certificados, ...) and answers from the
cooperative's documents. Certificates are issued after one-time code
verification.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.configFile, "config", "coopdesk.yaml", "config file")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	cmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)

	cmd.AddCommand(newChatCmd(flags), newServeCmd(flags), newConfigCmd())

	return cmd
}

// loadConfig reads the config file and applies flag overrides.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return nil, err
	}

	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}

	return cfg, nil
}

// openDesk builds a Desk logging to logOut.
func (f *globalFlags) openDesk(logOut io.Writer) (*coopdesk.Desk, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: logOut,
		Redact: cfg.Log.Redact,
	})
	if err != nil {
		return nil, err
	}

	return coopdesk.New(cfg, func(o *coopdesk.Options) { o.Logger = logger })
}
