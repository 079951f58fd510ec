// This command runs the image handler locally, either as an HTTP server or
// against a single event read from a file.
package main

import (
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	imagehandler "github.com/PrzemekMalak/serverless-image-handler"
)

var (
	cfgFile string
	envFile string
	v       = imagehandler.NewViper()
)

var rootCmd = &cobra.Command{
	Use:   "imagehandler",
	Short: "Run the serverless image handler locally",
	Long: `imagehandler runs the image handler outside of Lambda, using the same
environment variables as the deployed function.

Serve images over HTTP:
  imagehandler serve --addr localhost:8080

Answer a single proxy event:
  imagehandler invoke --event event.json`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnv()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file with the handler settings")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	rootCmd.AddCommand(newServeCmd(), newInvokeCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadEnv reads the dotenv file, when present, without overriding variables
// that are already set.
func loadEnv() error {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("loading %s: %w", envFile, err)
			}
		}
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}
	return nil
}

// setup builds the handler the same way the Lambda entry point does.
func setup(reg prometheus.Registerer) (*imagehandler.Handler, *zap.SugaredLogger, error) {
	cfg, err := imagehandler.LoadConfig(v)
	if err != nil {
		return nil, nil, err
	}

	logger, err := imagehandler.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}

	sess, err := session.NewSession()
	if err != nil {
		return nil, nil, fmt.Errorf("creating AWS session: %w", err)
	}

	handler := imagehandler.NewHandler(cfg,
		imagehandler.NewAWSDependencies(cfg, sess, logger),
		logger,
		imagehandler.NewMetrics(reg),
	)
	return handler, logger, nil
}
