package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"deepfake-detector/internal/config"
	"deepfake-detector/internal/server"
	"deepfake-detector/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootCommand serves the landing page when no subcommand is given
func rootCommand() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:           "deepfake-detector",
		Short:         "Deepfake detection landing page and upload service",
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(v)
		},
	}

	if err := setupFlags(rootCmd, v); err != nil {
		// flags are static, a failure here is a programming error
		panic(err)
	}

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the landing page and upload API",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(v)
			},
		},
		&cobra.Command{
			Use:   "analyze [image]",
			Short: "Analyze a single image file",
			Long:  `Submit one image to the prediction endpoint and print the verdict.`,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return analyze(cmd, v, args[0])
			},
		},
	)

	return rootCmd
}

// setupFlags binds the global flags to the configuration keys they override
func setupFlags(rootCmd *cobra.Command, v *viper.Viper) error {
	flags := rootCmd.PersistentFlags()
	flags.String("port", "", "Port to listen on")
	flags.String("predict-url", "", "Prediction endpoint URL")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.Bool("strict", false, "Reject prediction responses without a boolean prediction field")

	bindings := map[string]string{
		"PORT":              "port",
		"PREDICT_URL":       "predict-url",
		"LOG_LEVEL":         "log-level",
		"STRICT_PREDICTION": "strict",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}

	return nil
}

func serve(v *viper.Viper) error {
	logger, cfg, err := bootstrap(v)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// Set Gin to release mode
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	predictClient := services.NewPredictClient(cfg, logger)

	srv, err := server.New(cfg, predictClient, logger)
	if err != nil {
		logger.Error("Failed to create server", zap.Error(err))
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Run()
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		srv.Close()
		if err != nil {
			logger.Error("Failed to start server", zap.Error(err))
		}
		return err
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}
	logger.Info("Server exited gracefully")
	return nil
}

func analyze(cmd *cobra.Command, v *viper.Viper, path string) error {
	logger, cfg, err := bootstrap(v)
	if err != nil {
		return err
	}
	defer logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	flow := services.NewUploadFlow(services.NewPredictClient(cfg, logger), cfg.MaxFileSizeBytes(), logger)
	if _, err := flow.AcceptInput(services.Input{
		Source:   services.SourcePicker,
		FileName: filepath.Base(path),
		Data:     data,
	}); err != nil {
		return err
	}

	verdict, err := flow.SubmitForAnalysis(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), verdict.Label)
	return nil
}

// bootstrap builds the logger and loads the configuration. The logger starts at info
// and follows LOG_LEVEL once the configuration is loaded.
func bootstrap(v *viper.Viper) (*zap.Logger, *config.Config, error) {
	logger, level, err := initLogger()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.LoadConfig(logger, v)
	if err != nil {
		logger.Error("Failed to load config", zap.Error(err))
		return nil, nil, err
	}

	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	return logger, cfg, nil
}

// initLogger initializes the logger with proper configuration
func initLogger() (*zap.Logger, zap.AtomicLevel, error) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)

	logger, err := config.Build()
	return logger, config.Level, err
}
