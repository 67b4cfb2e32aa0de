// Package servecmder provides the serve command for running the bundled
// stub backend.
package servecmder

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Kirito123l/emission-agent/api"
	"github.com/Kirito123l/emission-agent/pkg/config"
	"github.com/Kirito123l/emission-agent/pkg/logger"
)

type ServeCommander struct {
	listen  string
	logFile string
	debug   bool
	logger  *slog.Logger
}

const serveLongDesc string = `Run the bundled stub backend.

The stub serves the full assistant HTTP surface (streaming chat,
sessions, file preview and downloads) with an in-memory store and
canned emission-factor answers. Point the CLI at it for local
development:

  emission serve
  emission config set client.api_target http://localhost:8000

With --log-file, structured JSON logs are written to the file in
addition to the console output.`

const serveShortDesc string = "Run the bundled stub backend"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.ServeFlags, []string{
				config.FlagServeListen,
			})
			cmder.listen = v.GetString("serve.listen")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.ServeFlags, config.FlagServeListen, &cmder.listen)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

// newServeLogger builds the backend logger: pretty console output, plus a
// JSON copy to the log file when one is given.
func newServeLogger(debug bool, console, file io.Writer) *slog.Logger {
	pretty := logger.New(
		logger.WithPretty(true),
		logger.WithDebug(debug),
		logger.WithWriter(console),
	)
	if file == nil {
		return pretty
	}

	structured := logger.New(
		logger.WithJSON(true),
		logger.WithDebug(debug),
		logger.WithWriter(file),
	)
	return logger.Multi(pretty, structured)
}

func (c *ServeCommander) run() error {
	var fileWriter io.Writer
	if c.logFile != "" {
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		fileWriter = f
	}
	c.logger = newServeLogger(c.debug, os.Stdout, fileWriter)

	server := api.NewServer(api.Config{ListenAddr: c.listen}, c.logger)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("backend error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}
