package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"kanban-board/config"
	"kanban-board/kanban"
	"kanban-board/taskapi"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "kanban",
		Short: "Kanban board over a remote task API",
		Long: `kanban serves a three column task board (A Fazer, Em Progresso, Concluído)
backed by a remote task API, and offers the same task operations from the shell.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to config file (default ./"+config.DefaultFile+" if present)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newListCmd(opts))
	cmd.AddCommand(newAddCmd(opts))
	cmd.AddCommand(newEditCmd(opts))
	cmd.AddCommand(newMoveCmd(opts))
	cmd.AddCommand(newRmCmd(opts))

	return cmd
}

// setup loads configuration and builds the logger every command shares.
func (o *rootOptions) setup(cmd *cobra.Command) (config.Config, *log.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if o.verbose {
		cfg.LogLevel = "debug"
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

func newTaskClient(cfg config.Config, logger *log.Logger) *taskapi.Client {
	return taskapi.New(taskapi.Config{
		BaseURL:      cfg.TaskAPIURL,
		Timeout:      cfg.RequestTimeout,
		StatusFormat: taskapi.StatusFormat(cfg.StatusFormat),
		Logger:       logger,
	})
}

// newStore builds a store over the configured task API.
func (o *rootOptions) newStore(cmd *cobra.Command) (*kanban.Store, *log.Logger, config.Config, error) {
	cfg, logger, err := o.setup(cmd)
	if err != nil {
		return nil, nil, cfg, err
	}
	return kanban.NewStore(newTaskClient(cfg, logger), logger), logger, cfg, nil
}
