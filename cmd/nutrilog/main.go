package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/terraincognita07/nutrilog/internal/cli"
	"github.com/terraincognita07/nutrilog/internal/config"
	"github.com/terraincognita07/nutrilog/internal/logger"
)

const serviceName = "nutrilog"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Calorie and water tracking backend for a Telegram mini app",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file loaded before the environment")

	loadConfig := func() (config.Config, error) {
		return config.Load(envFile)
	}

	root.AddCommand(
		newServeCommand(loadConfig),
		newMigrateCommand(loadConfig),
		newSignInitDataCommand(loadConfig),
	)
	return root
}

func newServeCommand(loadConfig func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runServer(cmd.Context(), cfg)
		},
	}
}

func newMigrateCommand(loadConfig func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateStorage(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			log := logger.New(serviceName, cfg.LogLevel, cfg.LogPretty)
			return cli.RunMigrateCommand(databaseOptions(cfg, log), cmd.OutOrStdout())
		},
	}
}

func newSignInitDataCommand(loadConfig func() (config.Config, error)) *cobra.Command {
	options := cli.SignInitDataOptions{}
	var age time.Duration

	command := &cobra.Command{
		Use:   "sign-init-data",
		Short: "Print init data signed with the configured bot token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := config.ValidateBotToken(cfg.BotToken); err != nil {
				return err
			}
			options.BotToken = cfg.BotToken
			options.AuthDate = time.Now().Add(-age)
			return cli.RunSignInitDataCommand(options, cmd.OutOrStdout())
		},
	}

	flags := command.Flags()
	flags.Int64Var(&options.UserID, "user-id", 0, "Telegram user id")
	flags.StringVar(&options.FirstName, "first-name", "", "User first name")
	flags.StringVar(&options.Username, "username", "", "Telegram username")
	flags.StringVar(&options.LanguageCode, "lang", "uk", "User language code")
	flags.StringVar(&options.StartParam, "start-param", "", "Optional start_param field")
	flags.DurationVar(&age, "age", 0, "Backdate auth_date by this duration")
	_ = command.MarkFlagRequired("user-id")
	return command
}
