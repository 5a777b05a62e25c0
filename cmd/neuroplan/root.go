package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/metalagman/neuroplan/internal/config"
	"github.com/metalagman/neuroplan/internal/logging"
)

var (
	cfgFile string
	debug   bool
	cfg     config.Config
	rootCmd = &cobra.Command{
		Use:   "neuroplan",
		Short: "neuroplan is a plain-text task tree with reminders",
	}
)

// Execute runs the root command.
func Execute() error {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", filepath.Join(".neuroplan", "config.json"), "config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logging.Init(debug)
		loaded, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	}
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(remindCmd())
	rootCmd.AddCommand(graphCmd())
	return rootCmd.Execute()
}

func initConfig() {
	_ = godotenv.Load()
	path := cfgFile
	if path == "" {
		path = filepath.Join(".neuroplan", "config.json")
	}
	viper.SetConfigFile(path)
	viper.SetConfigType("json")
	viper.SetEnvPrefix("neuroplan")
	viper.AutomaticEnv()
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
}
