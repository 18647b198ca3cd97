// Package cli implements the taskvisor command tree.
package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vnykmshr/gosupervise/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "taskvisor",
	Short: "Supervise a set of long-running tasks until shutdown",
	Long: `taskvisor runs a fleet of heartbeat tasks on a gosupervise runner,
prints their status periodically and shuts them down gracefully on
SIGINT or SIGTERM.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $XDG_CONFIG_HOME/taskvisor/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text or json")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	setupViper(viper.GetViper())
}

// setupViper applies defaults, config file search paths and environment
// binding to v, then reads the config file if one exists.
func setupViper(v *viper.Viper) {
	config.SetDefaults(v)

	if cfgFile := v.GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(config.ConfigDir())
	}

	v.SetEnvPrefix(config.EnvPrefix)
	// e.g. TASKVISOR_RUNNER_TASKS for runner.tasks
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if it exists (ignore error if not found)
	_ = v.ReadInConfig()
}
