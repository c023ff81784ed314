// Package cmd implements the CLI commands for seatwatch.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "seatwatch",
	Short: "Watch course sections for seat openings",
	Long: "seatwatch polls the university registrar API for seat availability\n" +
		"on tracked course sections and pushes an ntfy notification when a\n" +
		"section opens up.",
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// Environment names documented for the watcher. Viper keys mirror the
// config file structure so the overlay in loadConfig stays mechanical.
func initConfig() {
	bindings := map[string]string{
		"api.consumer_key":    "CONSUMER_KEY",
		"api.consumer_secret": "CONSUMER_SECRET",
		"api.term":            "TERM_CODE",
		"ntfy.topic":          "NTFY_TOPIC",
		"ntfy.base_url":       "NTFY_URL",
		"specs.courses":       "COURSE_SPECS",
		"specs.ids":           "ID_SPECS",
	}
	for key, env := range bindings {
		cobra.CheckErr(viper.BindEnv(key, env))
	}
}
