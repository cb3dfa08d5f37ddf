/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/studio0rpiment/wayside/common"
	"github.com/studio0rpiment/wayside/params"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   params.AppName,
	Short: "Place AR experiences along a GPS walking tour",
	Long: `wayside turns tour route GeoJSON into anchored experiences in a local
world frame, and resolves where each one belongs relative to the visitor.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pFlags := rootCmd.PersistentFlags()
	pFlags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.wayside/config.yaml)")
	pFlags.String("log-level", "info", "Log level: debug, info, warn, error")
	pFlags.String("log-format", "text", "Log format: text, json")
	pFlags.String("route", "", "Route GeoJSON file (tour boundary polygon and anchored point features)")
	pFlags.String("datadir", params.DefaultDatadirRoot, "Directory for persisted anchor corrections")
	pFlags.AddFlagSet(positioningFlagSet())

	cobra.CheckErr(viper.BindPFlags(pFlags))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(expandPath(cfgFile))
	} else {
		home, err := homedir.Dir()
		cobra.CheckErr(err)
		viper.AddConfigPath(filepath.Join(home, "."+params.AppName))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(strings.ToUpper(params.AppName))
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		slog.Debug("Using config file", "file", viper.ConfigFileUsed())
	}
}

// positioningFlagSet holds the resolver calibration flags.
func positioningFlagSet() *pflag.FlagSet {
	defaults := params.DefaultPositioningConfig()
	fs := pflag.NewFlagSet("positioning", pflag.ExitOnError)
	fs.Float64("elevation-offset", defaults.GlobalElevationOffset, "Meters added to every resolved elevation")
	fs.Bool("flip-yaw", defaults.FlipYaw, "Turn every resolved model around")
	fs.Float64("in-range", defaults.InRangeDistance, "Default in-range distance, meters")
	fs.Float64("all-in-range", defaults.AllInRangeDistance, "Default all-in-range distance, meters")
	return fs
}

func positioningConfig() *params.PositioningConfig {
	config := params.DefaultPositioningConfig()
	config.GlobalElevationOffset = viper.GetFloat64("elevation-offset")
	config.FlipYaw = viper.GetBool("flip-yaw")
	config.InRangeDistance = viper.GetFloat64("in-range")
	config.AllInRangeDistance = viper.GetFloat64("all-in-range")
	return config
}

func setDefaultSlog(cmd *cobra.Command, args []string) {
	h := common.NewSlogHandler(os.Stderr, viper.GetString("log-level"), viper.GetString("log-format"))
	slog.SetDefault(slog.New(h))
}

func expandPath(p string) string {
	expanded, err := homedir.Expand(p)
	if err != nil {
		return p
	}
	return expanded
}
