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
	"context"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/studio0rpiment/wayside/daemon/webd"
	"github.com/studio0rpiment/wayside/params"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// webdCmd represents the serve command
var webdCmd = &cobra.Command{
	Use:   "webd",
	Short: "Start the webserver",
	Long: `Serves anchors and placements to tour client apps over HTTP and websocket.

Calibration endpoints require --token when one is set.
Trained corrections persist under --datadir.`,
	PreRun: setDefaultSlog,
	Run: func(cmd *cobra.Command, args []string) {
		slog.Info("webd.Run")
		c, err := openCore(false, true)
		if err != nil {
			log.Fatalln(err)
		}
		defer c.Close()

		config := params.DefaultWebDaemonConfig()
		config.Address = viper.GetString("address")
		config.Token = viper.GetString("token")
		config.RoutePath = viper.GetString("route")
		server := webd.NewWebDaemon(config, c.resolver, nil, c.refiner)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := server.Run(ctx); err != nil {
			log.Fatalln(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(webdCmd)

	defaults := params.DefaultWebDaemonConfig()

	pFlags := webdCmd.PersistentFlags()
	pFlags.String("address", defaults.Address, "HTTP address to listen on")
	pFlags.String("token", defaults.Token, "Token required by calibration endpoints")
	cobra.CheckErr(viper.BindPFlags(pFlags))
}
