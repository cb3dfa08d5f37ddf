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
	"encoding/json"
	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
	"github.com/studio0rpiment/wayside/conceptual"
	"github.com/studio0rpiment/wayside/resolver"
	"log"
	"os"
)

var optUserLat, optUserLon float64
var optExperienceID string
var optDebug bool
var optUniversal bool
var optMaxDistance float64

// resolveCmd represents the resolve command
var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve experience placements for a visitor position",
	Long: `Resolves placements relative to a visitor at --lat/--lon and prints them as JSON.

With --id, only that experience is resolved. Otherwise every experience
within --max-distance meters is printed, nearest first.

With --debug, placements use the debug override position.`,
	PreRun: setDefaultSlog,
	Run: func(cmd *cobra.Command, args []string) {
		c, err := openCore(optDebug, false)
		if err != nil {
			log.Fatalln(err)
		}
		defer c.Close()

		user := resolver.UserInput{Universal: optUniversal}
		if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
			user.GPS = &orb.Point{optUserLon, optUserLat}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if optExperienceID != "" {
			rp, ok := c.resolver.Resolve(conceptual.ExperienceID(optExperienceID), user, resolver.Options{
				UseDebugOverride: optDebug,
			})
			if !ok {
				log.Fatalf("no experience %q\n", optExperienceID)
			}
			if err := enc.Encode(rp); err != nil {
				log.Fatalln(err)
			}
			return
		}
		if err := enc.Encode(c.resolver.AllInRange(user, optMaxDistance)); err != nil {
			log.Fatalln(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	flags := resolveCmd.Flags()
	flags.Float64Var(&optUserLat, "lat", 0, "Visitor latitude")
	flags.Float64Var(&optUserLon, "lon", 0, "Visitor longitude")
	flags.StringVar(&optExperienceID, "id", "", "Experience to resolve (default all in range)")
	flags.BoolVar(&optDebug, "debug", false, "Enable debug mode")
	flags.BoolVar(&optUniversal, "universal", false, "Treat the visitor as universal (not on site)")
	flags.Float64Var(&optMaxDistance, "max-distance", 0, "Range in meters for all-in-range (default from config)")
}
