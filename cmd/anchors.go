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
	"fmt"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/studio0rpiment/wayside/common"
	"log"
	"os"
	"text/tabwriter"
)

// anchorsCmd represents the anchors command
var anchorsCmd = &cobra.Command{
	Use:   "anchors",
	Short: "List the route's anchors",
	Long: `Lists each anchor with its distance from the tour origin
and how far any correction moved it from its route coordinates.`,
	PreRun: setDefaultSlog,
	Run: func(cmd *cobra.Command, args []string) {
		c, err := openCore(false, true)
		if err != nil {
			log.Fatalln(err)
		}
		defer c.Close()

		origin := c.projector.Origin()
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tGPS\tFROM ORIGIN\tCORRECTED\tDIFF\tGEOFENCE")
		for _, a := range c.registry.All() {
			diff, _ := c.registry.DiffFromOriginal(a.ID)
			fmt.Fprintf(w, "%s\t%s\t%v,%v\t%s\t%t\t%s\t%s %s\n",
				a.ID, a.Title,
				common.DecimalToFixed(a.GPS.Lat(), common.GPSPrecision6),
				common.DecimalToFixed(a.GPS.Lon(), common.GPSPrecision6),
				humanizeMeters(c.projector.GroundDistance(origin, a.GPS)),
				a.CorrectionApplied,
				humanizeMeters(diff.DeltaMeters),
				a.Geofence.Shape, humanizeMeters(a.Geofence.Radius),
			)
		}
		if err := w.Flush(); err != nil {
			log.Fatalln(err)
		}
		fmt.Printf("%s anchors, %s trained corrections\n",
			humanize.Comma(int64(c.registry.Len())), humanize.Comma(int64(c.oracle.TrainedCount())))
	},
}

func humanizeMeters(m float64) string {
	v, unit := humanize.ComputeSI(m)
	return humanize.Ftoa(common.DecimalToFixed(v, common.MetersPrecision)) + " " + unit + "m"
}

func init() {
	rootCmd.AddCommand(anchorsCmd)
}
