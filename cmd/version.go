/*
Copyright © 2026 Loam <oss@loamhq.dev>
*/
package cmd

import (
	"fmt"
	"runtime"

	"github.com/loamhq/ctxtidy/pkg/buildinfo"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ctxtidy %s (%s/%s, %s)\n",
			buildinfo.Version(), runtime.GOOS, runtime.GOARCH, runtime.Version())
	},
}
