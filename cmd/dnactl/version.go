package main

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/joshuapare/dnakit/internal/blobio"
)

// Set at link time: -ldflags "-X main.version=v0.3.0 -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type versionInfo struct {
	Version string   `json:"version"`
	Commit  string   `json:"commit"`
	Built   string   `json:"built"`
	Go      string   `json:"go"`
	Codecs  []string `json:"codecs"`
}

func currentVersion() versionInfo {
	info := versionInfo{Version: version, Commit: commit, Built: date, Go: runtime.Version()}
	for _, c := range []blobio.Codec{blobio.CodecNone, blobio.CodecGzip, blobio.CodecZstd, blobio.CodecLZ4} {
		info.Codecs = append(info.Codecs, c.String())
	}
	return info
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the dnactl build and the compressions it reads",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := currentVersion()
		if jsonOut {
			return printJSON(info)
		}
		printInfo("dnactl %s (%s, built %s, %s)\n", info.Version, info.Commit, info.Built, info.Go)
		printVerbose("  codecs: %v\n", info.Codecs)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
