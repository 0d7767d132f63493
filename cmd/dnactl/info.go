package main

import (
	"context"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joshuapare/dnakit/dna"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

var infoJobs int

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <file>...",
		Short: "Report the header and layout summary of stored files",
		Long: `The info command reads each file's header, block list and stored layout
table and prints a summary. Files are read in parallel.

Example:
  dnactl info scene.blend
  dnactl info *.blend --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd.Context(), args)
		},
	}
	cmd.Flags().IntVarP(&infoJobs, "jobs", "j", 4, "Files read concurrently")
	return cmd
}

// fileInfo is the per-file summary.
type fileInfo struct {
	Path        string         `json:"path"`
	Size        int            `json:"size"`
	Loaded      int            `json:"loaded_size"`
	Codec       string         `json:"codec"`
	Version     int            `json:"version"`
	PointerSize int            `json:"pointer_size"`
	ByteOrder   string         `json:"byte_order"`
	Blocks      int            `json:"blocks"`
	BlockCodes  map[string]int `json:"block_codes"`
	Types       int            `json:"types"`
	Names       int            `json:"names"`
	Structs     int            `json:"structs"`
	Buckets     int            `json:"index_buckets"`
	MaxChain    int            `json:"index_max_chain"`
}

func runInfo(ctx context.Context, paths []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	renames, err := loadRenames()
	if err != nil {
		return err
	}

	results := make([]fileInfo, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(infoJobs, 1))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fi, err := summarize(path, renames)
			if err != nil {
				return err
			}
			results[i] = fi
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if jsonOut {
		return printJSON(results)
	}
	for _, fi := range results {
		printInfo("\n%s\n", render(headerStyle, fi.Path))
		printInfo("  %s %s (%s, %s loaded)\n", render(labelStyle, "Size:"), formatSize(fi.Size), fi.Codec, formatSize(fi.Loaded))
		printInfo("  %s %d\n", render(labelStyle, "Version:"), fi.Version)
		printInfo("  %s %d bytes, %s\n", render(labelStyle, "Pointers:"), fi.PointerSize, fi.ByteOrder)
		printInfo("  %s %d\n", render(labelStyle, "Blocks:"), fi.Blocks)
		printInfo("  %s %d structs, %d types, %d names\n", render(labelStyle, "Layout:"), fi.Structs, fi.Types, fi.Names)
		printVerbose("  %s %d buckets, longest chain %d\n", render(labelStyle, "Index:"), fi.Buckets, fi.MaxChain)
		if verbose {
			for _, code := range slices.Sorted(maps.Keys(fi.BlockCodes)) {
				printVerbose("    %-6s %d\n", code, fi.BlockCodes[code])
			}
		}
	}
	return nil
}

func summarize(path string, renames *dna.Renames) (fileInfo, error) {
	l, err := openFile(path, renames)
	if err != nil {
		return fileInfo{}, err
	}
	defer l.Close()

	s := l.info.Stored
	fi := fileInfo{
		Path:        path,
		Size:        len(l.blob.Data),
		Loaded:      len(l.blob.Data),
		Codec:       l.blob.Codec.String(),
		Version:     l.info.Header.Version,
		PointerSize: l.info.Header.PointerSize,
		ByteOrder:   byteOrderName(s),
		Blocks:      len(l.info.Blocks),
		BlockCodes:  make(map[string]int),
		Types:       s.NumTypes(),
		Names:       s.NumNames(),
		Structs:     s.NumStructs(),
	}
	if st, err := os.Stat(path); err == nil {
		fi.Size = int(st.Size())
	}
	for _, b := range l.info.Blocks {
		fi.BlockCodes[b.Code.String()]++
	}
	stats, err := s.IndexStats()
	if err != nil {
		return fileInfo{}, err
	}
	fi.Buckets = stats.Buckets
	fi.MaxChain = stats.MaxChain
	return fi, nil
}
