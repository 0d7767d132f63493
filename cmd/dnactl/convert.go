package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/dnakit/blend"
	"github.com/joshuapare/dnakit/cmd/dnactl/logger"
	"github.com/joshuapare/dnakit/internal/blobio"
	"github.com/joshuapare/dnakit/reconcile"
)

func init() {
	rootCmd.AddCommand(newConvertCmd())
}

var (
	convertLayout   string
	convertOut      string
	convertCompress string
	convertVersion  int
	convertStrict   bool
)

func newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <file> --layout <reference> -o <out>",
		Short: "Rewrite a file into the struct layout of another file",
		Long: `The convert command loads a file, converts every block into the layout
table found in the reference file, and writes the result. Fields the reference
layout adds are zero, removed fields are dropped, and pointer widths and byte
order follow the reference. Lossy conversions are reported as warnings.

Example:
  dnactl convert old.blend --layout new.blend -o converted.blend
  dnactl convert old.blend --layout new.blend -o out.blend --compress zstd --strict`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(args)
		},
	}
	cmd.Flags().StringVar(&convertLayout, "layout", "", "File whose layout table is the target (required)")
	cmd.Flags().StringVarP(&convertOut, "output", "o", "", "Output path (required)")
	cmd.Flags().StringVar(&convertCompress, "compress", "none", "Output compression: none, gzip, zstd, lz4")
	cmd.Flags().IntVar(&convertVersion, "file-version", 0, "Version written to the header (default: the input's)")
	cmd.Flags().BoolVar(&convertStrict, "strict", false, "Fail when any conversion is lossy")
	_ = cmd.MarkFlagRequired("layout")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

type convertResult struct {
	Blocks    int                 `json:"blocks"`
	Converted int                 `json:"converted"`
	Dropped   int                 `json:"dropped"`
	Skipped   int                 `json:"skipped"`
	Warnings  []reconcile.Warning `json:"warnings"`
}

func runConvert(args []string) error {
	codec, err := blobio.ParseCodec(convertCompress)
	if err != nil {
		return err
	}
	renames, err := loadRenames()
	if err != nil {
		return err
	}

	ref, err := openFile(convertLayout, nil)
	if err != nil {
		return err
	}
	defer ref.Close()

	in, err := blobio.Open(args[0], 0)
	if err != nil {
		return err
	}
	defer in.Close()

	collected := reconcile.NewCollector()
	sess, err := blend.Open(in.Data, ref.info.Stored, blend.Options{
		Logger:   logger.L,
		Warnings: reconcile.Tee(collected, reconcile.NewLogSink(logger.L)),
		Renames:  renames,
		Params:   blend.ReadParams{IsStartup: true},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	defer sess.Close()

	if convertStrict && collected.Len() > 0 {
		for _, w := range collected.Warnings() {
			fmt.Fprintln(os.Stderr, w.String())
		}
		return fmt.Errorf("%s: %d lossy conversions", args[0], collected.Len())
	}

	version := convertVersion
	if version == 0 {
		version = sess.Header.Version
	}
	var out bytes.Buffer
	if err := sess.Save(&out, version); err != nil {
		return err
	}
	f, err := os.Create(convertOut)
	if err != nil {
		return err
	}
	if err := blobio.Compress(f, out.Bytes(), codec); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	st := sess.Stats()
	res := convertResult{
		Blocks:    st.Blocks,
		Converted: st.Converted,
		Dropped:   st.Raw,
		Skipped:   st.Skipped,
		Warnings:  collected.Warnings(),
	}
	logger.Info("converted", "input", args[0], "output", convertOut, "session", sess.ID.String(),
		"converted", res.Converted, "dropped", res.Dropped, "warnings", len(res.Warnings))

	if jsonOut {
		return printJSON(res)
	}
	printInfo("%s %s -> %s\n", render(headerStyle, "Converted"), args[0], convertOut)
	printInfo("  %d blocks converted, %d dropped (struct not in target layout), %d skipped\n",
		res.Converted, res.Dropped, res.Skipped)
	if len(res.Warnings) > 0 {
		printInfo("  %s\n", render(changedStyle, fmt.Sprintf("%d lossy conversions", len(res.Warnings))))
		for _, w := range res.Warnings {
			printVerbose("    %s\n", w.String())
		}
	}
	return nil
}
