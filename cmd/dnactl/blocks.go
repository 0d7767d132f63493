package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/dnakit/bhead"
)

func init() {
	rootCmd.AddCommand(newBlocksCmd())
}

var blocksCode string

func newBlocksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blocks <file>",
		Short: "List the block headers of a file",
		Long: `The blocks command prints each block header: code, file offset, payload
length, old address, struct and element count.

Example:
  dnactl blocks scene.blend --code DATA`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBlocks(args)
		},
	}
	cmd.Flags().StringVar(&blocksCode, "code", "", "Only blocks with this code")
	return cmd
}

type blockRow struct {
	Code       string `json:"code"`
	Offset     int    `json:"offset"`
	Length     uint32 `json:"length"`
	OldAddress string `json:"old_address"`
	Struct     string `json:"struct"`
	Count      uint32 `json:"count"`
}

func runBlocks(args []string) error {
	renames, err := loadRenames()
	if err != nil {
		return err
	}
	l, err := openFile(args[0], renames)
	if err != nil {
		return err
	}
	defer l.Close()

	s := l.info.Stored
	rows := make([]blockRow, 0, len(l.info.Blocks))
	for _, b := range l.info.Blocks {
		code := b.Code.String()
		if blocksCode != "" && code != blocksCode {
			continue
		}
		row := blockRow{
			Code:       code,
			Offset:     b.Offset,
			Length:     b.Length,
			OldAddress: fmt.Sprintf("%#x", b.OldAddress),
			Count:      b.Count,
		}
		if b.Code != bhead.CodeDNA1 && int(b.StructIndex) < s.NumStructs() {
			row.Struct = s.StructName(int(b.StructIndex))
		}
		rows = append(rows, row)
	}

	if jsonOut {
		return printJSON(rows)
	}
	printInfo("%s\n", render(headerStyle, fmt.Sprintf("%-6s %10s %10s %18s  %-24s %s", "CODE", "OFFSET", "LENGTH", "OLD ADDRESS", "STRUCT", "COUNT")))
	for _, r := range rows {
		printInfo("%-6s %10d %10d %18s  %-24s %d\n", r.Code, r.Offset, r.Length, r.OldAddress, r.Struct, r.Count)
	}
	return nil
}
