package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/dnakit/reconcile"
)

func init() {
	rootCmd.AddCommand(newDiffCmd())
}

var diffAll bool

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Compare the struct layouts of two files",
		Long: `The diff command matches the structs of the old file's layout against the
new file's layout (after renames) and reports which were removed, changed, added
or left identical.

Example:
  dnactl diff old.blend new.blend
  dnactl diff old.blend new.blend --renames renames.txt --all`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(args)
		},
	}
	cmd.Flags().BoolVar(&diffAll, "all", false, "Also list identical structs")
	return cmd
}

type diffRow struct {
	Struct  string `json:"struct"`
	Status  string `json:"status"`
	OldSize int    `json:"old_size,omitempty"`
	NewSize int    `json:"new_size,omitempty"`
}

type diffReport struct {
	Removed int       `json:"removed"`
	Changed int       `json:"changed"`
	Added   int       `json:"added"`
	Equal   int       `json:"equal"`
	Structs []diffRow `json:"structs"`
}

func runDiff(args []string) error {
	renames, err := loadRenames()
	if err != nil {
		return err
	}
	oldFile, err := openFile(args[0], renames)
	if err != nil {
		return err
	}
	defer oldFile.Close()
	newFile, err := openFile(args[1], nil)
	if err != nil {
		return err
	}
	defer newFile.Close()

	report := compareLayouts(oldFile, newFile)

	if jsonOut {
		return printJSON(report)
	}
	for _, row := range report.Structs {
		var status string
		switch row.Status {
		case "removed":
			status = render(removedStyle, "- removed")
		case "added":
			status = render(equalStyle, "+ added  ")
		case "changed":
			status = render(changedStyle, "~ changed")
		default:
			status = render(labelStyle, "  equal  ")
		}
		printInfo("%s  %-32s %5d -> %d\n", status, row.Struct, row.OldSize, row.NewSize)
	}
	printInfo("\n%d removed, %d changed, %d added, %d equal\n", report.Removed, report.Changed, report.Added, report.Equal)
	return nil
}

func compareLayouts(oldFile, newFile *loaded) diffReport {
	old, cur := oldFile.info.Stored, newFile.info.Stored
	r := reconcile.New(old, cur)

	var report diffReport
	matched := make([]bool, cur.NumStructs())
	for i, flag := range r.CompareFlags() {
		row := diffRow{Struct: old.AliasStructName(i), OldSize: old.StructSize(i)}
		if c, ok := r.Counterpart(i); ok {
			matched[c] = true
			row.NewSize = cur.StructSize(c)
		}
		switch flag {
		case reconcile.NotInCurrent:
			row.Status = "removed"
			report.Removed++
		case reconcile.Different:
			row.Status = "changed"
			report.Changed++
		default:
			row.Status = "equal"
			report.Equal++
			if !diffAll {
				continue
			}
		}
		report.Structs = append(report.Structs, row)
	}
	for c, ok := range matched {
		if ok {
			continue
		}
		report.Added++
		report.Structs = append(report.Structs, diffRow{Struct: cur.StructName(c), Status: "added", NewSize: cur.StructSize(c)})
	}
	return report
}
