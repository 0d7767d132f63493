package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newStructsCmd())
}

var (
	structsFilter  string
	structsMembers bool
)

func newStructsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "structs <file>",
		Short: "List the struct layouts stored in a file",
		Long: `The structs command prints every struct of the file's stored layout table
with its size, and optionally each member with its byte offset.

Example:
  dnactl structs scene.blend --filter Mesh --members`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStructs(args)
		},
	}
	cmd.Flags().StringVar(&structsFilter, "filter", "", "Only structs whose name contains this text")
	cmd.Flags().BoolVar(&structsMembers, "members", false, "Print members and offsets")
	return cmd
}

type memberRow struct {
	Offset int    `json:"offset"`
	Size   int    `json:"size"`
	Type   string `json:"type"`
	Name   string `json:"name"`
}

type structRow struct {
	Index   int         `json:"index"`
	Name    string      `json:"name"`
	Current string      `json:"current_name,omitempty"`
	Size    int         `json:"size"`
	Members []memberRow `json:"members,omitempty"`
}

func runStructs(args []string) error {
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
	var rows []structRow
	for i := 0; i < s.NumStructs(); i++ {
		name := s.StructName(i)
		if structsFilter != "" && !strings.Contains(name, structsFilter) {
			continue
		}
		row := structRow{Index: i, Name: name, Size: s.StructSize(i)}
		if alias := s.AliasStructName(i); alias != name {
			row.Current = alias
		}
		if structsMembers {
			offs := s.MemberOffsets(i)
			for j, m := range s.Struct(i).Members {
				row.Members = append(row.Members, memberRow{
					Offset: offs[j],
					Size:   s.MemberSize(m),
					Type:   s.TypeName(int(m.Type)),
					Name:   s.Name(int(m.Name)),
				})
			}
		}
		rows = append(rows, row)
	}

	if jsonOut {
		return printJSON(rows)
	}
	for _, row := range rows {
		title := row.Name
		if row.Current != "" {
			title += " -> " + row.Current
		}
		printInfo("%4d  %s  %s\n", row.Index, render(headerStyle, title), render(labelStyle, formatSize(row.Size)))
		for _, m := range row.Members {
			printInfo("        %5d  %4d  %s %s\n", m.Offset, m.Size, m.Type, m.Name)
		}
	}
	printVerbose("\n%d of %d structs\n", len(rows), s.NumStructs())
	return nil
}
