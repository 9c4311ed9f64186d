package main

import (
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/born-ml/zoo/internal/vgg"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list [pattern]",
		Aliases: []string{"ls"},
		Short:   "List models",
		Args:    cobra.MaximumNArgs(1),
		RunE:    listHandler,
	}
}

func listHandler(cmd *cobra.Command, args []string) error {
	pattern := ""
	if len(args) > 0 {
		pattern = args[0]
	}
	names, err := vgg.List(pattern)
	if err != nil {
		return err
	}

	var data [][]string
	for _, name := range names {
		v, err := vgg.Lookup(name)
		if err != nil {
			return err
		}
		layers, _ := vgg.LayerConfig(v.Base)
		norm := v.Norm
		if norm == "" {
			norm = "-"
		}
		data = append(data, []string{v.FullName(), layerString(layers), norm})
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"NAME", "LAYERS", "NORM"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
	return nil
}

func layerString(layers []vgg.LayerSpec) string {
	parts := make([]string, len(layers))
	for i, l := range layers {
		parts[i] = l.String()
	}
	return strings.Join(parts, " ")
}
