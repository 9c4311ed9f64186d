package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/born-ml/zoo/internal/backend/cpu"
	"github.com/born-ml/zoo/internal/nn"
	"github.com/born-ml/zoo/internal/vgg"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info MODEL",
		Short: "Show feature stages and pretrained metadata of a model",
		Args:  cobra.ExactArgs(1),
		RunE:  infoHandler,
	}
}

// headParameters counts the ConvMlp and a 1000-class head without
// allocating them.
func headParameters(numFeatures int) int {
	const hidden, k, classes = vgg.HeadHiddenSize, vgg.HeadKernelSize, 1000
	fc1 := hidden*numFeatures*k*k + hidden
	fc2 := hidden*hidden + hidden
	fc := classes*hidden + classes
	return fc1 + fc2 + fc
}

func infoHandler(cmd *cobra.Command, args []string) error {
	v, err := vgg.Lookup(args[0])
	if err != nil {
		return err
	}
	layers, _ := vgg.LayerConfig(v.Base)

	f, err := vgg.NewLayerFactory[*cpu.CPUBackend](vgg.ConvDefault, v.Norm, nn.ActReLU)
	if err != nil {
		return err
	}
	features, info := vgg.BuildFeatures(layers, 3, f, cpu.New())

	w := cmd.OutOrStdout()
	numFeatures := info[len(info)-1].NumChannels
	featureParams := nn.NumParameters[*cpu.CPUBackend](features)
	fmt.Fprintf(w, "model:       %s\n", v.FullName())
	fmt.Fprintf(w, "layers:      %s\n", layerString(layers))
	fmt.Fprintf(w, "features:    %d modules, %d parameters\n", features.Len(), featureParams)
	fmt.Fprintf(w, "parameters:  %d\n\n", featureParams+headParameters(numFeatures))

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"STAGE", "MODULE", "CHANNELS", "REDUCTION"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for i, s := range info {
		table.Append([]string{strconv.Itoa(i), s.Module, strconv.Itoa(s.NumChannels), strconv.Itoa(s.Reduction)})
	}
	table.Render()

	pc := v.Pretrained
	fmt.Fprintln(w)
	table = tablewriter.NewWriter(w)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.AppendBulk([][]string{
		{"hf_hub_id", pc.HFHubID + v.FullName()},
		{"num_classes", strconv.Itoa(pc.NumClasses)},
		{"input_size", fmt.Sprint(pc.InputSize)},
		{"pool_size", fmt.Sprint(pc.PoolSize)},
		{"crop_pct", strconv.FormatFloat(pc.CropPct, 'g', -1, 64)},
		{"interpolation", pc.Interpolation},
		{"mean", fmt.Sprint(pc.Mean)},
		{"std", fmt.Sprint(pc.Std)},
		{"first_conv", pc.FirstConv},
		{"classifier", pc.Classifier},
	})
	table.Render()
	return nil
}
