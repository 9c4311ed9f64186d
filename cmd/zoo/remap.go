package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/born-ml/zoo/internal/checkpoint"
	"github.com/born-ml/zoo/internal/vgg"
)

func newRemapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remap INPUT OUTPUT",
		Short: "Convert a torchvision VGG checkpoint to the convolutional head layout",
		Long: "Reads a .pth, .bin or .safetensors VGG checkpoint, renames the flat classifier\n" +
			"to pre_logits.fc1, pre_logits.fc2 and head.fc, reshapes the first two weights\n" +
			"into convolution kernels and writes the result as safetensors.",
		Args: cobra.ExactArgs(2),
		RunE: remapHandler,
	}
}

func remapHandler(cmd *cobra.Command, args []string) error {
	in, out := args[0], args[1]

	sd, err := checkpoint.Read(cmd.Context(), in)
	if err != nil {
		return err
	}
	remapped := vgg.RemapLegacyClassifier(sd)

	if err := checkpoint.WriteSafeTensors(out, remapped, map[string]string{"format": "pt"}); err != nil {
		return err
	}
	slog.Info("wrote checkpoint", "path", out, "tensors", remapped.Len(), "elements", remapped.NumElements())
	fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%d tensors)\n", in, out, remapped.Len())
	return nil
}
