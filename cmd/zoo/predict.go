package main

import (
	"bufio"
	"cmp"
	"fmt"
	"image"
	"math"
	"os"
	"slices"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/born-ml/zoo/internal/backend/cpu"
	"github.com/born-ml/zoo/internal/checkpoint"
	"github.com/born-ml/zoo/internal/tensor"
	"github.com/born-ml/zoo/internal/transforms"
	"github.com/born-ml/zoo/internal/vgg"
)

type predictOptions struct {
	weights string
	labels  string
	topK    int
}

func newPredictCmd() *cobra.Command {
	var opts predictOptions

	cmd := &cobra.Command{
		Use:   "predict MODEL IMAGE...",
		Short: "Classify images with a pretrained model",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return predictHandler(cmd, args, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.weights, "weights", "w", ".", "Directory holding <model>.safetensors or <model>.pth")
	cmd.Flags().StringVarP(&opts.labels, "labels", "l", "", "File with one class label per line")
	cmd.Flags().IntVarP(&opts.topK, "topk", "k", 5, "Number of classes to show per image")
	return cmd
}

func predictHandler(cmd *cobra.Command, args []string, opts predictOptions) error {
	name, paths := args[0], args[1:]
	if opts.topK < 1 {
		return fmt.Errorf("--topk must be at least 1, got %d", opts.topK)
	}

	v, err := vgg.Lookup(name)
	if err != nil {
		return err
	}

	labels, err := readLabels(opts.labels)
	if err != nil {
		return err
	}

	pc := v.Pretrained
	eval, err := transforms.NewEval(transforms.Config{
		Size:          pc.InputSize[1],
		CropPct:       pc.CropPct,
		Interpolation: pc.Interpolation,
		Mean:          pc.Mean,
		Std:           pc.Std,
	})
	if err != nil {
		return err
	}

	images := make([]image.Image, len(paths))
	for i, p := range paths {
		if images[i], err = transforms.Load(p); err != nil {
			return err
		}
	}

	backend := cpu.New()
	model, err := vgg.Create(cmd.Context(), name, backend,
		vgg.WithPretrained(checkpoint.DirSource{Dir: opts.weights}))
	if err != nil {
		return err
	}

	logits := model.Forward(tensor.New(eval.Batch(images), backend))
	numClasses := logits.Shape()[1]

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"IMAGE", "RANK", "CLASS", "PROBABILITY"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for i, p := range paths {
		probs := softmax(logits.Data()[i*numClasses : (i+1)*numClasses])
		for rank, c := range topK(probs, opts.topK) {
			label := strconv.Itoa(c)
			if c < len(labels) {
				label = labels[c]
			}
			table.Append([]string{p, strconv.Itoa(rank + 1), label, fmt.Sprintf("%.4f", probs[c])})
		}
	}
	table.Render()
	return nil
}

func readLabels(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		labels = append(labels, scanner.Text())
	}
	return labels, scanner.Err()
}

func softmax(logits []float32) []float64 {
	maxLogit := math.Inf(-1)
	for _, v := range logits {
		maxLogit = max(maxLogit, float64(v))
	}
	probs := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		probs[i] = math.Exp(float64(v) - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// topK returns the indices of the k largest probabilities, largest first.
func topK(probs []float64, k int) []int {
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(probs[b], probs[a])
	})
	return idx[:min(max(k, 0), len(idx))]
}
