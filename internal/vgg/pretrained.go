package vgg

// ImageNet normalization statistics.
var (
	ImageNetMean = [3]float64{0.485, 0.456, 0.406}
	ImageNetStd  = [3]float64{0.229, 0.224, 0.225}
)

// PretrainedCfg is the metadata published with a pretrained weight set.
type PretrainedCfg struct {
	Tag           string     `json:"tag"`
	HFHubID       string     `json:"hf_hub_id"`
	NumClasses    int        `json:"num_classes"`
	InputSize     [3]int     `json:"input_size"` // C, H, W
	PoolSize      [2]int     `json:"pool_size"`
	CropPct       float64    `json:"crop_pct"`
	Interpolation string     `json:"interpolation"`
	Mean          [3]float64 `json:"mean"`
	Std           [3]float64 `json:"std"`
	FirstConv     string     `json:"first_conv"`
	Classifier    string     `json:"classifier"`
}

// DefaultTag names the torchvision ImageNet-1k weights.
const DefaultTag = "tv_in1k"

func defaultPretrainedCfg() PretrainedCfg {
	return PretrainedCfg{
		Tag:           DefaultTag,
		HFHubID:       "timm/",
		NumClasses:    1000,
		InputSize:     [3]int{3, 224, 224},
		PoolSize:      [2]int{7, 7},
		CropPct:       0.875,
		Interpolation: "bilinear",
		Mean:          ImageNetMean,
		Std:           ImageNetStd,
		FirstConv:     "features.0",
		Classifier:    "head.fc",
	}
}

// ResizeSize is the shorter-side length images are resized to before the
// center crop: floor(H / CropPct).
func (c PretrainedCfg) ResizeSize() int {
	return int(float64(c.InputSize[1]) / c.CropPct)
}
