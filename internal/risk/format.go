package risk

// FormatVersion identifies the model file layout.
const FormatVersion = "poserisk-sequential/v1"

// modelFile is the on-disk model:
//
//	{
//	  "format": "poserisk-sequential/v1",
//	  "input_shape": [30, 3],
//	  "layers": [
//	    {"class_name": "LSTM", "name": "lstm", "config": {"units": 64},
//	     "weights": {"kernel": [[...]], "recurrent_kernel": [[...]], "bias": [...]}},
//	    {"class_name": "Dense", "name": "dense", "config": {"units": 1, "activation": "sigmoid"},
//	     "weights": {"kernel": [[...]], "bias": [...]}}
//	  ],
//	  "training_config": {"loss": "mse", "optimizer": "adam", "metrics": ["mae"]}
//	}
//
// Weight arrays use the Keras get_weights() layout.
type modelFile struct {
	Format         string          `json:"format"`
	InputShape     []int           `json:"input_shape"`
	Layers         []layerSpec     `json:"layers"`
	TrainingConfig *trainingConfig `json:"training_config,omitempty"`
}

type layerSpec struct {
	ClassName string       `json:"class_name"`
	Name      string       `json:"name"`
	Config    layerConfig  `json:"config"`
	Weights   layerWeights `json:"weights"`
}

type layerConfig struct {
	Units               int    `json:"units"`
	Activation          string `json:"activation,omitempty"`
	RecurrentActivation string `json:"recurrent_activation,omitempty"`
	ReturnSequences     bool   `json:"return_sequences,omitempty"`
}

type layerWeights struct {
	Kernel          [][]float64 `json:"kernel"`
	RecurrentKernel [][]float64 `json:"recurrent_kernel,omitempty"`
	Bias            []float64   `json:"bias"`
}

type trainingConfig struct {
	Loss      string   `json:"loss"`
	Optimizer string   `json:"optimizer,omitempty"`
	Metrics   []string `json:"metrics,omitempty"`
}
