package risk

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidModel is returned for model files that are structurally unusable.
var ErrInvalidModel = errors.New("invalid model")

type activation func(float64) float64

var activations = map[string]activation{
	"linear":  func(x float64) float64 { return x },
	"relu":    func(x float64) float64 { return math.Max(0, x) },
	"sigmoid": sigmoid,
	"tanh":    math.Tanh,
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func lookupActivation(name, fallback string) (activation, string, error) {
	if name == "" {
		name = fallback
	}
	act, ok := activations[strings.ToLower(name)]
	if !ok {
		return nil, "", fmt.Errorf("%w: unknown activation %q", ErrInvalidModel, name)
	}
	return act, strings.ToLower(name), nil
}

// layer transforms a sequence, one row per timestep. A vector is a single row.
type layer interface {
	forward(x *mat.Dense) *mat.Dense
	info() LayerInfo
}

// LayerInfo describes one layer of a loaded network.
type LayerInfo struct {
	Class      string `json:"class"`
	Name       string `json:"name"`
	Units      int    `json:"units"`
	Activation string `json:"activation"`
}

// lstmLayer is a Keras LSTM with gate order i, f, c, o.
type lstmLayer struct {
	name            string
	units           int
	kernel          *mat.Dense // input x 4*units
	recurrentKernel *mat.Dense // units x 4*units
	bias            []float64  // 4*units
	activation      activation
	activationName  string
	recurrent       activation
	returnSequences bool
}

func (l *lstmLayer) forward(x *mat.Dense) *mat.Dense {
	steps, _ := x.Dims()
	u := l.units

	h := mat.NewVecDense(u, nil)
	c := make([]float64, u)
	var out *mat.Dense
	if l.returnSequences {
		out = mat.NewDense(steps, u, nil)
	}

	zx := mat.NewVecDense(4*u, nil)
	zh := mat.NewVecDense(4*u, nil)
	for t := 0; t < steps; t++ {
		zx.MulVec(l.kernel.T(), x.RowView(t))
		zh.MulVec(l.recurrentKernel.T(), h)
		zx.AddVec(zx, zh)

		for j := 0; j < u; j++ {
			i := l.recurrent(zx.AtVec(j) + l.bias[j])
			f := l.recurrent(zx.AtVec(u+j) + l.bias[u+j])
			g := l.activation(zx.AtVec(2*u+j) + l.bias[2*u+j])
			o := l.recurrent(zx.AtVec(3*u+j) + l.bias[3*u+j])
			c[j] = f*c[j] + i*g
			h.SetVec(j, o*l.activation(c[j]))
		}
		if out != nil {
			out.SetRow(t, h.RawVector().Data)
		}
	}

	if out != nil {
		return out
	}
	return mat.NewDense(1, u, mat.VecDenseCopyOf(h).RawVector().Data)
}

func (l *lstmLayer) info() LayerInfo {
	return LayerInfo{Class: "LSTM", Name: l.name, Units: l.units, Activation: l.activationName}
}

// denseLayer applies act(x·W + b) to every row.
type denseLayer struct {
	name           string
	units          int
	kernel         *mat.Dense // input x units
	bias           []float64
	activation     activation
	activationName string
}

func (l *denseLayer) forward(x *mat.Dense) *mat.Dense {
	rows, _ := x.Dims()
	out := mat.NewDense(rows, l.units, nil)
	out.Mul(x, l.kernel)
	out.Apply(func(_, j int, v float64) float64 {
		return l.activation(v + l.bias[j])
	}, out)
	return out
}

func (l *denseLayer) info() LayerInfo {
	return LayerInfo{Class: "Dense", Name: l.name, Units: l.units, Activation: l.activationName}
}

// network is an immutable stack of layers.
type network struct {
	inputShape [2]int
	layers     []layer
}

// predict runs the network on a timesteps x features input and returns
// its single output value.
func (n *network) predict(x *mat.Dense) float64 {
	for _, l := range n.layers {
		x = l.forward(x)
	}
	return x.At(0, 0)
}

// buildNetwork validates the layer specs and converts them into layers.
func buildNetwork(mf *modelFile) (*network, error) {
	if len(mf.InputShape) != 2 {
		return nil, fmt.Errorf("%w: input_shape must be [timesteps, features], got %v", ErrInvalidModel, mf.InputShape)
	}
	if mf.InputShape[0] <= 0 || mf.InputShape[1] <= 0 {
		return nil, fmt.Errorf("%w: input_shape must be positive, got %v", ErrInvalidModel, mf.InputShape)
	}
	if len(mf.Layers) == 0 {
		return nil, fmt.Errorf("%w: no layers", ErrInvalidModel)
	}

	n := &network{inputShape: [2]int{mf.InputShape[0], mf.InputShape[1]}}
	rows, width := mf.InputShape[0], mf.InputShape[1]

	for i, spec := range mf.Layers {
		name := spec.Name
		if name == "" {
			name = fmt.Sprintf("layer_%d", i)
		}
		if spec.Config.Units <= 0 {
			return nil, fmt.Errorf("%w: layer %s: units must be positive", ErrInvalidModel, name)
		}

		switch spec.ClassName {
		case "LSTM":
			if rows == 1 && i > 0 {
				return nil, fmt.Errorf("%w: layer %s: LSTM needs a sequence input", ErrInvalidModel, name)
			}
			l, err := buildLSTM(name, spec, width)
			if err != nil {
				return nil, err
			}
			n.layers = append(n.layers, l)
			if !l.returnSequences {
				rows = 1
			}
			width = l.units
		case "Dense":
			l, err := buildDense(name, spec, width)
			if err != nil {
				return nil, err
			}
			n.layers = append(n.layers, l)
			width = l.units
		default:
			return nil, fmt.Errorf("%w: layer %s: unsupported class %q", ErrInvalidModel, name, spec.ClassName)
		}
	}

	if rows != 1 || width != 1 {
		return nil, fmt.Errorf("%w: model must produce a single value, produces %dx%d", ErrInvalidModel, rows, width)
	}
	return n, nil
}

func buildLSTM(name string, spec layerSpec, inputWidth int) (*lstmLayer, error) {
	u := spec.Config.Units
	act, actName, err := lookupActivation(spec.Config.Activation, "tanh")
	if err != nil {
		return nil, fmt.Errorf("layer %s: %w", name, err)
	}
	rec, _, err := lookupActivation(spec.Config.RecurrentActivation, "sigmoid")
	if err != nil {
		return nil, fmt.Errorf("layer %s: %w", name, err)
	}

	kernel, err := matrix(name, "kernel", spec.Weights.Kernel, inputWidth, 4*u)
	if err != nil {
		return nil, err
	}
	recurrent, err := matrix(name, "recurrent_kernel", spec.Weights.RecurrentKernel, u, 4*u)
	if err != nil {
		return nil, err
	}
	bias, err := vector(name, spec.Weights.Bias, 4*u)
	if err != nil {
		return nil, err
	}

	return &lstmLayer{
		name:            name,
		units:           u,
		kernel:          kernel,
		recurrentKernel: recurrent,
		bias:            bias,
		activation:      act,
		activationName:  actName,
		recurrent:       rec,
		returnSequences: spec.Config.ReturnSequences,
	}, nil
}

func buildDense(name string, spec layerSpec, inputWidth int) (*denseLayer, error) {
	u := spec.Config.Units
	act, actName, err := lookupActivation(spec.Config.Activation, "linear")
	if err != nil {
		return nil, fmt.Errorf("layer %s: %w", name, err)
	}
	kernel, err := matrix(name, "kernel", spec.Weights.Kernel, inputWidth, u)
	if err != nil {
		return nil, err
	}
	bias, err := vector(name, spec.Weights.Bias, u)
	if err != nil {
		return nil, err
	}
	return &denseLayer{
		name:           name,
		units:          u,
		kernel:         kernel,
		bias:           bias,
		activation:     act,
		activationName: actName,
	}, nil
}

func matrix(layerName, field string, data [][]float64, rows, cols int) (*mat.Dense, error) {
	if len(data) != rows {
		return nil, fmt.Errorf("%w: layer %s: %s has %d rows, expected %d", ErrInvalidModel, layerName, field, len(data), rows)
	}
	flat := make([]float64, 0, rows*cols)
	for r, row := range data {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: layer %s: %s row %d has %d columns, expected %d",
				ErrInvalidModel, layerName, field, r, len(row), cols)
		}
		flat = append(flat, row...)
	}
	if err := checkFinite(layerName, field, flat); err != nil {
		return nil, err
	}
	return mat.NewDense(rows, cols, flat), nil
}

func vector(layerName string, data []float64, n int) ([]float64, error) {
	if len(data) != n {
		return nil, fmt.Errorf("%w: layer %s: bias has %d values, expected %d", ErrInvalidModel, layerName, len(data), n)
	}
	if err := checkFinite(layerName, "bias", data); err != nil {
		return nil, err
	}
	return append([]float64(nil), data...), nil
}

func checkFinite(layerName, field string, values []float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: layer %s: %s holds a non-finite weight", ErrInvalidModel, layerName, field)
		}
	}
	return nil
}
