package forecast

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"

	"gonum.org/v1/gonum/mat"

	"FinAlloc/internal/domain/models"
)

var weightsMagic = [6]byte{'A', 'L', 'S', 'T', 'M', 0x01}

// Architecture declares the layer sizes a weights file must match.
type Architecture struct {
	InputDim  int
	HiddenDim int
	OutputDim int
}

// DefaultArchitecture is the shipped model: one feature in, 64 hidden units, one scalar out.
func DefaultArchitecture() Architecture {
	return Architecture{InputDim: 1, HiddenDim: 64, OutputDim: 1}
}

func (a Architecture) String() string {
	return fmt.Sprintf("in=%d hidden=%d out=%d", a.InputDim, a.HiddenDim, a.OutputDim)
}

// Weights holds the tensors of the attention LSTM in state-dict order.
type Weights struct {
	Arch     Architecture
	WeightIH *mat.Dense    // 4H x I
	WeightHH *mat.Dense    // 4H x H
	BiasIH   *mat.VecDense // 4H
	BiasHH   *mat.VecDense // 4H
	AttnW    *mat.VecDense // H
	AttnB    float64
	FcW      *mat.Dense    // O x H
	FcB      *mat.VecDense // O
}

// Validate checks every tensor shape against Arch.
func (w *Weights) Validate() error {
	a := w.Arch
	if a.InputDim <= 0 || a.HiddenDim <= 0 || a.OutputDim <= 0 {
		return fmt.Errorf("%w: non-positive dims (%s)", models.ErrModelLoad, a)
	}
	if w.WeightIH == nil || w.WeightHH == nil || w.BiasIH == nil || w.BiasHH == nil ||
		w.AttnW == nil || w.FcW == nil || w.FcB == nil {
		return fmt.Errorf("%w: missing tensor", models.ErrModelLoad)
	}
	g := 4 * a.HiddenDim
	check := func(name string, m mat.Matrix, r, c int) error {
		mr, mc := m.Dims()
		if mr != r || mc != c {
			return fmt.Errorf("%w: %s is %dx%d, want %dx%d", models.ErrModelLoad, name, mr, mc, r, c)
		}
		return nil
	}
	if err := check("lstm.weight_ih_l0", w.WeightIH, g, a.InputDim); err != nil {
		return err
	}
	if err := check("lstm.weight_hh_l0", w.WeightHH, g, a.HiddenDim); err != nil {
		return err
	}
	if err := check("lstm.bias_ih_l0", w.BiasIH, g, 1); err != nil {
		return err
	}
	if err := check("lstm.bias_hh_l0", w.BiasHH, g, 1); err != nil {
		return err
	}
	if err := check("attn.weight", w.AttnW, a.HiddenDim, 1); err != nil {
		return err
	}
	if err := check("fc.weight", w.FcW, a.OutputDim, a.HiddenDim); err != nil {
		return err
	}
	return check("fc.bias", w.FcB, a.OutputDim, 1)
}

// InitWeights draws weights uniformly from [-1/sqrt(H), 1/sqrt(H)], the usual
// initialization for recurrent and linear layers. Used by demos and tests.
func InitWeights(arch Architecture, seed uint64) *Weights {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	bound := 1 / math.Sqrt(float64(arch.HiddenDim))
	draw := func(n int) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = (rng.Float64()*2 - 1) * bound
		}
		return out
	}
	g := 4 * arch.HiddenDim
	return &Weights{
		Arch:     arch,
		WeightIH: mat.NewDense(g, arch.InputDim, draw(g*arch.InputDim)),
		WeightHH: mat.NewDense(g, arch.HiddenDim, draw(g*arch.HiddenDim)),
		BiasIH:   mat.NewVecDense(g, draw(g)),
		BiasHH:   mat.NewVecDense(g, draw(g)),
		AttnW:    mat.NewVecDense(arch.HiddenDim, draw(arch.HiddenDim)),
		AttnB:    draw(1)[0],
		FcW:      mat.NewDense(arch.OutputDim, arch.HiddenDim, draw(arch.OutputDim*arch.HiddenDim)),
		FcB:      mat.NewVecDense(arch.OutputDim, draw(arch.OutputDim)),
	}
}

// LoadWeights reads a weights file and checks it against arch.
func LoadWeights(path string, arch Architecture) (*Weights, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", models.ErrModelLoad, path, err)
	}
	defer f.Close()
	return ReadWeights(bufio.NewReader(f), arch)
}

// ReadWeights decodes the binary weights format from r.
func ReadWeights(r io.Reader, arch Architecture) (*Weights, error) {
	var magic [6]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", models.ErrModelLoad, err)
	}
	if magic != weightsMagic {
		return nil, fmt.Errorf("%w: bad magic %q", models.ErrModelLoad, magic[:])
	}
	var dims [3]uint32
	if err := binary.Read(r, binary.LittleEndian, &dims); err != nil {
		return nil, fmt.Errorf("%w: read dims: %v", models.ErrModelLoad, err)
	}
	got := Architecture{InputDim: int(dims[0]), HiddenDim: int(dims[1]), OutputDim: int(dims[2])}
	if got != arch {
		return nil, fmt.Errorf("%w: file declares %s, model expects %s", models.ErrModelLoad, got, arch)
	}

	g := 4 * arch.HiddenDim
	read := func(name string, n int) ([]float64, error) {
		buf := make([]float32, n)
		if err := binary.Read(r, binary.LittleEndian, buf); err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", models.ErrModelLoad, name, err)
		}
		out := make([]float64, n)
		for i, v := range buf {
			out[i] = float64(v)
		}
		return out, nil
	}

	w := &Weights{Arch: arch}
	var data []float64
	var err error
	if data, err = read("lstm.weight_ih_l0", g*arch.InputDim); err != nil {
		return nil, err
	}
	w.WeightIH = mat.NewDense(g, arch.InputDim, data)
	if data, err = read("lstm.weight_hh_l0", g*arch.HiddenDim); err != nil {
		return nil, err
	}
	w.WeightHH = mat.NewDense(g, arch.HiddenDim, data)
	if data, err = read("lstm.bias_ih_l0", g); err != nil {
		return nil, err
	}
	w.BiasIH = mat.NewVecDense(g, data)
	if data, err = read("lstm.bias_hh_l0", g); err != nil {
		return nil, err
	}
	w.BiasHH = mat.NewVecDense(g, data)
	if data, err = read("attn.weight", arch.HiddenDim); err != nil {
		return nil, err
	}
	w.AttnW = mat.NewVecDense(arch.HiddenDim, data)
	if data, err = read("attn.bias", 1); err != nil {
		return nil, err
	}
	w.AttnB = data[0]
	if data, err = read("fc.weight", arch.OutputDim*arch.HiddenDim); err != nil {
		return nil, err
	}
	w.FcW = mat.NewDense(arch.OutputDim, arch.HiddenDim, data)
	if data, err = read("fc.bias", arch.OutputDim); err != nil {
		return nil, err
	}
	w.FcB = mat.NewVecDense(arch.OutputDim, data)

	// Trailing bytes mean the file was produced for a different topology.
	var extra [1]byte
	if n, _ := r.Read(extra[:]); n > 0 {
		return nil, fmt.Errorf("%w: trailing data after fc.bias", models.ErrModelLoad)
	}
	return w, nil
}

// WriteTo encodes w in the binary weights format.
func (w *Weights) WriteTo(dst io.Writer) (int64, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}
	cw := &countingWriter{w: dst}
	put := func(v any) {
		if cw.err == nil {
			cw.err = binary.Write(cw, binary.LittleEndian, v)
		}
	}
	put(weightsMagic)
	put([3]uint32{uint32(w.Arch.InputDim), uint32(w.Arch.HiddenDim), uint32(w.Arch.OutputDim)})
	put(toFloat32(w.WeightIH.RawMatrix().Data))
	put(toFloat32(w.WeightHH.RawMatrix().Data))
	put(toFloat32(w.BiasIH.RawVector().Data))
	put(toFloat32(w.BiasHH.RawVector().Data))
	put(toFloat32(w.AttnW.RawVector().Data))
	put([]float32{float32(w.AttnB)})
	put(toFloat32(w.FcW.RawMatrix().Data))
	put(toFloat32(w.FcB.RawVector().Data))
	return cw.n, cw.err
}

// WriteWeights writes w to path, replacing any existing file.
func WriteWeights(path string, w *Weights) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create weights file: %w", err)
	}
	bw := bufio.NewWriter(f)
	if _, err := w.WriteTo(bw); err != nil {
		f.Close()
		return fmt.Errorf("write weights: %w", err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush weights: %w", err)
	}
	return f.Close()
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

var errNotScalar = errors.New("model output is not a scalar")
