package inverse

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/neurogo/minv/errs"
	"github.com/neurogo/minv/format"
	"github.com/neurogo/minv/internal/options"
	"github.com/neurogo/minv/label"
	"github.com/neurogo/minv/sensor"
)

type applyConfig struct {
	nave    int // 0 = take from the input
	lbl     *label.Label
	workers int
	logger  *slog.Logger
}

// ApplyOption configures Apply, ApplyEpochs and ApplyRaw.
type ApplyOption = options.Option[*applyConfig]

// WithNave overrides the trial-count convention used for noise
// normalization. By default Apply takes it from the evoked response;
// ApplyEpochs and ApplyRaw assume 1.
func WithNave(nave int) ApplyOption {
	return options.New(func(c *applyConfig) error {
		if nave < 1 {
			return fmt.Errorf("nave must be at least 1, got %d", nave)
		}
		c.nave = nave

		return nil
	})
}

// WithLabel restricts the output to a label's vertices, in label order.
func WithLabel(l *label.Label) ApplyOption {
	return options.NoError(func(c *applyConfig) {
		c.lbl = l
	})
}

// WithWorkers bounds the number of goroutines ApplyEpochs spreads trials
// over. Default is GOMAXPROCS.
func WithWorkers(n int) ApplyOption {
	return options.New(func(c *applyConfig) error {
		if n < 1 {
			return fmt.Errorf("worker count must be at least 1, got %d", n)
		}
		c.workers = n

		return nil
	})
}

// WithApplyLogger sets the diagnostics sink. The default discards
// everything.
func WithApplyLogger(logger *slog.Logger) ApplyOption {
	return options.NoError(func(c *applyConfig) {
		c.logger = logger
	})
}

// Apply computes the source estimate for an averaged evoked response.
//
// The data is whitened with the operator's stored whitener, pushed through
// the regularized SVD solve with lambda2 as the Tikhonov parameter, scaled
// per the method, and orientation-pooled per pick. The evoked's Nave drives
// the dSPM/sLORETA amplitude convention unless WithNave overrides it.
func Apply(ev *sensor.Evoked, op *Operator, lambda2 float64, method format.Method, pick format.PickOri, opts ...ApplyOption) (*SourceEstimate, error) {
	cfg := applyConfig{logger: slog.New(slog.DiscardHandler)}
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}
	nave := cfg.nave
	if nave == 0 {
		nave = max(ev.Nave, 1)
	}

	if err := checkChannels(op, ev.Info.Names); err != nil {
		return nil, err
	}

	k, norm, err := op.kernel(lambda2, method, nave)
	if err != nil {
		return nil, err
	}
	stc, err := applyKernel(ev.Data, op, k, norm, method, pick, cfg.lbl)
	if err != nil {
		return nil, err
	}
	stc.TMin = ev.TMin
	stc.TStep = 1 / ev.Info.SFreq

	cfg.logger.Debug("applied inverse",
		"method", method.String(), "pick", pick.String(),
		"nave", nave, "samples", stc.NTimes())

	return stc, nil
}

// ApplyRaw computes the source estimate for the half-open sample range
// [start, stop) of a continuous recording. A label restricts the output to a
// region of interest; nave defaults to 1.
func ApplyRaw(raw *sensor.Raw, op *Operator, lambda2 float64, method format.Method, pick format.PickOri, start, stop int, opts ...ApplyOption) (*SourceEstimate, error) {
	cfg := applyConfig{logger: slog.New(slog.DiscardHandler)}
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}
	nave := cfg.nave
	if nave == 0 {
		nave = 1
	}

	if start >= stop {
		return nil, fmt.Errorf("%w: [%d, %d)", errs.ErrEmptyRange, start, stop)
	}
	if start < 0 || stop > raw.NSamples() {
		return nil, fmt.Errorf("%w: [%d, %d) outside recording of %d samples",
			errs.ErrEmptyRange, start, stop, raw.NSamples())
	}
	if err := checkChannels(op, raw.Info.Names); err != nil {
		return nil, err
	}

	nchan := raw.Info.NChannels()
	segment := mat.DenseCopyOf(raw.Data.Slice(0, nchan, start, stop))

	k, norm, err := op.kernel(lambda2, method, nave)
	if err != nil {
		return nil, err
	}
	stc, err := applyKernel(segment, op, k, norm, method, pick, cfg.lbl)
	if err != nil {
		return nil, err
	}
	stc.TMin = float64(start) / raw.Info.SFreq
	stc.TStep = 1 / raw.Info.SFreq

	return stc, nil
}

// checkChannels enforces the channel count/order contract between the
// operator and incoming data. A mismatch is a contract violation, never a
// silent broadcast.
func checkChannels(op *Operator, names []string) error {
	if len(names) != op.NChannels() {
		return fmt.Errorf("%w: data has %d channels, operator has %d",
			errs.ErrDimensionMismatch, len(names), op.NChannels())
	}
	for i, n := range names {
		if n != op.names[i] {
			return fmt.Errorf("%w: channel %d is %q, operator expects %q",
				errs.ErrDimensionMismatch, i, n, op.names[i])
		}
	}

	return nil
}

// applyKernel runs an assembled kernel over one data matrix and pools
// orientations. Shared by the evoked, raw and epoch paths; the kernel and
// noise norms come from Operator.kernel and may be reused across calls.
func applyKernel(data *mat.Dense, op *Operator, k *mat.Dense, norm []float64, method format.Method, pick format.PickOri, lbl *label.Label) (*SourceEstimate, error) {
	if !pick.Valid() {
		return nil, fmt.Errorf("%w: orientation pick %d", errs.ErrInvalidMethod, pick)
	}
	r, _ := data.Dims()
	if r != op.NChannels() {
		return nil, fmt.Errorf("%w: data has %d channels, operator has %d",
			errs.ErrDimensionMismatch, r, op.NChannels())
	}

	// Restrict the kernel rows to the label's locations before the solve;
	// the estimate of one region does not depend on the others.
	vertices := op.src.Vertices
	locIdx := make([]int, 0, op.NLocations())
	if lbl == nil {
		for i := 0; i < op.NLocations(); i++ {
			locIdx = append(locIdx, i)
		}
	} else {
		vertices = lbl.Vertices
		for _, v := range lbl.Vertices {
			loc := op.src.VertexIndex(v)
			if loc < 0 {
				return nil, fmt.Errorf("%w: label %q vertex %d", errs.ErrUnknownVertex, lbl.Name, v)
			}
			locIdx = append(locIdx, loc)
		}
	}

	ne := op.norien
	rows := make([]int, 0, len(locIdx)*ne)
	for _, loc := range locIdx {
		for c := 0; c < ne; c++ {
			rows = append(rows, loc*ne+c)
		}
	}

	nchan := op.NChannels()
	sub := mat.NewDense(len(rows), nchan, nil)
	for i, row := range rows {
		sub.SetRow(i, mat.Row(nil, row, k))
	}

	var sol mat.Dense
	sol.Mul(sub, data)

	// Method scaling: divide each location's rows by its noise norm.
	if norm != nil {
		_, nt := sol.Dims()
		for i, loc := range locIdx {
			for c := 0; c < ne; c++ {
				row := i*ne + c
				for t := 0; t < nt; t++ {
					sol.Set(row, t, sol.At(row, t)/norm[loc])
				}
			}
		}
	}

	pooled, norient := poolOrientations(&sol, ne, pick)

	return &SourceEstimate{
		Vertices: append([]uint32(nil), vertices...),
		Data:     pooled,
		Method:   method,
		Pick:     pick,
		NOrient:  norient,
	}, nil
}

// poolOrientations reduces per-location orientation components according to
// the pick policy. Scalar solutions pass through signed for every pick.
func poolOrientations(sol *mat.Dense, norien int, pick format.PickOri) (*mat.Dense, int) {
	if norien == 1 || pick == format.PickVector {
		return sol, norien
	}

	nrows, nt := sol.Dims()
	nloc := nrows / norien
	out := mat.NewDense(nloc, nt, nil)

	switch pick {
	case format.PickNormal:
		// The cortical-normal component is the last of each triple.
		for loc := 0; loc < nloc; loc++ {
			out.SetRow(loc, mat.Row(nil, loc*norien+norien-1, sol))
		}
	default: // PickNone: magnitude across components
		for loc := 0; loc < nloc; loc++ {
			for t := 0; t < nt; t++ {
				sum := 0.0
				for c := 0; c < norien; c++ {
					v := sol.At(loc*norien+c, t)
					sum += v * v
				}
				out.Set(loc, t, math.Sqrt(sum))
			}
		}
	}

	return out, 1
}
