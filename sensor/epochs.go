package sensor

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/neurogo/minv/errs"
	"github.com/neurogo/minv/internal/options"
)

// RejectThresholds holds per-channel-kind peak-to-peak rejection limits. A
// zero value disables rejection for that kind. Units follow the channel kind:
// Tesla for Mag, Tesla/m for Grad, Volt for EEG and EOG.
type RejectThresholds struct {
	Mag  float64
	Grad float64
	EEG  float64
	EOG  float64
}

// Validate rejects negative thresholds.
func (rt RejectThresholds) Validate() error {
	if rt.Mag < 0 || rt.Grad < 0 || rt.EEG < 0 || rt.EOG < 0 {
		return fmt.Errorf("rejection thresholds must be non-negative: %+v", rt)
	}

	return nil
}

// threshold returns the limit for a channel kind, 0 when disabled.
func (rt RejectThresholds) threshold(k ChannelKind) float64 {
	switch k {
	case KindMag:
		return rt.Mag
	case KindGrad:
		return rt.Grad
	case KindEEG:
		return rt.EEG
	case KindEOG:
		return rt.EOG
	default:
		return 0
	}
}

// DropReason records why an epoch was excluded.
type DropReason struct {
	// Event is the event the epoch was extracted around.
	Event Event
	// Channel names the channel that exceeded its threshold, or is empty
	// when the epoch window fell outside the recording.
	Channel string
	// PeakToPeak is the offending amplitude, 0 for out-of-bounds drops.
	PeakToPeak float64
}

// Epochs is a set of equal-shape trials extracted around events.
type Epochs struct {
	Info *Info
	// TMin is the time of the first sample relative to each event, in
	// seconds.
	TMin float64
	// Data holds one channels x samples matrix per retained trial.
	Data []*mat.Dense
	// Events are the events of the retained trials, aligned with Data.
	Events []Event
	// DropLog records the excluded trials.
	DropLog []DropReason
}

// NEpochs returns the number of retained trials.
func (ep *Epochs) NEpochs() int {
	return len(ep.Data)
}

// NSamples returns the per-trial sample count.
func (ep *Epochs) NSamples() int {
	if len(ep.Data) == 0 {
		return 0
	}
	_, c := ep.Data[0].Dims()

	return c
}

type extractConfig struct {
	baselineSet  bool
	bmin, bmax   float64
	reject       RejectThresholds
	logger       *slog.Logger
}

// ExtractOption configures ExtractEpochs.
type ExtractOption = options.Option[*extractConfig]

// WithBaseline enables per-channel baseline correction: the mean over the
// [bmin, bmax] window (seconds relative to the event) is subtracted from each
// channel of each epoch.
func WithBaseline(bmin, bmax float64) ExtractOption {
	return options.New(func(c *extractConfig) error {
		if bmin > bmax {
			return fmt.Errorf("%w: baseline [%g, %g]", errs.ErrEmptyRange, bmin, bmax)
		}
		c.baselineSet = true
		c.bmin, c.bmax = bmin, bmax

		return nil
	})
}

// WithReject enables peak-to-peak rejection with the given thresholds.
// Bad channels and stimulus lines are never consulted.
func WithReject(rt RejectThresholds) ExtractOption {
	return options.New(func(c *extractConfig) error {
		if err := rt.Validate(); err != nil {
			return err
		}
		c.reject = rt

		return nil
	})
}

// WithExtractLogger sets the diagnostics sink for extraction. The default
// discards everything.
func WithExtractLogger(logger *slog.Logger) ExtractOption {
	return options.NoError(func(c *extractConfig) {
		c.logger = logger
	})
}

// ExtractEpochs cuts [tmin, tmax] windows (seconds relative to each event)
// around the events matching code out of a continuous recording. Epochs whose
// window falls outside the recording, or whose peak-to-peak amplitude exceeds
// a rejection threshold, are dropped and logged; the rest are returned in
// event order.
func ExtractEpochs(r *Raw, events []Event, code int, tmin, tmax float64, opts ...ExtractOption) (*Epochs, error) {
	cfg := extractConfig{logger: slog.New(slog.DiscardHandler)}
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}
	if tmin >= tmax {
		return nil, fmt.Errorf("%w: epoch window [%g, %g]", errs.ErrEmptyRange, tmin, tmax)
	}

	sfreq := r.Info.SFreq
	first := int(math.Round(tmin * sfreq))
	last := int(math.Round(tmax * sfreq))
	nsamp := last - first + 1
	nchan := r.Info.NChannels()

	ep := &Epochs{Info: r.Info, TMin: float64(first) / sfreq}
	for _, ev := range events {
		if ev.Code != code {
			continue
		}
		start := ev.Sample + first
		stop := start + nsamp
		if start < 0 || stop > r.NSamples() {
			ep.DropLog = append(ep.DropLog, DropReason{Event: ev})
			cfg.logger.Debug("dropping epoch outside recording",
				"sample", ev.Sample, "start", start, "stop", stop)
			continue
		}

		data := mat.DenseCopyOf(r.Data.Slice(0, nchan, start, stop))
		if cfg.baselineSet {
			applyBaseline(data, sfreq, ep.TMin, cfg.bmin, cfg.bmax)
		}

		if ch, ptp, ok := peakToPeakReject(data, r.Info, cfg.reject); ok {
			ep.DropLog = append(ep.DropLog, DropReason{Event: ev, Channel: ch, PeakToPeak: ptp})
			cfg.logger.Debug("rejecting epoch",
				"sample", ev.Sample, "channel", ch, "ptp", ptp)
			continue
		}

		ep.Data = append(ep.Data, data)
		ep.Events = append(ep.Events, ev)
	}

	cfg.logger.Info("extracted epochs",
		"retained", len(ep.Data), "dropped", len(ep.DropLog))

	return ep, nil
}

// applyBaseline subtracts the per-channel mean over the baseline window.
func applyBaseline(data *mat.Dense, sfreq, tmin, bmin, bmax float64) {
	_, nsamp := data.Dims()
	b0 := int(math.Round((bmin - tmin) * sfreq))
	b1 := int(math.Round((bmax-tmin)*sfreq)) + 1
	b0 = max(b0, 0)
	b1 = min(b1, nsamp)
	if b0 >= b1 {
		return
	}

	nchan, _ := data.Dims()
	for i := 0; i < nchan; i++ {
		sum := 0.0
		for t := b0; t < b1; t++ {
			sum += data.At(i, t)
		}
		mean := sum / float64(b1-b0)
		for t := 0; t < nsamp; t++ {
			data.Set(i, t, data.At(i, t)-mean)
		}
	}
}

// peakToPeakReject returns the first channel whose peak-to-peak amplitude
// exceeds its kind's threshold.
func peakToPeakReject(data *mat.Dense, info *Info, rt RejectThresholds) (string, float64, bool) {
	_, nsamp := data.Dims()
	for _, i := range info.GoodChannels() {
		limit := rt.threshold(info.Kinds[i])
		if limit == 0 {
			continue
		}
		lo, hi := data.At(i, 0), data.At(i, 0)
		for t := 1; t < nsamp; t++ {
			v := data.At(i, t)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if hi-lo > limit {
			return info.Names[i], hi - lo, true
		}
	}

	return "", 0, false
}
