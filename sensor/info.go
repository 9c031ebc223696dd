// Package sensor provides the sensor-space data types consumed by the minv
// estimation pipeline: channel metadata, continuous recordings, extracted
// epochs and averaged evoked responses.
//
// All matrices are channels x samples. Channel ordering is part of every
// contract downstream: the forward model, noise covariance and inverse
// operator all validate against the ordering carried in Info.
package sensor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/neurogo/minv/errs"
)

// ChannelKind identifies the physical type of a channel, which determines
// the unit of its rejection threshold.
type ChannelKind uint8

const (
	KindMag  ChannelKind = 0x1 // magnetometer, Tesla
	KindGrad ChannelKind = 0x2 // planar gradiometer, Tesla/m
	KindEEG  ChannelKind = 0x3 // EEG electrode, Volt
	KindEOG  ChannelKind = 0x4 // EOG electrode, Volt
	KindStim ChannelKind = 0x5 // trigger line, unitless
)

func (k ChannelKind) String() string {
	switch k {
	case KindMag:
		return "Mag"
	case KindGrad:
		return "Grad"
	case KindEEG:
		return "EEG"
	case KindEOG:
		return "EOG"
	case KindStim:
		return "Stim"
	default:
		return "Unknown"
	}
}

// Info carries channel metadata for a recording.
type Info struct {
	// Names are the channel names, in acquisition order.
	Names []string
	// Kinds are the per-channel types, aligned with Names.
	Kinds []ChannelKind
	// SFreq is the sampling rate in Hz.
	SFreq float64
	// Bads lists channels flagged as bad; they are skipped by rejection
	// and excluded by GoodChannels.
	Bads []string
}

// NChannels returns the number of channels.
func (in *Info) NChannels() int {
	return len(in.Names)
}

// Validate checks internal consistency of the metadata.
func (in *Info) Validate() error {
	if len(in.Names) == 0 {
		return fmt.Errorf("%w: info has no channels", errs.ErrDimensionMismatch)
	}
	if len(in.Kinds) != len(in.Names) {
		return fmt.Errorf("%w: %d kinds for %d channels",
			errs.ErrDimensionMismatch, len(in.Kinds), len(in.Names))
	}
	if in.SFreq <= 0 {
		return fmt.Errorf("sampling rate must be positive, got %g", in.SFreq)
	}
	seen := make(map[string]struct{}, len(in.Names))
	for _, name := range in.Names {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate channel name %q", name)
		}
		seen[name] = struct{}{}
	}

	return nil
}

// IsBad reports whether the named channel is flagged bad.
func (in *Info) IsBad(name string) bool {
	for _, b := range in.Bads {
		if b == name {
			return true
		}
	}

	return false
}

// ChannelIndex returns the index of the named channel, or -1.
func (in *Info) ChannelIndex(name string) int {
	for i, n := range in.Names {
		if n == name {
			return i
		}
	}

	return -1
}

// GoodChannels returns the indices of data channels that are neither bad nor
// stimulus lines, in acquisition order.
func (in *Info) GoodChannels() []int {
	idx := make([]int, 0, len(in.Names))
	for i, name := range in.Names {
		if in.Kinds[i] == KindStim || in.IsBad(name) {
			continue
		}
		idx = append(idx, i)
	}

	return idx
}

// Raw is a continuous multichannel recording segment.
type Raw struct {
	Info *Info
	// Data is channels x samples.
	Data *mat.Dense
}

// NewRaw validates and wraps a continuous recording.
func NewRaw(info *Info, data *mat.Dense) (*Raw, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}
	r, _ := data.Dims()
	if r != info.NChannels() {
		return nil, fmt.Errorf("%w: data has %d rows, info has %d channels",
			errs.ErrDimensionMismatch, r, info.NChannels())
	}

	return &Raw{Info: info, Data: data}, nil
}

// NSamples returns the number of time samples in the recording.
func (r *Raw) NSamples() int {
	_, c := r.Data.Dims()
	return c
}

// Event marks a trigger at a sample index.
type Event struct {
	// Sample is the sample index of the trigger onset.
	Sample int
	// Code is the trigger value.
	Code int
}

// FindEvents scans a stimulus channel for onsets: samples where the rounded
// trigger value steps from zero to nonzero.
func FindEvents(r *Raw, stimChannel string) ([]Event, error) {
	ci := r.Info.ChannelIndex(stimChannel)
	if ci < 0 {
		return nil, fmt.Errorf("stim channel %q not found", stimChannel)
	}
	if r.Info.Kinds[ci] != KindStim {
		return nil, fmt.Errorf("channel %q is %s, not a stim channel",
			stimChannel, r.Info.Kinds[ci])
	}

	var events []Event
	prev := 0
	for t := 0; t < r.NSamples(); t++ {
		v := int(r.Data.At(ci, t) + 0.5)
		if v != 0 && prev == 0 {
			events = append(events, Event{Sample: t, Code: v})
		}
		prev = v
	}

	return events, nil
}
