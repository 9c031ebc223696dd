package sensor

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/neurogo/minv/errs"
)

func TestInfo_Validate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		info := &Info{
			Names: []string{"MEG 0111", "EEG 001", "STI 014"},
			Kinds: []ChannelKind{KindMag, KindEEG, KindStim},
			SFreq: 1000,
		}
		require.NoError(t, info.Validate())
	})

	t.Run("No channels", func(t *testing.T) {
		info := &Info{SFreq: 1000}
		require.ErrorIs(t, info.Validate(), errs.ErrDimensionMismatch)
	})

	t.Run("Kind count mismatch", func(t *testing.T) {
		info := &Info{Names: []string{"a", "b"}, Kinds: []ChannelKind{KindMag}, SFreq: 1000}
		require.ErrorIs(t, info.Validate(), errs.ErrDimensionMismatch)
	})

	t.Run("Duplicate names", func(t *testing.T) {
		info := &Info{Names: []string{"a", "a"}, Kinds: []ChannelKind{KindMag, KindMag}, SFreq: 1000}
		require.Error(t, info.Validate())
	})

	t.Run("Bad sampling rate", func(t *testing.T) {
		info := &Info{Names: []string{"a"}, Kinds: []ChannelKind{KindMag}}
		require.Error(t, info.Validate())
	})
}

func TestInfo_GoodChannels(t *testing.T) {
	info := &Info{
		Names: []string{"MEG 0111", "MEG 0121", "STI 014", "EEG 001"},
		Kinds: []ChannelKind{KindMag, KindMag, KindStim, KindEEG},
		SFreq: 1000,
		Bads:  []string{"MEG 0121"},
	}

	require.Equal(t, []int{0, 3}, info.GoodChannels())
	require.True(t, info.IsBad("MEG 0121"))
	require.False(t, info.IsBad("MEG 0111"))
	require.Equal(t, 3, info.ChannelIndex("EEG 001"))
	require.Equal(t, -1, info.ChannelIndex("nope"))
}

// triggerRaw builds a recording with one data channel and a stim line that
// fires code 1 at the given samples.
func triggerRaw(t *testing.T, nsamp int, triggers []int) *Raw {
	t.Helper()
	info := &Info{
		Names: []string{"MEG 0111", "STI 014"},
		Kinds: []ChannelKind{KindMag, KindStim},
		SFreq: 100,
	}
	data := mat.NewDense(2, nsamp, nil)
	for ti := 0; ti < nsamp; ti++ {
		data.Set(0, ti, float64(ti))
	}
	for _, s := range triggers {
		data.Set(1, s, 1)
	}
	raw, err := NewRaw(info, data)
	require.NoError(t, err)

	return raw
}

func TestFindEvents(t *testing.T) {
	t.Run("Onsets only", func(t *testing.T) {
		raw := triggerRaw(t, 100, []int{10, 11, 12, 50})

		events, err := FindEvents(raw, "STI 014")
		require.NoError(t, err)
		// The plateau at 10-12 is one onset.
		require.Equal(t, []Event{{Sample: 10, Code: 1}, {Sample: 50, Code: 1}}, events)
	})

	t.Run("Not a stim channel", func(t *testing.T) {
		raw := triggerRaw(t, 10, nil)
		_, err := FindEvents(raw, "MEG 0111")
		require.Error(t, err)
	})

	t.Run("Missing channel", func(t *testing.T) {
		raw := triggerRaw(t, 10, nil)
		_, err := FindEvents(raw, "STI 999")
		require.Error(t, err)
	})
}

func TestExtractEpochs(t *testing.T) {
	events := []Event{
		{Sample: 2, Code: 1},  // window starts before the recording
		{Sample: 30, Code: 1},
		{Sample: 60, Code: 2}, // wrong code
		{Sample: 70, Code: 1},
		{Sample: 98, Code: 1}, // window runs past the end
	}

	t.Run("Window bounds and codes", func(t *testing.T) {
		raw := triggerRaw(t, 100, nil)
		ep, err := ExtractEpochs(raw, events, 1, -0.05, 0.1)
		require.NoError(t, err)

		// tmin=-0.05 at 100 Hz is 5 samples before, tmax=0.1 is 10 after.
		require.Equal(t, 2, ep.NEpochs())
		require.Equal(t, 16, ep.NSamples())
		require.Equal(t, -0.05, ep.TMin)
		require.Len(t, ep.DropLog, 2)
		require.Equal(t, 2, ep.DropLog[0].Event.Sample)
		require.Equal(t, 98, ep.DropLog[1].Event.Sample)

		// First retained epoch starts at sample 30-5=25 of channel 0.
		require.Equal(t, 25.0, ep.Data[0].At(0, 0))
		require.Equal(t, Event{Sample: 30, Code: 1}, ep.Events[0])
	})

	t.Run("Empty window rejected", func(t *testing.T) {
		raw := triggerRaw(t, 100, nil)
		_, err := ExtractEpochs(raw, events, 1, 0.1, 0.1)
		require.ErrorIs(t, err, errs.ErrEmptyRange)
	})

	t.Run("Baseline correction", func(t *testing.T) {
		raw := triggerRaw(t, 100, nil)
		ep, err := ExtractEpochs(raw, events, 1, -0.05, 0.1, WithBaseline(-0.05, 0))
		require.NoError(t, err)
		require.Equal(t, 2, ep.NEpochs())

		// The baseline window mean of each channel is now zero.
		for _, trial := range ep.Data {
			sum := 0.0
			for ti := 0; ti <= 5; ti++ {
				sum += trial.At(0, ti)
			}
			require.InDelta(t, 0.0, sum/6, 1e-12)
		}
	})

	t.Run("Peak to peak rejection", func(t *testing.T) {
		raw := triggerRaw(t, 100, nil)
		// Spike channel 0 inside the epoch around sample 70.
		raw.Data.Set(0, 72, 1e6)

		ep, err := ExtractEpochs(raw, events, 1, -0.05, 0.1,
			WithReject(RejectThresholds{Mag: 500}))
		require.NoError(t, err)
		require.Equal(t, 1, ep.NEpochs())

		var rejected *DropReason
		for i := range ep.DropLog {
			if ep.DropLog[i].Channel != "" {
				rejected = &ep.DropLog[i]
			}
		}
		require.NotNil(t, rejected)
		require.Equal(t, "MEG 0111", rejected.Channel)
		require.Greater(t, rejected.PeakToPeak, 500.0)
	})

	t.Run("Bad channels are never consulted", func(t *testing.T) {
		raw := triggerRaw(t, 100, nil)
		raw.Info.Bads = []string{"MEG 0111"}
		raw.Data.Set(0, 72, 1e6)

		ep, err := ExtractEpochs(raw, events, 1, -0.05, 0.1,
			WithReject(RejectThresholds{Mag: 500}))
		require.NoError(t, err)
		require.Equal(t, 2, ep.NEpochs())
	})

	t.Run("Negative thresholds rejected", func(t *testing.T) {
		raw := triggerRaw(t, 100, nil)
		_, err := ExtractEpochs(raw, events, 1, -0.05, 0.1,
			WithReject(RejectThresholds{EEG: -1}))
		require.Error(t, err)
	})
}

func TestEpochs_Average(t *testing.T) {
	info := &Info{Names: []string{"a", "b"}, Kinds: []ChannelKind{KindMag, KindMag}, SFreq: 100}

	t.Run("Mean and nave", func(t *testing.T) {
		ep := &Epochs{
			Info: info,
			TMin: -0.1,
			Data: []*mat.Dense{
				mat.NewDense(2, 2, []float64{1, 2, 3, 4}),
				mat.NewDense(2, 2, []float64{3, 4, 5, 6}),
			},
		}

		ev, err := ep.Average()
		require.NoError(t, err)
		require.Equal(t, 2, ev.Nave)
		require.Equal(t, -0.1, ev.TMin)
		require.True(t, mat.EqualApprox(mat.NewDense(2, 2, []float64{2, 3, 4, 5}), ev.Data, 1e-14))
	})

	t.Run("No epochs", func(t *testing.T) {
		ep := &Epochs{Info: info}
		_, err := ep.Average()
		require.ErrorIs(t, err, errs.ErrInsufficientData)
	})
}
