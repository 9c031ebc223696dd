package sensor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/neurogo/minv/errs"
)

// Evoked is an averaged response. Nave records how many trials went into the
// average; downstream noise normalization scales with sqrt(Nave).
type Evoked struct {
	Info *Info
	// Data is channels x samples.
	Data *mat.Dense
	// TMin is the time of the first sample in seconds.
	TMin float64
	// Nave is the number of averaged trials, at least 1.
	Nave int
	// Comment is a free-form description, e.g. the condition name.
	Comment string
}

// NSamples returns the number of time samples.
func (ev *Evoked) NSamples() int {
	_, c := ev.Data.Dims()
	return c
}

// Average computes the mean across retained trials, producing an Evoked with
// Nave set to the trial count.
func (ep *Epochs) Average() (*Evoked, error) {
	if ep.NEpochs() == 0 {
		return nil, fmt.Errorf("%w: no epochs to average", errs.ErrInsufficientData)
	}

	nchan := ep.Info.NChannels()
	nsamp := ep.NSamples()
	avg := mat.NewDense(nchan, nsamp, nil)
	for _, trial := range ep.Data {
		avg.Add(avg, trial)
	}
	avg.Scale(1/float64(ep.NEpochs()), avg)

	return &Evoked{
		Info: ep.Info,
		Data: avg,
		TMin: ep.TMin,
		Nave: ep.NEpochs(),
	}, nil
}
