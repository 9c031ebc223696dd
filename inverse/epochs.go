package inverse

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/neurogo/minv/errs"
	"github.com/neurogo/minv/format"
	"github.com/neurogo/minv/internal/options"
	"github.com/neurogo/minv/sensor"
)

// ApplyEpochs computes one source estimate per trial.
//
// Trials are independent, so they are spread across workers; results are
// returned in input order regardless of completion order. All trials share
// the kernel assembled once from (lambda2, method, nave), with nave
// defaulting to 1; supply WithNave to match an evoked application's
// convention so dSPM amplitudes stay comparable across the two paths.
func ApplyEpochs(ep *sensor.Epochs, op *Operator, lambda2 float64, method format.Method, pick format.PickOri, opts ...ApplyOption) ([]*SourceEstimate, error) {
	cfg := applyConfig{logger: slog.New(slog.DiscardHandler)}
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}
	nave := cfg.nave
	if nave == 0 {
		nave = 1
	}
	workers := cfg.workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	if ep.NEpochs() == 0 {
		return nil, fmt.Errorf("%w: no epochs to apply", errs.ErrInsufficientData)
	}
	if err := checkChannels(op, ep.Info.Names); err != nil {
		return nil, err
	}

	// One kernel shared read-only by every worker.
	k, norm, err := op.kernel(lambda2, method, nave)
	if err != nil {
		return nil, err
	}

	n := ep.NEpochs()
	workers = min(workers, n)

	stcs := make([]*SourceEstimate, n)
	errsSeen := make([]error, n)
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				stc, err := applyKernel(ep.Data[i], op, k, norm, method, pick, cfg.lbl)
				if err != nil {
					errsSeen[i] = err
					continue
				}
				stc.TMin = ep.TMin
				stc.TStep = 1 / ep.Info.SFreq
				stcs[i] = stc
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i, err := range errsSeen {
		if err != nil {
			return nil, fmt.Errorf("epoch %d: %w", i, err)
		}
	}

	cfg.logger.Debug("applied inverse to epochs",
		"epochs", n, "workers", workers, "method", method.String())

	return stcs, nil
}
