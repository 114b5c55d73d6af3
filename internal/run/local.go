package run

import (
	"sync"

	"github.com/dmarquez/hermigo/internal/body"
	"github.com/dmarquez/hermigo/internal/comm"
	"github.com/dmarquez/hermigo/internal/config"
)

// Local launches the configured rank count as goroutines over one
// collective group and blocks until the job completes or fails. Each rank
// gets its own replica; copies in, copies out, nothing shared by
// reference. Returns rank 0's final replica.
func Local(cfg *config.Config, sys *body.System) (*body.System, error) {
	comms := comm.NewGroup(cfg.Ranks)
	replicas := make([]*body.System, cfg.Ranks)
	errs := make([]error, cfg.Ranks)

	var wg sync.WaitGroup
	for r := range comms {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			replica := cloneSystem(sys)
			replicas[rank] = replica

			runner, err := New(cfg, comms[rank], replica)
			if err != nil {
				comms[rank].Abort(err)
				errs[rank] = err
				return
			}
			errs[rank] = runner.Run()
		}(r)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return replicas[0], nil
}

func cloneSystem(sys *body.System) *body.System {
	bodies := make([]body.Particle, len(sys.Bodies))
	copy(bodies, sys.Bodies)
	out := body.NewSystem(bodies, sys.Time)
	out.OutputStep = sys.OutputStep
	return out
}
