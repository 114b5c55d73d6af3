// Package hermite implements the predictor-corrector integrators. Orders
// 4, 6 and 8 share one contract: Predict extrapolates a particle to the
// block time from its stored derivatives, Correct folds the freshly
// evaluated derivatives back in with the order's two-point quadrature.
package hermite

import (
	"fmt"

	"github.com/dmarquez/hermigo/internal/body"
	"github.com/dmarquez/hermigo/internal/force"
)

type Integrator interface {
	Order() int

	// Predict returns a copy of p extrapolated to t. The copy carries
	// whatever predicted derivatives the order's force chain consumes.
	Predict(p *body.Particle, t float64) body.Particle

	// Correct advances p to t using its stored derivatives and the new
	// evaluation d, then replaces the derivative history with d.
	Correct(p *body.Particle, d force.Derivs, t float64)
}

// New selects the construction-time variant; the hot loop never branches
// on order.
func New(order int) (Integrator, error) {
	switch order {
	case 4:
		return Hermite4{}, nil
	case 6:
		return Hermite6{}, nil
	case 8:
		return Hermite8{}, nil
	}
	return nil, fmt.Errorf("%w: hermite order %d", body.ErrConfig, order)
}
