// Package compute executes force sweeps for a rank's share of the active
// block, either on the CPU or offloaded to a GPU.
//
// The package selects the best available backend:
//
//   - CUDA: device kernel parallelizing the O(N) inner sum per target
//   - CPU: goroutine-parallel over targets, serial over sources
//
// Both backends apply the same softened kernel at the same derivative
// order; the inner summation order is fixed, so the numeric contract does
// not depend on the backend or on how targets are split across workers.
//
// Build with CUDA support:
//
//	go build -tags cuda ./...
package compute
