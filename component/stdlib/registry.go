package stdlib

import "github.com/sarchlab/logisimcore/component"

// RegisterAll populates r with every standard library kind (gates,
// sequential elements, wiring primitives, memories), the complete set
// sim.NewSimulation seeds a fresh Simulation's registry with.
func RegisterAll(r *component.Registry) {
	RegisterGates(r)
	RegisterSequential(r)
	RegisterWiring(r)
	RegisterMemory(r)
}
