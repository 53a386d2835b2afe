package logentry

// Layer names the logical subsystem a call site belongs to.
type Layer string

const (
	LayerService     Layer = "Service"
	LayerRouter      Layer = "Router"
	LayerAuth        Layer = "Auth"
	LayerStore       Layer = "Store"
	LayerComponent   Layer = "Component"
	LayerHook        Layer = "Hook"
	LayerPerformance Layer = "Performance"
	LayerAPI         Layer = "API"
	LayerValidation  Layer = "Validation"
	LayerUtils       Layer = "Utils"
)

// DefaultLayers returns the layer set accepted when none is configured.
func DefaultLayers() []Layer {
	return []Layer{
		LayerService,
		LayerRouter,
		LayerAuth,
		LayerStore,
		LayerComponent,
		LayerHook,
		LayerPerformance,
		LayerAPI,
		LayerValidation,
		LayerUtils,
	}
}

// LayerSet is a closed set of accepted layers.
type LayerSet map[Layer]struct{}

// NewLayerSet builds a set from the given layers, falling back to DefaultLayers.
func NewLayerSet(layers ...Layer) LayerSet {
	if len(layers) == 0 {
		layers = DefaultLayers()
	}

	set := make(LayerSet, len(layers))
	for _, layer := range layers {
		if layer != "" {
			set[layer] = struct{}{}
		}
	}
	return set
}

// Contains reports whether layer belongs to the set.
func (s LayerSet) Contains(layer Layer) bool {
	_, ok := s[layer]
	return ok
}
