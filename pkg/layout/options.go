package layout

// Layout direction values.
const (
	DirectionHorizontal = "horizontal"
	DirectionVertical   = "vertical"
)

// Algorithm names accepted by Engine.Apply.
const (
	AlgorithmGrid   = "grid"
	AlgorithmCircle = "circle"
	AlgorithmForce  = "force"
	AlgorithmTree   = "tree"
	AlgorithmAuto   = "auto"
)

// Defaults applied by Options.withDefaults for zero-valued fields.
const (
	DefaultSpacing            = 200.0
	DefaultNodeWidth          = 180.0
	DefaultNodeHeight         = 80.0
	DefaultIterations         = 200
	DefaultRepulsionStrength  = 8000.0
	DefaultAttractionStrength = 0.05
	DefaultOptimalDistance    = 200.0
	DefaultGravityStrength    = 0.05
	DefaultInitialTemperature = 100.0
	DefaultCoolingFactor      = 0.95
)

// Options configures the layout functions. Zero fields fall back to the
// package defaults, so callers only set what they care about.
type Options struct {
	Spacing   float64
	Direction string
	CenterX   float64
	CenterY   float64

	// Node footprint used where an algorithm needs a size estimate.
	NodeWidth  float64
	NodeHeight float64

	// Force-directed simulation parameters.
	Iterations         int
	RepulsionStrength  float64
	AttractionStrength float64
	OptimalDistance    float64
	GravityStrength    float64
	InitialTemperature float64
	CoolingFactor      float64
}

// DefaultOptions returns Options with every field at its default.
func DefaultOptions() Options {
	return Options{}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.Spacing <= 0 {
		o.Spacing = DefaultSpacing
	}
	if o.Direction == "" {
		o.Direction = DirectionHorizontal
	}
	if o.NodeWidth <= 0 {
		o.NodeWidth = DefaultNodeWidth
	}
	if o.NodeHeight <= 0 {
		o.NodeHeight = DefaultNodeHeight
	}
	if o.Iterations <= 0 {
		o.Iterations = DefaultIterations
	}
	if o.RepulsionStrength <= 0 {
		o.RepulsionStrength = DefaultRepulsionStrength
	}
	if o.AttractionStrength <= 0 {
		o.AttractionStrength = DefaultAttractionStrength
	}
	if o.OptimalDistance <= 0 {
		o.OptimalDistance = DefaultOptimalDistance
	}
	if o.GravityStrength <= 0 {
		o.GravityStrength = DefaultGravityStrength
	}
	if o.InitialTemperature <= 0 {
		o.InitialTemperature = DefaultInitialTemperature
	}
	if o.CoolingFactor <= 0 || o.CoolingFactor >= 1 {
		o.CoolingFactor = DefaultCoolingFactor
	}
	return o
}
