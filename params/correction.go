package params

type CorrectionConfig struct {
	// Enabled is the initial state of the correction oracle.
	Enabled bool

	// MinConfidence marks trained corrections below it invalid.
	MinConfidence float64
}

var DefaultCorrectionConfig = &CorrectionConfig{
	Enabled:       true,
	MinConfidence: 0.5,
}
