package params

import (
	"time"
)

// GPSDelta is a nudge in decimal degrees.
type GPSDelta struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

type RecognitionConfig struct {
	// ConfidenceThreshold is the lowest confidence treated as a signal.
	ConfidenceThreshold float64

	// TTL is how long an accepted recognition keeps adjusting GPS input.
	TTL time.Duration

	// LabelCorrections maps recognized location labels to GPS nudges.
	// These came from walking the route with the recognition model on.
	LabelCorrections map[string]GPSDelta
}

func DefaultRecognitionConfig() *RecognitionConfig {
	return &RecognitionConfig{
		ConfidenceThreshold: 0.7,
		TTL:                 10 * time.Second,
		LabelCorrections: map[string]GPSDelta{
			"lily_pond_north": {Lon: 0.000012, Lat: -0.000008},
			"boardwalk_end":   {Lon: -0.000015, Lat: 0.000004},
			"visitor_center":  {Lon: 0.000006, Lat: 0.000011},
		},
	}
}
