package params

import "os"

// ListenerConfig is where a daemon accepts connections.
type ListenerConfig struct {
	Network string `json:"network"` // tcp, tcp4, tcp6, unix
	Address string `json:"address"`
}

type WebDaemonConfig struct {
	ListenerConfig
	RoutePath string `json:"route_path"`

	// Token, when set, is required by every mutating endpoint.
	Token string `json:"-"`

	Influx *InfluxConfig `json:"-"`
}

func DefaultWebListenerConfig() ListenerConfig {
	return ListenerConfig{
		Network: "tcp",
		Address: "localhost:3000",
	}
}

func DefaultWebDaemonConfig() *WebDaemonConfig {
	return &WebDaemonConfig{
		ListenerConfig: DefaultWebListenerConfig(),
		Token:          os.Getenv("WAYSIDE_TOKEN"),
		Influx:         DefaultInfluxConfig(),
	}
}

func DefaultTestWebDaemonConfig() *WebDaemonConfig {
	return &WebDaemonConfig{
		ListenerConfig: ListenerConfig{
			Network: "tcp",
			Address: "localhost:3333",
		},
		Influx: &InfluxConfig{},
	}
}
