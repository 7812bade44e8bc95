package server

type HttpConfig struct {
	// Enabled toggles the status HTTP server.
	Enabled bool `conf:"enabled"`

	// Host is the address the server binds to.
	Host string `conf:"host"`

	// Port is the port the server listens on.
	Port int `conf:"port"`

	// H2c enables the HTTP/2 cleartext upgrade.
	H2c bool `conf:"h2c"`
}
