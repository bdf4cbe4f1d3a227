package domain

// Config defines the config for the smart order router server.
type Config struct {
	// Defines the web server configuration.
	ServerAddress string `mapstructure:"server-address"`

	// Defines the logger configuration.
	LoggerFilename     string `mapstructure:"logger-filename"`
	LoggerIsProduction bool   `mapstructure:"logger-is-production"`
	LoggerLevel        string `mapstructure:"logger-level"`

	// Pool snapshot endpoint polled by the pool data service.
	PoolDataEndpoint string `mapstructure:"pool-data-endpoint"`
	// Token price endpoint used to express gas costs in output tokens.
	TokenPriceEndpoint string `mapstructure:"token-price-endpoint"`
	// Optional EVM JSON-RPC endpoint used to suggest gas prices when a
	// request does not carry one.
	ChainRPCEndpoint string `mapstructure:"chain-rpc-endpoint"`

	// Router encapsulates the router config.
	Router *RouterConfig `mapstructure:"router"`

	CORS *CORSConfig `mapstructure:"cors"`

	OTEL *OTELConfig `mapstructure:"otel"`
}

// CORSConfig defines the CORS headers applied to every response.
type CORSConfig struct {
	AllowedHeaders string `mapstructure:"allowed-headers"`
	AllowedMethods string `mapstructure:"allowed-methods"`
	AllowedOrigin  string `mapstructure:"allowed-origin"`
}

// OTELConfig mirrors the tracing/alerting wiring.
type OTELConfig struct {
	DSN         string  `mapstructure:"dsn"`
	SampleRate  float64 `mapstructure:"sample-rate"`
	Environment string  `mapstructure:"environment"`
}
