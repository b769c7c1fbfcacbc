package internal

import "time"

type Config struct {
	Host                 string        `env:"HOST,required=true"`
	Port                 int           `env:"PORT,required=true"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel             string        `env:"LOG_LEVEL,required=true"`
	BufferSize           int           `env:"BUFFER_SIZE,required=true"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,required=true"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,required=true"`
	JWTSecret            string        `env:"JWT_SECRET,required=true"`
	UploadsRoot          string        `env:"UPLOADS_ROOT,required=true"`
	DebugPort            int           `env:"DEBUG_PORT"`

	// Used by the terminal client to mint its own credentials.
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION"`
	ServerURL         string        `env:"SERVER_URL"`
	UserID            string        `env:"USER_ID"`
}
