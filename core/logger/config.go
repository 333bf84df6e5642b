package logger

// Config holds configuration for the logger.
type Config struct {
	// Level sets the minimum log level (debug, info).
	Level string `mapstructure:"level" default:"info"`
	// Format selects the output encoding (json, console).
	Format string `mapstructure:"format" default:"json"`
}
