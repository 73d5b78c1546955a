package extractor

// Config controls how the external extraction tool is located and how its
// execution is bounded. A zero timeout or output cap disables that bound,
// matching the behaviour of tools which are trusted to terminate.
type Config struct {
	BinPath        string `yaml:"bin_path" env:"EXTRACTOR_BIN_PATH" env-default:"yt-dlp"`
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"EXTRACTOR_TIMEOUT_SECONDS" env-default:"60"`
	MaxOutputBytes int64  `yaml:"max_output_bytes" env:"EXTRACTOR_MAX_OUTPUT_BYTES" env-default:"10485760"`
}
