package config

// Config holds app configuration
type Config struct {
	// Input is a .pak file or a directory searched recursively for .pak files
	Input string `mapstructure:"input"`
	// OutputDir is where each archive's folder is created
	// (named after the folder containing the archive)
	OutputDir string `mapstructure:"output"`

	// CodePage is the single-byte encoding of names in the archive
	CodePage string `mapstructure:"codepage"`

	// Jobs is the number of archives extracted at the same time
	Jobs int `mapstructure:"jobs"`

	DryRun       bool   `mapstructure:"dry_run"`
	LogLevel     string `mapstructure:"log_level"`
	LogOutputDir string `mapstructure:"log_output_dir"`
	NoColor      bool   `mapstructure:"no_color"`

	Trace TraceConfig `mapstructure:"trace"`
}

// TraceConfig holds settings for reading a string out of a running game
type TraceConfig struct {
	Process string `mapstructure:"process"`

	// StructAddr is the address of the structure holding the buffer pointer
	StructAddr uint64 `mapstructure:"struct_addr"`
	// BufferOffset is the offset of the buffer pointer inside that structure
	BufferOffset uint64 `mapstructure:"buffer_offset"`

	// Sentinels are byte values (e.g. "0x0D") that end the string
	Sentinels []string `mapstructure:"sentinels"`
	MaxLength int      `mapstructure:"max_length"`
}
