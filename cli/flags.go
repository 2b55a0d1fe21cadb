package cli

var (
	verbose    bool
	configPath string
	adbPath    string

	// for run command
	runTargets []string

	// for screenshot command
	screenshotSerial      string
	screenshotOutputPath  string
	screenshotFormat      string
	screenshotJpegQuality int
)
