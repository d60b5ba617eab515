// Package constants contains names shared across gauntlet packages.
package constants

const (
	// AppName is used for XDG directory paths and metric prefixes.
	AppName = "gauntlet"

	// LogFilename is the default log file name.
	LogFilename = "gauntlet.log"

	// ConfigFilename is the default run configuration file name.
	ConfigFilename = "gauntlet.yml"

	// ProfileFilename is the metadata file at the root of a profile directory.
	ProfileFilename = "profile.yml"

	// ControlsDir holds control files inside a profile directory.
	ControlsDir = "controls"

	// ProfileDirEnv names a profile directory used when none is given.
	ProfileDirEnv = "GAUNTLET_PROFILE_DIR"

	// StdoutOutput selects standard output as the run output.
	StdoutOutput = "-"
)
