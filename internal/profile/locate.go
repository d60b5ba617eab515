package profile

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/wizzomafizzo/gauntlet/internal/constants"
)

// ErrNoProfile is returned when no profile directory can be found.
var ErrNoProfile = errors.New("no profile found")

// FindRoot finds the profile to run when none was named: the directory in
// GAUNTLET_PROFILE_DIR, otherwise the nearest directory at or above startDir
// that holds a profile.yml.
func (l *Loader) FindRoot(startDir string) (string, error) {
	if root, found := l.checkProfileDirEnv(); found {
		return root, nil
	}

	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", startDir, err)
	}

	if root, found := l.findProfileMarker(abs); found {
		return root, nil
	}
	return "", fmt.Errorf("%w: no %s at or above %s", ErrNoProfile, constants.ProfileFilename, abs)
}

// checkProfileDirEnv reports the env override when it names a directory.
func (l *Loader) checkProfileDirEnv() (string, bool) {
	dir, ok := l.lookupEnv(constants.ProfileDirEnv)
	if !ok || dir == "" {
		return "", false
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}

	isDir, err := afero.IsDir(l.fs, abs)
	if err != nil || !isDir {
		return "", false
	}
	return abs, true
}

func (l *Loader) findProfileMarker(startDir string) (string, bool) {
	currentDir := startDir

	for {
		if ok, _ := afero.Exists(l.fs, filepath.Join(currentDir, constants.ProfileFilename)); ok {
			return currentDir, true
		}

		parentDir := filepath.Dir(currentDir)
		// Stop at the filesystem root
		if parentDir == currentDir {
			return "", false
		}
		currentDir = parentDir
	}
}
