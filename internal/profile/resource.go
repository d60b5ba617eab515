package profile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/afero"
)

// ErrUnknownProperty is returned for an its: property a resource lacks.
var ErrUnknownProperty = errors.New("unknown property")

// LookupEnvFunc reads an environment variable.
type LookupEnvFunc func(key string) (string, bool)

// Resource is the subject of a check. Property with an empty name returns
// the resource's default value.
type Resource interface {
	fmt.Stringer
	Property(ctx context.Context, name string) (value any, exists bool, err error)
}

// File reads a path through afero.
type File struct {
	fs   afero.Fs
	Path string
}

func (f File) String() string { return "File " + f.Path }

// Property supports content (default), size, mode and type.
func (f File) Property(_ context.Context, name string) (any, bool, error) {
	info, err := f.fs.Stat(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to stat %s: %w", f.Path, err)
	}

	switch name {
	case "", "content":
		if info.IsDir() {
			return nil, true, nil
		}
		data, err := afero.ReadFile(f.fs, f.Path)
		if err != nil {
			return nil, true, fmt.Errorf("failed to read %s: %w", f.Path, err)
		}
		return string(data), true, nil
	case "size":
		return info.Size(), true, nil
	case "mode":
		return fmt.Sprintf("%04o", info.Mode().Perm()), true, nil
	case "type":
		if info.IsDir() {
			return "directory", true, nil
		}
		return "file", true, nil
	default:
		return nil, false, fmt.Errorf("%w: file has no %q", ErrUnknownProperty, name)
	}
}

// Env reads one environment variable.
type Env struct {
	lookup LookupEnvFunc
	Name   string
}

func (e Env) String() string { return "Environment variable " + e.Name }

// Property supports value (default) and split, the value cut on the path
// list separator.
func (e Env) Property(_ context.Context, name string) (any, bool, error) {
	v, ok := e.lookup(e.Name)
	switch name {
	case "", "value":
		return v, ok, nil
	case "split":
		if !ok || v == "" {
			return []string{}, ok, nil
		}
		return strings.Split(v, string(os.PathListSeparator)), true, nil
	default:
		return nil, false, fmt.Errorf("%w: env has no %q", ErrUnknownProperty, name)
	}
}

// Unsupported stands in for resource types this build cannot probe. Checks
// against it compile to a skipped example.
type Unsupported struct {
	Type string
	Arg  string
}

func (u Unsupported) String() string { return u.Type + " " + u.Arg }

func (u Unsupported) Property(context.Context, string) (any, bool, error) {
	return nil, false, nil
}

// SkipReason reports why the resource cannot be checked.
func (u Unsupported) SkipReason() (string, bool) {
	return fmt.Sprintf("Resource `%s` is not supported on this platform.", u.Type), true
}

func (l *Loader) resource(kind, arg string) Resource {
	switch kind {
	case "file":
		return File{fs: l.fs, Path: arg}
	case "env":
		return Env{lookup: l.lookupEnv, Name: arg}
	default:
		return Unsupported{Type: kind, Arg: arg}
	}
}
