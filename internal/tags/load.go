package tags

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Files names the reference data files. An empty path means no data.
type Files struct {
	Aliases      string
	Implications string
	Blacklist    string
	Deprecations string
}

// Load reads the reference data files and resolves them.
func Load(files Files) (*Mappings, error) {
	aliases, err := readFile(files.Aliases, ReadRelations)
	if err != nil {
		return nil, err
	}
	implications, err := readFile(files.Implications, ReadRelations)
	if err != nil {
		return nil, err
	}
	blacklist, err := readFile(files.Blacklist, ReadList)
	if err != nil {
		return nil, err
	}
	deprecations, err := readFile(files.Deprecations, ReadList)
	if err != nil {
		return nil, err
	}

	m, err := Resolve(aliases, implications, blacklist, deprecations)
	if err != nil {
		// Every resolve failure is an alias integrity failure.
		var le *LoadError
		if errors.As(err, &le) {
			le.Source = files.Aliases
		}
		return nil, err
	}
	return m, nil
}

func readFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference data: %w", err)
	}
	defer f.Close()

	out, err := read(f)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Source = path
			return nil, le
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}
