package confloader

import "errors"

// errReadBytes is returned by mapProvider.ReadBytes; koanf calls Read.
var errReadBytes = errors.New("confloader: map provider has no byte form")

// mapProvider feeds an in-memory map to koanf.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errReadBytes
}

func (m mapProvider) Read() (map[string]any, error) {
	return m, nil
}
