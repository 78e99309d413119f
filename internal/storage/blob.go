// Package storage provides artifact persistence for rendered plots.
package storage

import (
	"errors"
	"path"
)

// ErrBlobNotFound is returned when a key has no stored blob.
var ErrBlobNotFound = errors.New("blob not found")

// PlotPrefix is the key prefix under which chart images are stored.
const PlotPrefix = "plots"

// PlotFilename is the stable artifact name for a symbol's chart.
func PlotFilename(symbol string) string {
	return symbol + ".png"
}

// PlotKey maps a symbol to its blob key, e.g. "2330" -> "plots/2330.png".
func PlotKey(symbol string) string {
	return path.Join(PlotPrefix, PlotFilename(symbol))
}

// FileBlobConfig holds file-based blob store configuration.
type FileBlobConfig struct {
	BasePath string `toml:"base_path"`
}
