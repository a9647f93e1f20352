// Package dataset loads labelled training samples from CSV files or a SQLite
// database.
package dataset

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/marinecast/core/model"
)

// LabelPrefix prefixes the label column of a behaviour.
const LabelPrefix = "label_"

// ErrUnknownBackend is returned by Open for unsupported backends.
var ErrUnknownBackend = errors.New("unknown dataset backend")

// Source yields the samples of a training set.
type Source interface {
	Samples(ctx context.Context) ([]model.TrainingSample, error)
	Close() error
}

// Open returns the source for backend ("csv" or "sqlite") at path.
func Open(backend, path string) (Source, error) {
	switch backend {
	case "csv", "":
		return CSVFile{Path: path}, nil
	case "sqlite":
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
