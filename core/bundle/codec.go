package bundle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/kilianp07/marinecast/core/ensemble"
	"github.com/kilianp07/marinecast/core/equation"
)

// FormatVersion is the container version written by Write.
const FormatVersion = 1

var magic = []byte("MCB1")

var (
	// ErrBadMagic is returned when the input is not a bundle container.
	ErrBadMagic = errors.New("not a model bundle")
	// ErrUnsupportedVersion is returned for containers of an unknown version.
	ErrUnsupportedVersion = errors.New("unsupported bundle version")
)

type document struct {
	FormatVersion     int                      `json:"format_version"`
	ID                string                   `json:"id"`
	CreatedAt         time.Time                `json:"created_at"`
	Samples           int                      `json:"samples"`
	Registry          equation.Document        `json:"registry"`
	BaseFeatures      []string                 `json:"base_features"`
	AugmentedFeatures []string                 `json:"augmented_features"`
	Scaler            *ensemble.StandardScaler `json:"scaler,omitempty"`
	Models            map[string]BehaviorModel `json:"models"`
}

// Write encodes b as magic header followed by zstd-compressed JSON.
func Write(w io.Writer, b *Bundle) error {
	if err := b.Validate(); err != nil {
		return err
	}
	doc := document{
		FormatVersion:     FormatVersion,
		ID:                b.ID,
		CreatedAt:         b.CreatedAt,
		Samples:           b.Samples,
		Registry:          b.Registry.ToDocument(),
		BaseFeatures:      b.BaseFeatures,
		AugmentedFeatures: b.AugmentedFeatures,
		Scaler:            b.Scaler,
		Models:            b.Models,
	}
	if _, err := w.Write(magic); err != nil {
		return err
	}
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(zw).Encode(doc); err != nil {
		_ = zw.Close()
		return fmt.Errorf("encode bundle: %w", err)
	}
	return zw.Close()
}

// Read decodes a bundle written by Write and validates it.
func Read(r io.Reader) (*Bundle, error) {
	head := make([]byte, len(magic))
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMagic, err)
	}
	if !bytes.Equal(head, magic) {
		return nil, ErrBadMagic
	}
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var doc document
	if err := json.NewDecoder(zr).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	if doc.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.FormatVersion)
	}
	reg, err := equation.FromDocument(doc.Registry)
	if err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	models := doc.Models
	if models == nil {
		models = map[string]BehaviorModel{}
	}
	b := &Bundle{
		ID:                doc.ID,
		CreatedAt:         doc.CreatedAt,
		Samples:           doc.Samples,
		Registry:          reg,
		BaseFeatures:      doc.BaseFeatures,
		AugmentedFeatures: doc.AugmentedFeatures,
		Scaler:            doc.Scaler,
		Models:            models,
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Save writes b to path atomically: the container is written to a temporary
// file in the same directory, synced, closed and renamed over path.
func Save(path string, b *Bundle) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".bundle-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	if err = Write(tmp, b); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads and validates the bundle stored at path.
func Load(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Read(f)
}
