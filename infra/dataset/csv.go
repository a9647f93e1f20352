package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/kilianp07/marinecast/core/model"
)

// CSVFile reads samples from a CSV file on disk.
type CSVFile struct {
	Path string
}

// Samples implements Source.
func (f CSVFile) Samples(context.Context) ([]model.TrainingSample, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	return ReadCSV(file)
}

// Close implements Source.
func (CSVFile) Close() error { return nil }

// ReadCSV parses samples from r. The header names every canonical feature
// plus one label_<behavior> column per labelled behaviour; other columns are
// ignored. An empty label cell leaves the behaviour unlabelled for that row.
func ReadCSV(r io.Reader) ([]model.TrainingSample, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv: missing header")
		}
		return nil, err
	}

	features := map[int]string{}
	labels := map[int]string{}
	seen := map[string]bool{}
	for i, col := range header {
		col = strings.TrimSpace(col)
		if seen[col] {
			return nil, fmt.Errorf("csv: duplicate column %q", col)
		}
		seen[col] = true
		switch {
		case model.IsFeature(col):
			features[i] = col
		case strings.HasPrefix(col, LabelPrefix) && len(col) > len(LabelPrefix):
			labels[i] = strings.TrimPrefix(col, LabelPrefix)
		}
	}
	var missing []string
	for _, name := range model.FeatureNames() {
		if !seen[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("csv: %w: %s", model.ErrMissingFeature, strings.Join(missing, ", "))
	}

	var samples []model.TrainingSample
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		s := model.TrainingSample{Features: model.FeatureVector{}, Labels: map[string]bool{}}
		for i, name := range features {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("csv line %d: %s: %w", line, name, err)
			}
			s.Features[name] = v
		}
		for i, behavior := range labels {
			cell := strings.TrimSpace(rec[i])
			if cell == "" {
				continue
			}
			v, err := parseLabel(cell)
			if err != nil {
				return nil, fmt.Errorf("csv line %d: %s%s: %w", line, LabelPrefix, behavior, err)
			}
			s.Labels[behavior] = v
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// WriteCSV writes samples with the canonical feature columns followed by
// the label columns in sorted order.
func WriteCSV(w io.Writer, samples []model.TrainingSample) error {
	behaviorSet := map[string]bool{}
	for _, s := range samples {
		for b := range s.Labels {
			behaviorSet[b] = true
		}
	}
	behaviors := make([]string, 0, len(behaviorSet))
	for b := range behaviorSet {
		behaviors = append(behaviors, b)
	}
	sort.Strings(behaviors)

	cw := csv.NewWriter(w)
	header := model.FeatureNames()
	for _, b := range behaviors {
		header = append(header, LabelPrefix+b)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, s := range samples {
		values, err := s.Features.Values()
		if err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
		rec := make([]string, 0, len(header))
		for _, v := range values {
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		for _, b := range behaviors {
			v, ok := s.Labels[b]
			switch {
			case !ok:
				rec = append(rec, "")
			case v:
				rec = append(rec, "1")
			default:
				rec = append(rec, "0")
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func parseLabel(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y":
		return true, nil
	case "0", "false", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("invalid label %q", s)
}
