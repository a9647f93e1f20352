package dataset

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/marinecast/core/model"
)

func sample(depth float64, labels map[string]bool) model.TrainingSample {
	fv := model.FeatureVector{}
	for i, name := range model.FeatureNames() {
		fv[name] = float64(i) + 0.5
	}
	fv[model.FeatureDepth] = depth
	return model.TrainingSample{Features: fv, Labels: labels}
}

func csvHeader(extra ...string) string {
	return strings.Join(append(model.FeatureNames(), extra...), ",")
}

func csvRow(values ...string) string {
	row := make([]string, 0, 13+len(values))
	for range model.FeatureNames() {
		row = append(row, "1")
	}
	return strings.Join(append(row, values...), ",")
}

func TestReadCSV(t *testing.T) {
	data := csvHeader("label_feeding", "label_resting", "station") + "\n" +
		csvRow("1", "", "A") + "\n" +
		csvRow("false", "yes", "B") + "\n"

	samples, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, samples, 2)

	require.NoError(t, samples[0].Features.Validate())
	assert.Equal(t, map[string]bool{model.BehaviorFeeding: true}, samples[0].Labels)
	assert.Equal(t, map[string]bool{model.BehaviorFeeding: false, model.BehaviorResting: true}, samples[1].Labels)
}

func TestReadCSVErrors(t *testing.T) {
	cases := []struct {
		name string
		data string
		want string
	}{
		{"empty", "", "missing header"},
		{"missing feature", "latitude,longitude,label_feeding\n1,2,1\n", "missing feature"},
		{"duplicate column", csvHeader("depth") + "\n", "duplicate column"},
		{"bad number", strings.Replace(csvHeader()+"\n"+csvRow(), "1", "x", 1), ""},
		{"bad label", csvHeader("label_feeding") + "\n" + csvRow("maybe") + "\n", "invalid label"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tc.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestReadCSVMissingFeatureIsSentinel(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("latitude\n1\n"))
	assert.ErrorIs(t, err, model.ErrMissingFeature)
}

func TestWriteReadCSV(t *testing.T) {
	in := []model.TrainingSample{
		sample(12.25, map[string]bool{model.BehaviorFeeding: true}),
		sample(80, map[string]bool{model.BehaviorFeeding: false, model.BehaviorTraveling: true}),
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, in))
	assert.True(t, strings.HasPrefix(buf.String(), csvHeader("label_feeding", "label_traveling")+"\n"))

	out, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestCSVFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvHeader("label_feeding")+"\n"+csvRow("1")+"\n"), 0644))

	src, err := Open("csv", path)
	require.NoError(t, err)
	defer src.Close()
	samples, err := src.Samples(context.Background())
	require.NoError(t, err)
	assert.Len(t, samples, 1)

	_, err = CSVFile{Path: filepath.Join(t.TempDir(), "nope.csv")}.Samples(context.Background())
	assert.Error(t, err)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open("parquet", "x")
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "samples.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)

	in := []model.TrainingSample{
		sample(10, map[string]bool{model.BehaviorFeeding: true, model.BehaviorResting: false}),
		sample(20, map[string]bool{}),
		sample(30, map[string]bool{model.BehaviorSocializing: true}),
	}
	require.NoError(t, store.Add(ctx, in...))
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	out, err := store.Samples(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	require.NoError(t, store.Close())

	src, err := Open("sqlite", path)
	require.NoError(t, err)
	defer src.Close()
	again, err := src.Samples(ctx)
	require.NoError(t, err)
	assert.Len(t, again, 3)
}

func TestSQLiteStoreAddIsAtomic(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "samples.db"))
	require.NoError(t, err)
	defer store.Close()

	bad := sample(1, nil)
	delete(bad.Features, model.FeatureSalinity)
	err = store.Add(ctx, sample(5, nil), bad)
	assert.ErrorIs(t, err, model.ErrMissingFeature)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
