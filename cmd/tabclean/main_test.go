package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabclean/internal/errors"
)

const rentConfig = `name: rent
columns:
  - {name: rent, kind: numeric}
  - {name: city, kind: categorical, labels: [a, b]}
filters:
  - {column: rent, lt: 3000}
remap:
  - column: city
    codes: {a: 0, b: 1}
split:
  test_fraction: 0.25
  seed: 7
`

const rentCSV = `rent,city
100,a
200,b
5000,a
300,b
400,a
`

func setupEnv(t *testing.T) string {
	t.Helper()
	t.Setenv("LOG_LEVEL", "ERROR")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("TABCLEAN_OUT_FORMAT", "csv")
	t.Setenv("TABCLEAN_WORKERS", "2")
	t.Setenv("TABCLEAN_SEED", "")
	t.Setenv("TABCLEAN_RECORD_RUNS", "")
	t.Setenv("DATABASE_URL", "")
	return t.TempDir()
}

func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(dir, "missing.env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Count(string(data), "\n")
}

func TestClean_WritesPartitions(t *testing.T) {
	dir := setupEnv(t)
	configPath := writeFile(t, dir, "rent.yaml", rentConfig)
	input := writeFile(t, dir, "rent.csv", rentCSV)
	outDir := filepath.Join(dir, "out")

	out, err := execute(t, dir, "clean", "--config", configPath, "--input", input, "--out-dir", outDir)
	require.NoError(t, err)

	assert.Contains(t, out, "Rows: 5 in, 4 out")
	assert.Contains(t, out, "Split (simple_random, seed 7): 3 train, 1 test")
	assert.Equal(t, 4, countLines(t, filepath.Join(outDir, "rent_train.csv")))
	assert.Equal(t, 2, countLines(t, filepath.Join(outDir, "rent_test.csv")))
}

const flatsConfig = `name: flats
columns:
  - {name: rent, kind: numeric}
  - {name: rooms, kind: numeric}
  - {name: city, kind: categorical, labels: [a, b]}
filters:
  - {column: rent, lt: 3000}
remap:
  - column: city
    codes: {a: 0, b: 1}
split:
  test_fraction: 0.25
  seed: 7
features:
  target: rent
  impute_median: true
  one_hot: [city]
`

func TestClean_WritesFeatureFiles(t *testing.T) {
	dir := setupEnv(t)
	configPath := writeFile(t, dir, "flats.yaml", flatsConfig)
	input := writeFile(t, dir, "flats.csv", "rent,rooms,city\n100,1,a\n200,,b\n5000,3,a\n300,2,b\n400,4,a\n")
	outDir := filepath.Join(dir, "out")

	out, err := execute(t, dir, "clean", "--config", configPath, "--input", input, "--out-dir", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Features (target rent)")

	assert.Equal(t, 4, countLines(t, filepath.Join(outDir, "flats_X_train.csv")))
	assert.Equal(t, 2, countLines(t, filepath.Join(outDir, "flats_X_test.csv")))
	assert.Equal(t, 4, countLines(t, filepath.Join(outDir, "flats_y_train.csv")))
	assert.Equal(t, 2, countLines(t, filepath.Join(outDir, "flats_y_test.csv")))

	for _, name := range []string{"flats_X_train.csv", "flats_X_test.csv"} {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		assert.True(t, strings.HasPrefix(lines[0], "rooms,city_"), "%s header %q", name, lines[0])
		assert.NotContains(t, lines[0], "rent")
		for _, line := range lines[1:] {
			assert.False(t, strings.HasPrefix(line, ","), "%s has an unfilled rooms value", name)
		}
	}
	y, err := os.ReadFile(filepath.Join(outDir, "flats_y_train.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(y), "rent\n"))
}

func TestClean_SeedFlagOverridesConfig(t *testing.T) {
	dir := setupEnv(t)
	configPath := writeFile(t, dir, "rent.yaml", rentConfig)
	input := writeFile(t, dir, "rent.csv", rentCSV)

	out, err := execute(t, dir, "clean", "--config", configPath, "--input", input,
		"--out-dir", filepath.Join(dir, "out"), "--seed", "99")
	require.NoError(t, err)
	assert.Contains(t, out, "seed 99")
}

func TestClean_StreamWritesCleanedRows(t *testing.T) {
	dir := setupEnv(t)
	config := strings.Split(rentConfig, "split:")[0]
	configPath := writeFile(t, dir, "rent.yaml", config)
	input := writeFile(t, dir, "rent.csv", rentCSV+"oops,a,extra\n600,b\n")
	outDir := filepath.Join(dir, "out")

	out, err := execute(t, dir, "clean", "--config", configPath, "--input", input, "--out-dir", outDir, "--stream")
	require.NoError(t, err)

	assert.Contains(t, out, "Streamed rent: 5 rows out, 1 malformed rows skipped")
	data, err := os.ReadFile(filepath.Join(outDir, "rent_cleaned.csv"))
	require.NoError(t, err)
	assert.Equal(t, "rent,city\n100,0\n200,1\n300,1\n400,0\n600,1\n", string(data))
}

func TestClean_StreamRejectsSplitConfig(t *testing.T) {
	dir := setupEnv(t)
	configPath := writeFile(t, dir, "rent.yaml", rentConfig)
	input := writeFile(t, dir, "rent.csv", rentCSV)
	outDir := filepath.Join(dir, "out")

	_, err := execute(t, dir, "clean", "--config", configPath, "--input", input, "--out-dir", outDir, "--stream")
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
	assert.NoFileExists(t, filepath.Join(outDir, "rent_cleaned.csv"))
}

func TestClean_InvalidConfigFailsBeforeWriting(t *testing.T) {
	dir := setupEnv(t)
	configPath := writeFile(t, dir, "bad.yaml", strings.Replace(rentConfig, "column: rent, lt: 3000", "column: price, lt: 3000", 1))
	input := writeFile(t, dir, "rent.csv", rentCSV)
	outDir := filepath.Join(dir, "out")

	_, err := execute(t, dir, "clean", "--config", configPath, "--input", input, "--out-dir", outDir)
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
	assert.NoDirExists(t, outDir)
}

func TestClean_RequiresPipelineAndSource(t *testing.T) {
	dir := setupEnv(t)

	_, err := execute(t, dir, "clean", "--input", "x.csv")
	assert.Error(t, err)

	_, err = execute(t, dir, "clean", "--preset", "housing_de", "--config", "x.yaml", "--input", "x.csv")
	assert.Error(t, err)

	_, err = execute(t, dir, "clean", "--preset", "housing_de", "--query", "SELECT 1")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestBatch_RunsEveryJob(t *testing.T) {
	dir := setupEnv(t)
	outDir := filepath.Join(dir, "out")
	t.Setenv("TABCLEAN_OUT_DIR", outDir)
	configPath := writeFile(t, dir, "rent.yaml", rentConfig)
	first := writeFile(t, dir, "berlin.csv", rentCSV)
	second := writeFile(t, dir, "hamburg.csv", rentCSV+"150,b\n")

	out, err := execute(t, dir, "batch", "--job", configPath+"="+first, "--job", configPath+"="+second)
	require.NoError(t, err)

	assert.Contains(t, out, "berlin: 5 in, 4 out")
	assert.Contains(t, out, "hamburg: 6 in, 5 out")
	assert.FileExists(t, filepath.Join(outDir, "berlin_train.csv"))
	assert.FileExists(t, filepath.Join(outDir, "hamburg_test.csv"))
}

func TestBatch_SameFileNameInDifferentDirectories(t *testing.T) {
	dir := setupEnv(t)
	outDir := filepath.Join(dir, "out")
	t.Setenv("TABCLEAN_OUT_DIR", outDir)
	configPath := writeFile(t, dir, "rent.yaml", rentConfig)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "jan"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "feb"), 0o755))
	jan := writeFile(t, filepath.Join(dir, "jan"), "trips.csv", rentCSV)
	feb := writeFile(t, filepath.Join(dir, "feb"), "trips.csv", rentCSV+"150,b\n160,a\n170,b\n")

	out, err := execute(t, dir, "batch", "--job", configPath+"="+jan, "--job", configPath+"="+feb)
	require.NoError(t, err)

	assert.Contains(t, out, "jan_trips: 5 in, 4 out")
	assert.Contains(t, out, "feb_trips: 8 in, 7 out")
	assert.Equal(t, 4, countLines(t, filepath.Join(outDir, "jan_trips_train.csv")))
	assert.Equal(t, 2, countLines(t, filepath.Join(outDir, "jan_trips_test.csv")))
	assert.Equal(t, 6, countLines(t, filepath.Join(outDir, "feb_trips_train.csv")))
	assert.Equal(t, 3, countLines(t, filepath.Join(outDir, "feb_trips_test.csv")))
	assert.NoFileExists(t, filepath.Join(outDir, "trips_train.csv"))
}

func TestBatch_RejectsJobsWritingTheSameOutputs(t *testing.T) {
	dir := setupEnv(t)
	outDir := filepath.Join(dir, "out")
	t.Setenv("TABCLEAN_OUT_DIR", outDir)
	configPath := writeFile(t, dir, "rent.yaml", rentConfig)
	input := writeFile(t, dir, "rent.csv", rentCSV)

	_, err := execute(t, dir, "batch", "--job", configPath+"="+input, "--job", "housing_de="+input)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	assert.NoDirExists(t, outDir)
}

func TestBatch_RejectsMalformedJob(t *testing.T) {
	dir := setupEnv(t)

	_, err := execute(t, dir, "batch", "--job", "housing_de")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestProfile(t *testing.T) {
	dir := setupEnv(t)
	input := writeFile(t, dir, "rent.csv", "rent,city\n100,a\n,b\n300,\n")

	out, err := execute(t, dir, "profile", "--input", input)
	require.NoError(t, err)

	assert.Contains(t, out, "3 rows, 2 columns, 2 missing values")
	assert.Contains(t, out, "33.33%")
	assert.Contains(t, out, "MEAN")
}

func TestPresets(t *testing.T) {
	dir := setupEnv(t)

	out, err := execute(t, dir, "presets")
	require.NoError(t, err)
	assert.Equal(t, "housing_de\nnyc_taxi_2019\n", out)

	out, err = execute(t, dir, "presets", "nyc_taxi_2019")
	require.NoError(t, err)
	assert.Contains(t, out, "name: nyc_taxi_2019")

	_, err = execute(t, dir, "presets", "boston")
	assert.Error(t, err)
}

func TestRuns_RequireDatabase(t *testing.T) {
	dir := setupEnv(t)

	_, err := execute(t, dir, "runs", "list", "--preset", "housing_de")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	_, err = execute(t, dir, "runs", "show", " ")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}
