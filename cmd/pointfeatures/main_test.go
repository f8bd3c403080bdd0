package main

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pointfeatures/internal/fsutil"
	"github.com/banshee-data/pointfeatures/internal/pointcloud"
)

func writeSource(t *testing.T, dir string) string {
	t.Helper()
	pc, err := pointcloud.New(
		[]float64{0, 0.5, 1, 0, 0.5},
		[]float64{0, 0, 0, 0.5, 0.5},
		[]float64{1, 2, 3, 4, 5},
	)
	require.NoError(t, err)
	require.NoError(t, pc.SetAttribute(pointcloud.RawClassification, pointcloud.TypeInt, []float64{2, 2, 1, 1, 1}))
	path := filepath.Join(dir, "source.json")
	require.NoError(t, pointcloud.Save(fsutil.OSFileSystem{}, path, pc))
	return path
}

func writeNeighborhoods(t *testing.T, dir string, nbs [][]int) string {
	t.Helper()
	data, err := json.Marshal(nbs)
	require.NoError(t, err)
	path := filepath.Join(dir, "neighborhoods.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func runCLI(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_Dispatch(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
		wantErr  string
	}{
		{"no args", nil, 1, "", "Usage:"},
		{"help", []string{"help"}, 0, "Usage:", ""},
		{"version", []string{"version"}, 0, "pointfeatures version", ""},
		{"unknown", []string{"frobnicate"}, 1, "", "Unknown command: frobnicate"},
		{"compute missing flags", []string{"compute"}, 1, "", "-input and -output are required"},
		{"select missing flags", []string{"select"}, 1, "", "required"},
		{"runs missing db", []string{"runs"}, 1, "", "-db is required"},
		{"compute help", []string{"compute", "-h"}, 0, "", "-neighborhoods"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(tt.args...)
			assert.Equal(t, tt.wantCode, code)
			if tt.wantOut != "" {
				assert.Contains(t, stdout, tt.wantOut)
			}
			if tt.wantErr != "" {
				assert.Contains(t, stderr, tt.wantErr)
			}
		})
	}
}

func TestRun_List(t *testing.T) {
	code, stdout, _ := runCLI("list")
	require.Equal(t, 0, code)
	names := strings.Fields(stdout)
	assert.Len(t, names, 245)
	assert.Contains(t, names, "perc_95_normalized_height")
	assert.Contains(t, names, "echo_ratio")

	code, stdout, _ = runCLI("list", "-kinds")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "KIND")
	assert.Contains(t, stdout, "eigenv_1,eigenv_2,eigenv_3")
}

func TestRun_ComputeWithNeighborhoods(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir)
	nbs := writeNeighborhoods(t, dir, [][]int{{0, 1, 2}, {0, 1, 2, 3}, {}, {3, 4}, {0, 1, 2, 3, 4}})
	out := filepath.Join(dir, "out.json")
	db := filepath.Join(dir, "runs.db")
	plots := filepath.Join(dir, "plots")
	html := filepath.Join(dir, "report.html")

	code, stdout, stderr := runCLI("compute",
		"-input", src, "-neighborhoods", nbs, "-output", out,
		"-features", "mean_z,max_z,point_density,echo_ratio,pulse_penetration_ratio",
		"-radius", "2", "-workers", "2",
		"-db", db, "-plot-dir", plots, "-html", html, "-bins", "4")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "wrote 5 features for 5 targets")

	pc, err := pointcloud.Load(fsutil.OSFileSystem{}, out)
	require.NoError(t, err)
	mean, err := pc.Data("mean_z")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, mean[0], 1e-12)
	assert.InDelta(t, 2.5, mean[1], 1e-12)
	assert.True(t, math.IsNaN(mean[2]), "empty neighborhood")
	assert.InDelta(t, 3.0, mean[4], 1e-12)

	pulse, err := pc.Data("pulse_penetration_ratio")
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, pulse[0], 1e-12)

	require.NotEmpty(t, pc.Provenance)
	assert.Equal(t, "features.Compute", pc.Provenance[len(pc.Provenance)-1].Module)

	_, err = os.Stat(filepath.Join(plots, "mean_z.png"))
	assert.NoError(t, err)
	data, err := os.ReadFile(html)
	require.NoError(t, err)
	assert.Contains(t, string(data), "mean_z")

	m := regexp.MustCompile(`recorded run (\S+) in`).FindStringSubmatch(stdout)
	require.Len(t, m, 2, stdout)
	runID := m[1]

	code, stdout, stderr = runCLI("runs", "-db", db)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, runID)

	code, stdout, stderr = runCLI("runs", "-db", db, "-show", runID)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "infinite cylinder (2)")
	assert.Contains(t, stdout, "targets:  5")

	code, stdout, stderr = runCLI("runs", "-db", db, "-show", runID, "-feature", "mean_z")
	require.Equal(t, 0, code, stderr)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "0\t2", lines[0])
	assert.Equal(t, "2\tNaN", lines[2])

	code, _, _ = runCLI("runs", "-db", db, "-delete", runID)
	require.Equal(t, 0, code)
	code, _, stderr = runCLI("runs", "-db", db, "-show", runID)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "not found")
}

func TestRun_ComputeWholeCloud(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir)
	out := filepath.Join(dir, "out.json")

	code, stdout, stderr := runCLI("compute", "-input", src, "-output", out, "-volume", "sphere", "-radius", "3")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "for 1 targets")

	pc, err := pointcloud.Load(fsutil.OSFileSystem{}, out)
	require.NoError(t, err)
	assert.Equal(t, 1, pc.Len())
	x, err := pc.Data(pointcloud.X)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, x[0], 1e-12)

	median, err := pc.Data("median_z")
	require.NoError(t, err)
	assert.InDelta(t, 3.0, median[0], 1e-12)
	assert.True(t, pc.Has("eigenv_1"))
	assert.True(t, pc.Has("pulse_penetration_ratio"))
	assert.False(t, pc.Has("echo_ratio"), "echo ratio needs an infinite cylinder")
	assert.False(t, pc.Has("median_normalized_height"), "source has no normalized height")
}

func TestRun_ComputeErrors(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir)
	nbs := writeNeighborhoods(t, dir, [][]int{{0, 1}})
	out := filepath.Join(dir, "out.json")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"count mismatch", []string{"-neighborhoods", nbs}, "1 neighborhoods for 5 target points"},
		{"unknown feature", []string{"-features", "no_such_feature"}, "no_such_feature"},
		{"missing attribute", []string{"-features", "mean_intensity"}, "intensity"},
		{"bad volume", []string{"-volume", "cube"}, "invalid configuration"},
		{"missing input", []string{"-input", filepath.Join(dir, "missing.json")}, "failed to read point cloud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"compute", "-input", src, "-output", out}, tt.args...)
			code, _, stderr := runCLI(args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, stderr, tt.wantErr)
		})
	}
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err), "no output is written on failure")
}

func TestRun_Select(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir)
	out := filepath.Join(dir, "selected.json")

	code, stdout, stderr := runCLI("select", "-input", src, "-output", out, "-attr", "z", "-below", "3")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "kept 2 of 5 points")

	code, stdout, stderr = runCLI("select", "-input", src, "-output", out, "-attr", "z", "-above", "-Inf")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "kept 5 of 5 points")

	code, stdout, stderr = runCLI("select", "-input", src, "-output", out, "-attr", pointcloud.RawClassification, "-equal", "2")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "kept 2 of 5 points")

	pc, err := pointcloud.Load(fsutil.OSFileSystem{}, out)
	require.NoError(t, err)
	require.NotEmpty(t, pc.Provenance)
	assert.Equal(t, "filter.SelectEqual", pc.Provenance[len(pc.Provenance)-1].Module)

	code, _, stderr = runCLI("select", "-input", src, "-output", out, "-attr", "z", "-below", "3", "-above", "1")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "exactly one of")

	code, _, stderr = runCLI("select", "-input", src, "-output", out, "-attr", "z", "-below", "three")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "invalid -below")
}

func TestRun_Runs(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir)
	db := filepath.Join(dir, "runs.db")

	code, stdout, stderr := runCLI("runs", "-db", db)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "no runs recorded")

	code, stdout, stderr = runCLI("compute", "-input", src, "-output", filepath.Join(dir, "out.json"),
		"-features", "mean_z,max_z", "-volume", "sphere", "-radius", "3", "-db", db)
	require.Equal(t, 0, code, stderr)
	m := regexp.MustCompile(`recorded run (\S+) in`).FindStringSubmatch(stdout)
	require.Len(t, m, 2, stdout)
	runID := m[1]

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  []string
		wantErr  string
	}{
		{"list", nil, 0, []string{"RUN ID", runID, "sphere 3"}, ""},
		{"list with limit", []string{"-limit", "1"}, 0, []string{runID}, ""},
		{"show", []string{"-show", runID}, 0, []string{"run:      " + runID, "volume:   sphere (3)", "targets:  1", "features: mean_z, max_z"}, ""},
		{"show feature", []string{"-show", runID, "-feature", "mean_z"}, 0, []string{"0\t3\n"}, ""},
		{"show unknown run", []string{"-show", "no-such-run"}, 1, nil, "not found"},
		{"feature without show", []string{"-feature", "mean_z"}, 1, nil, "-feature requires -show"},
		{"delete unknown run", []string{"-delete", "no-such-run"}, 1, nil, "not found"},
		{"delete", []string{"-delete", runID}, 0, []string{"deleted run " + runID}, ""},
		{"show after delete", []string{"-show", runID}, 1, nil, "not found"},
		{"list after delete", nil, 0, []string{"no runs recorded"}, ""},
	}
	// Cases run in order against the same database.
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(append([]string{"runs", "-db", db}, tt.args...)...)
			assert.Equal(t, tt.wantCode, code, stderr)
			for _, want := range tt.wantOut {
				assert.Contains(t, stdout, want)
			}
			if tt.wantErr != "" {
				assert.Contains(t, stderr, tt.wantErr)
			}
		})
	}
}
