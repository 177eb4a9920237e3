package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/copyleftdev/gradviz/internal/optimization"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return out.String(), err
}

func TestRunConvergesOnQuadratic(t *testing.T) {
	out, err := execute(t, "run",
		"--objective", "quadratic",
		"--learning-rate", "0",
		"--max-iterations", "1000",
		"--loss-threshold", "0.001",
		"--format", "json",
		"--history=true",
	)
	require.NoError(t, err)

	var report runReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "quadratic", report.Objective)
	assert.Equal(t, 0.1, report.LearningRate)
	assert.Equal(t, "converged", report.StopReason)
	assert.Equal(t, 18, report.Iterations)
	assert.Less(t, report.Loss, 0.001)
	assert.Len(t, report.History, 19)
}

func TestRunReportsDivergence(t *testing.T) {
	out, err := execute(t, "run",
		"--objective", "quadratic",
		"--learning-rate", "500",
		"--unclamped",
		"--max-iterations", "1000",
		"--loss-threshold", "0.001",
		"--format", "yaml",
		"--history=false",
	)
	require.NoError(t, err)

	var report runReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	assert.Equal(t, "diverged", report.StopReason)
	assert.Equal(t, 1, report.Iterations)
	assert.Empty(t, report.History)
}

func TestRunTextOutput(t *testing.T) {
	out, err := execute(t, "run",
		"--objective", "rosenbrock",
		"--learning-rate", "0",
		"--max-iterations", "5",
		"--loss-threshold", "0.001",
		"--format", "text",
		"--history=false",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "objective:     rosenbrock")
	assert.Contains(t, out, "stopped:       budget_exhausted")
	assert.Contains(t, out, "learning rate: 0.001")
}

func TestRunRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown objective", []string{"--objective", "himmelblau", "--max-iterations", "10", "--loss-threshold", "0.001"}},
		{"zero budget", []string{"--objective", "quadratic", "--max-iterations", "0", "--loss-threshold", "0.001"}},
		{"zero threshold", []string{"--objective", "quadratic", "--max-iterations", "10", "--loss-threshold", "0"}},
		{"unknown format", []string{"--objective", "quadratic", "--max-iterations", "10", "--loss-threshold", "0.001", "--format", "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append([]string{"run", "--format", "text"}, tt.args...)...)
			assert.Error(t, err)
		})
	}
}

func TestObjectivesCommand(t *testing.T) {
	out, err := execute(t, "objectives", "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "quadratic")
	assert.Contains(t, out, "rosenbrock")
	assert.Contains(t, out, "beale")
	assert.Contains(t, out, "1.00e-04 / 0.001 / 0.05")

	out, err = execute(t, "objectives", "--format", "json")
	require.NoError(t, err)
	var descs []optimization.Description
	require.NoError(t, json.Unmarshal([]byte(out), &descs))
	require.Len(t, descs, 3)
	assert.Equal(t, optimization.Point{X: 3, Y: 0.5}, descs[2].Optimum)
}

func TestResolveLearningRate(t *testing.T) {
	obj, err := registry.Get(optimization.BealeName)
	require.NoError(t, err)

	assert.Equal(t, 0.002, resolveLearningRate(obj, 0, false))
	assert.Equal(t, 0.2, resolveLearningRate(obj, 3, false))
	assert.Equal(t, 3.0, resolveLearningRate(obj, 3, true))
	assert.Equal(t, 0.01, resolveLearningRate(obj, 0.01, false))
}
