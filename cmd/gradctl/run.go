package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/gradviz/internal/optimization"
	"github.com/copyleftdev/gradviz/internal/optimization/controller"
	"github.com/copyleftdev/gradviz/internal/optimization/descent"
)

var (
	objectiveName string
	learningRate  float64
	maxIters      int
	lossThreshold float64
	runFormat     string
	withHistory   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run descent until it converges, diverges or exhausts its budget",
	RunE:  runDescent,
}

func init() {
	runCmd.Flags().StringVar(&objectiveName, "objective", optimization.QuadraticName, "Objective name")
	runCmd.Flags().Float64Var(&learningRate, "learning-rate", 0, "Learning rate (0 uses the objective default; clamped to its bounds unless --unclamped)")
	runCmd.Flags().IntVar(&maxIters, "max-iterations", descent.DefaultMaxIterations, "Iteration budget")
	runCmd.Flags().Float64Var(&lossThreshold, "loss-threshold", descent.DefaultLossThreshold, "Convergence loss threshold")
	runCmd.Flags().StringVar(&runFormat, "format", "text", "Output format: text, json, yaml")
	runCmd.Flags().BoolVar(&withHistory, "history", false, "Include the full trajectory")
	runCmd.Flags().Bool("unclamped", false, "Use the learning rate as given, even outside the objective bounds")

	rootCmd.AddCommand(runCmd)
}

// runReport is the result of a headless run.
type runReport struct {
	Objective    string               `json:"objective" yaml:"objective"`
	LearningRate float64              `json:"learning_rate" yaml:"learning_rate"`
	StopReason   string               `json:"stop_reason" yaml:"stop_reason"`
	Iterations   int                  `json:"iterations" yaml:"iterations"`
	Position     optimization.Point   `json:"position" yaml:"position"`
	Loss         float64              `json:"loss" yaml:"loss"`
	Optimum      optimization.Point   `json:"optimum" yaml:"optimum"`
	Elapsed      string               `json:"elapsed" yaml:"elapsed"`
	History      []optimization.Point `json:"history,omitempty" yaml:"history,omitempty"`
}

func runDescent(cmd *cobra.Command, args []string) error {
	obj, err := registry.Get(objectiveName)
	if err != nil {
		return fmt.Errorf("%w (available: %v)", err, registry.Names())
	}
	if maxIters < 1 {
		return fmt.Errorf("--max-iterations must be at least 1, got %d", maxIters)
	}
	if !(lossThreshold > 0) {
		return fmt.Errorf("--loss-threshold must be positive, got %v", lossThreshold)
	}

	unclamped, _ := cmd.Flags().GetBool("unclamped")
	lr := resolveLearningRate(obj, learningRate, unclamped)

	logger.Info("Starting descent", map[string]interface{}{
		"objective":     obj.Name(),
		"learning_rate": lr,
		"max_iters":     maxIters,
	})

	engine := descent.NewEngine(obj)
	policy := descent.Policy{LossThreshold: lossThreshold, MaxIterations: maxIters}

	start := time.Now()
	res, reason := descent.Run(engine, lr, policy)
	elapsed := time.Since(start)

	if reason == descent.StopDiverged {
		logger.Warn("Descent diverged", map[string]interface{}{
			"iteration":   res.Iteration,
			"candidate_x": res.Candidate.X,
			"candidate_y": res.Candidate.Y,
		})
	}

	state := engine.Snapshot()
	report := runReport{
		Objective:    obj.Name(),
		LearningRate: lr,
		StopReason:   reason.String(),
		Iterations:   state.Iteration,
		Position:     state.Position,
		Loss:         state.Loss,
		Optimum:      obj.Optimum(),
		Elapsed:      elapsed.String(),
	}
	if withHistory {
		report.History = state.History
	}

	return writeOutput(cmd.OutOrStdout(), runFormat, report, func() string {
		return formatReport(report)
	})
}

// resolveLearningRate picks the objective default for 0 and clamps to the
// objective bounds unless unclamped is set.
func resolveLearningRate(obj optimization.Objective, v float64, unclamped bool) float64 {
	bounds := obj.LearningRateBounds()
	if v == 0 {
		return bounds.Default
	}
	if unclamped {
		return v
	}
	return bounds.Clamp(v)
}

func formatReport(r runReport) string {
	s := fmt.Sprintf("objective:     %s\nlearning rate: %s\nstopped:       %s\niterations:    %d\nposition:      (%.4f, %.4f)\nloss:          %.6g\noptimum:       (%g, %g)\nelapsed:       %s\n",
		r.Objective, controller.FormatLearningRate(r.LearningRate), r.StopReason, r.Iterations,
		r.Position.X, r.Position.Y, r.Loss, r.Optimum.X, r.Optimum.Y, r.Elapsed)
	for i, p := range r.History {
		s += fmt.Sprintf("%5d  %12.6f  %12.6f\n", i, p.X, p.Y)
	}
	return s
}
