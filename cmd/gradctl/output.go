package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/copyleftdev/gradviz/internal/optimization"
	"github.com/copyleftdev/gradviz/internal/optimization/controller"
)

// writeOutput encodes v as json or yaml, or writes text() for "text".
func writeOutput(w io.Writer, format string, v interface{}, text func() string) error {
	switch strings.ToLower(format) {
	case "text", "":
		_, err := io.WriteString(w, text())
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}

func formatObjectives(descs []optimization.Description) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %-12s %-12s %-12s %s\n", "NAME", "DOMAIN", "OPTIMUM", "START", "LEARNING RATE (min/default/max)")
	for _, d := range descs {
		fmt.Fprintf(&b, "%-12s %-12s %-12s %-12s %s / %s / %s\n",
			d.Name,
			fmt.Sprintf("[%g, %g]", d.Domain.Min, d.Domain.Max),
			fmt.Sprintf("(%g, %g)", d.Optimum.X, d.Optimum.Y),
			fmt.Sprintf("(%g, %g)", d.InitialPoint.X, d.InitialPoint.Y),
			controller.FormatLearningRate(d.LearningRateBounds.Min),
			controller.FormatLearningRate(d.LearningRateBounds.Default),
			controller.FormatLearningRate(d.LearningRateBounds.Max),
		)
	}
	return b.String()
}
