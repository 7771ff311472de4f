package cmd

import (
	"github.com/fatih/color"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
)

// formatConfidence colors a confidence score by how strongly it signals
// a restriction.
func formatConfidence(confidence float64) string {
	formatted := formatFloat(confidence)
	switch {
	case confidence >= 0.8:
		return colorError(formatted)
	case confidence >= 0.5:
		return colorWarn(formatted)
	default:
		return colorSuccess(formatted)
	}
}
