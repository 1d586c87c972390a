package decision

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders pruning results as a Markdown string.
func RenderMarkdown(results []*Result) string {
	var sb strings.Builder

	sb.WriteString("# Pruning Report\n\n")

	kept := 0
	for _, r := range results {
		if r.Keep() {
			kept++
		}
	}
	sb.WriteString(fmt.Sprintf("Kept: %d/%d candidates\n\n", kept, len(results)))

	for _, r := range results {
		sb.WriteString(fmt.Sprintf("## %s: %s\n\n", r.Key, r.Verdict))
		sb.WriteString("| # | Criterion | Threshold | Actual | Pass |\n")
		sb.WriteString("|---|-----------|-----------|--------|------|\n")
		for i, c := range r.Criteria {
			passStr := "PASS"
			if !c.Pass {
				passStr = "FAIL"
			}
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
				i+1, c.Name, c.Threshold, c.Actual, passStr))
		}
		sb.WriteString("\n")

		if !r.Keep() {
			sb.WriteString("Pruned due to:\n")
			for _, c := range r.Criteria {
				if !c.Pass {
					sb.WriteString(fmt.Sprintf("- %s (actual: %s)\n", c.Name, c.Actual))
				}
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}
