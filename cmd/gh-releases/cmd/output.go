package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/oshokin/gh-releases/internal/service/updater"
)

// printResult writes a human readable check outcome.
func printResult(w io.Writer, result *updater.CheckResult) {
	if !result.UpdateAvailable() {
		current := result.Current.String()
		if current == "" {
			current = "unknown"
		}

		_, _ = fmt.Fprintf(w, "%s%s\n", color.YellowString("up to date: "), current)

		return
	}

	_, _ = fmt.Fprintf(w, "%s%s (current %s)\n",
		color.GreenString("update available: "), result.Latest.String(), result.Current.String())
	_, _ = fmt.Fprintf(w, "%s%s\n", color.CyanString("artifact: "), result.Artifact.URL)
	_, _ = fmt.Fprintf(w, "%s%s\n", color.BlueString("feed: "), result.FeedURL)
}

// printError writes err in red.
func printError(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "%s%v\n", color.RedString("error: "), err)
}
