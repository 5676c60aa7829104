// Command scenariocheck validates scenario files and prints their diagnostics.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"SingularityDashboard/internal/format"
	"SingularityDashboard/internal/scenario"
	"SingularityDashboard/internal/techtree"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAF5F")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#D75F5F")).Bold(true)
	pathStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

type fileReport struct {
	File        string                `json:"file"`
	Valid       bool                  `json:"valid"`
	ScenarioID  string                `json:"scenarioId,omitempty"`
	TechCount   int                   `json:"techCount,omitempty"`
	Error       string                `json:"error,omitempty"`
	Diagnostics []techtree.Diagnostic `json:"diagnostics,omitempty"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns 0 when every file is valid, 1 when any is not and 2 on usage errors.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("scenariocheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	formatName := fs.String("format", "", "force input format (yaml, json, proto, protojson); default from extension")
	asJSON := fs.Bool("json", false, "print a JSON report instead of text")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: scenariocheck [-format f] [-json] file...")
		return 2
	}

	forced, err := scenario.ParseFormat(*formatName)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	validator, err := scenario.NewValidator(scenario.DefaultCacheSize)
	if err != nil {
		fmt.Fprintf(stderr, "Error creating validator: %v\n", err)
		return 2
	}

	reports := make([]fileReport, 0, fs.NArg())
	failed := 0
	for _, file := range fs.Args() {
		r := check(validator, file, forced)
		if !r.Valid {
			failed++
		}
		reports = append(reports, r)
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			fmt.Fprintf(stderr, "Error encoding report: %v\n", err)
			return 2
		}
	} else {
		printReports(stdout, reports, failed)
	}

	if failed > 0 {
		return 1
	}
	return 0
}

func check(v *scenario.Validator, file string, forced scenario.Format) fileReport {
	r := fileReport{File: file}
	f := forced
	if f == scenario.FormatAuto {
		var err error
		if f, err = scenario.FormatFromPath(file); err != nil {
			r.Error = err.Error()
			return r
		}
	}
	data, err := os.ReadFile(file)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	s, err := v.Load(file, data, f)
	if err != nil {
		var verr *scenario.ValidationError
		if errors.As(err, &verr) {
			r.Diagnostics = verr.Diagnostics
		} else {
			r.Error = err.Error()
		}
		return r
	}
	r.Valid = true
	r.ScenarioID = s.ID
	r.TechCount = len(s.Technologies)
	return r
}

func printReports(w io.Writer, reports []fileReport, failed int) {
	for _, r := range reports {
		switch {
		case r.Valid:
			fmt.Fprintf(w, "%s %s (%s, %s techs)\n", okStyle.Render("ok  "), r.File, r.ScenarioID, format.Count(r.TechCount))
		case r.Error != "":
			fmt.Fprintf(w, "%s %s: %s\n", failStyle.Render("FAIL"), r.File, r.Error)
		default:
			fmt.Fprintf(w, "%s %s\n", failStyle.Render("FAIL"), r.File)
			for _, d := range r.Diagnostics {
				fmt.Fprintf(w, "     %s %s [%s]\n", pathStyle.Render(d.Path), d.Message, d.Code)
			}
		}
	}
	fmt.Fprintf(w, "%s checked, %s failed\n", format.Count(len(reports)), format.Count(failed))
}
