package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/stackdash/stackdash/services/dashboard/datatypes"
)

// =============================================================================
// COMMAND IMPLEMENTATIONS
// =============================================================================

// runStatusCommand fetches the readiness snapshot once and renders it.
func runStatusCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := NewAPIClient(apiURL)
	readiness, err := client.GetSetupStatus(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to fetch setup status: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		outputJSON(readiness)
		return
	}

	renderReadiness(readiness, false)

	if !readiness.IsComplete {
		os.Exit(1)
	}
}

// runServicesCommand shows all services, or one when an ID is given.
func runServicesCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := NewAPIClient(apiURL)

	if len(args) > 0 {
		service, err := client.GetService(ctx, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to fetch service %q: %v\n", args[0], err)
			os.Exit(1)
		}
		if jsonOutput {
			outputJSON(service)
			return
		}
		renderServices([]datatypes.ServiceStatus{*service})
		return
	}

	services, err := client.GetServices(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to fetch services: %v\n", err)
		os.Exit(1)
	}
	if jsonOutput {
		outputJSON(services)
		return
	}
	renderServices(services)
}

// runPrereqsCommand shows the resolved prerequisite list.
func runPrereqsCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := NewAPIClient(apiURL)
	prereqs, err := client.GetPrerequisites(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to fetch prerequisites: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		outputJSON(prereqs)
		return
	}

	missing := 0
	for _, p := range prereqs {
		fmt.Println(formatPrerequisite(p))
		if p.Required && p.Status != "installed" {
			missing++
		}
	}
	if missing > 0 {
		fmt.Printf("\n%d required tool(s) missing\n", missing)
		os.Exit(1)
	}
}

// outputJSON writes v to stdout as indented JSON.
func outputJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// RENDERING
// =============================================================================

// renderReadiness prints the readiness snapshot in a box layout.
// stale marks output rendered from a cached snapshot after a failed poll.
func renderReadiness(r *datatypes.SetupReadiness, stale bool) {
	width := 70

	printBoxTop(width)
	printBoxCenter("STACKDASH SETUP STATUS", width)
	if stale {
		printBoxCenter(colorize(colorYellow, "(stale: dashboard unreachable, showing last known state)"), width)
	}
	printBoxSeparator(width)

	prereqLabel := colorize(colorRed, "MISSING")
	if r.AllPrerequisitesMet {
		prereqLabel = colorize(colorGreen, "MET")
	}
	printBoxLine(fmt.Sprintf("Prerequisites: %s", prereqLabel), width)
	for _, p := range r.Prerequisites {
		printBoxLine("  "+formatPrerequisite(p), width)
	}

	printBoxSeparator(width)
	printBoxLine("Steps:", width)
	for _, s := range r.Steps {
		printBoxLine("  "+formatStep(s), width)
	}

	printBoxSeparator(width)
	progress := fmt.Sprintf("Progress: %d/%d steps (%.1f%%)",
		r.CompletedSteps, r.TotalSteps, r.ProgressPercentage)
	if r.IsComplete {
		progress += "  " + colorize(colorGreen, "COMPLETE")
	}
	printBoxLine(progress, width)
	printBoxBottom(width)
}

// renderServices prints one line per service.
func renderServices(services []datatypes.ServiceStatus) {
	if len(services) == 0 {
		fmt.Println("No services configured.")
		return
	}

	for _, s := range services {
		line := fmt.Sprintf("%s %-20s [%s]", statusIcon(s.Status), s.Name, strings.ToUpper(s.Status))
		if s.ResponseTime > 0 {
			line += fmt.Sprintf(" latency: %dms", s.ResponseTime)
		}
		line += fmt.Sprintf(" uptime: %.0f%%", s.Uptime*100)
		if s.Message != "" && verbose {
			line += fmt.Sprintf(" (%s)", s.Message)
		}
		fmt.Println(line)
	}
}

func formatPrerequisite(p datatypes.Prerequisite) string {
	icon := colorize(colorRed, "x")
	if p.Status == "installed" {
		icon = colorize(colorGreen, "+")
	}
	label := p.Name
	if p.Version != "" {
		label += " (" + p.Version + ")"
	}
	if !p.Required {
		label += " [optional]"
	}
	return fmt.Sprintf("%s %s", icon, label)
}

func formatStep(s datatypes.SetupStep) string {
	var icon string
	switch s.Status {
	case "completed":
		icon = colorize(colorGreen, "+")
	case "in-progress":
		icon = colorize(colorYellow, "~")
	case "failed":
		icon = colorize(colorRed, "x")
	default:
		icon = "."
	}
	return fmt.Sprintf("%s %s", icon, s.Name)
}

func statusIcon(status string) string {
	switch status {
	case "operational":
		return colorize(colorGreen, "+")
	case "degraded":
		return colorize(colorYellow, "~")
	default:
		return colorize(colorRed, "x")
	}
}

// =============================================================================
// BOX DRAWING HELPERS
// =============================================================================

const (
	boxTopLeft     = "╔"
	boxTopRight    = "╗"
	boxBottomLeft  = "╚"
	boxBottomRight = "╝"
	boxHorizontal  = "═"
	boxVertical    = "║"
	boxLeftT       = "╠"
	boxRightT      = "╣"

	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

// colorEnabled reports whether ANSI colors should be emitted.
func colorEnabled() bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// colorize wraps s in the given ANSI color when output is a terminal.
func colorize(color, s string) string {
	if !colorEnabled() {
		return s
	}
	return color + s + colorReset
}

func printBoxTop(width int) {
	fmt.Print(boxTopLeft)
	for i := 0; i < width-2; i++ {
		fmt.Print(boxHorizontal)
	}
	fmt.Println(boxTopRight)
}

func printBoxBottom(width int) {
	fmt.Print(boxBottomLeft)
	for i := 0; i < width-2; i++ {
		fmt.Print(boxHorizontal)
	}
	fmt.Println(boxBottomRight)
}

func printBoxSeparator(width int) {
	fmt.Print(boxLeftT)
	for i := 0; i < width-2; i++ {
		fmt.Print(boxHorizontal)
	}
	fmt.Println(boxRightT)
}

func printBoxLine(content string, width int) {
	visibleLen := visibleLength(content)
	padding := width - 4 - visibleLen
	if padding < 0 {
		padding = 0
	}
	fmt.Printf("%s %s%s %s\n", boxVertical, content, strings.Repeat(" ", padding), boxVertical)
}

func printBoxCenter(content string, width int) {
	visibleLen := visibleLength(content)
	totalPadding := width - 4 - visibleLen
	if totalPadding < 0 {
		totalPadding = 0
	}
	leftPad := totalPadding / 2
	rightPad := totalPadding - leftPad
	fmt.Printf("%s %s%s%s %s\n", boxVertical,
		strings.Repeat(" ", leftPad), content, strings.Repeat(" ", rightPad), boxVertical)
}

// visibleLength returns the visible length of a string, excluding ANSI
// escape codes.
func visibleLength(s string) int {
	inEscape := false
	visible := 0
	for _, r := range s {
		if r == '\033' {
			inEscape = true
			continue
		}
		if inEscape {
			if r == 'm' {
				inEscape = false
			}
			continue
		}
		visible++
	}
	return visible
}
