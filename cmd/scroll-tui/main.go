// Command scroll-tui drives the scroll engine in a terminal list.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Rorqualx/smoothscroll-go/internal/presets"
	"github.com/Rorqualx/smoothscroll-go/internal/tui"
)

func main() {
	file := flag.String("file", "", "Text file to scroll (default: generated rows)")
	rows := flag.Int("rows", 500, "Number of generated rows when -file is not set")
	duration := flag.Duration("duration", 600*time.Millisecond, "Scroll animation duration")
	interval := flag.Duration("interval", 16*time.Millisecond, "Frame interval")
	easings := flag.String("easings", strings.Join(tui.DefaultEasings, ","), "Comma-separated easings bound to keys 1-9")
	presetsPath := flag.String("presets", "", "External easing presets YAML file")
	logPath := flag.String("log", "", "Write debug logs to this file")
	flag.Parse()

	if err := setupLogging(*logPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	lines, err := loadRows(*file, *rows)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	presetMgr, err := presets.NewManager(*presetsPath, *presetsPath != "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer presetMgr.Close()

	m := tui.New(tui.Config{
		Rows:     lines,
		Duration: *duration,
		Easings:  strings.Split(*easings, ","),
		Resolve:  presetMgr.Resolve,
		Interval: *interval,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging sends logs to path, or discards them when path is empty so
// they do not corrupt the screen.
func setupLogging(path string) error {
	if path == "" {
		zerolog.SetGlobalLevel(zerolog.Disabled)
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	log.Logger = zerolog.New(f).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	return nil
}

func loadRows(path string, n int) ([]string, error) {
	if path == "" {
		rows := make([]string, n)
		for i := range rows {
			rows[i] = fmt.Sprintf("row %d", i+1)
		}
		return rows, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		rows = append(rows, strings.ReplaceAll(scanner.Text(), "\t", "    "))
	}
	return rows, scanner.Err()
}
