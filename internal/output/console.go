// Package output renders run progress and the final summary on the console.
package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/wesleyorama2/volley/internal/engine/metrics"
	"github.com/wesleyorama2/volley/internal/engine/orchestrator"
	"github.com/wesleyorama2/volley/internal/engine/stats"
)

const ruleWidth = 56

// RunInfo is shown in the header.
type RunInfo struct {
	Name        string
	BaseURL     string
	Workers     int
	Delay       time.Duration
	Credentials int
	Description string
}

// ConsoleConfig contains configuration for Console.
type ConsoleConfig struct {
	Writer      io.Writer
	Quiet       bool
	NoColor     bool
	ForceColors bool
}

// Console writes human-oriented output. Safe for concurrent use.
type Console struct {
	writer zapcore.WriteSyncer
	isTTY  bool
	quiet  bool
	scheme *ColorScheme

	mu sync.Mutex
}

// NewConsole creates a console renderer.
func NewConsole(cfg ConsoleConfig) *Console {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}

	isTTY := isTerminal(cfg.Writer)
	useColors := cfg.ForceColors || (!cfg.NoColor && isTTY && supportsColors())

	scheme := NoColorScheme()
	if useColors {
		scheme = DefaultColorScheme()
	}

	return &Console{
		writer: zapcore.Lock(zapcore.AddSync(cfg.Writer)),
		isTTY:  isTTY,
		quiet:  cfg.Quiet,
		scheme: scheme,
	}
}

// IsTTY returns whether the output is a terminal.
func (c *Console) IsTTY() bool {
	return c.isTTY
}

// Writer returns the console's locked writer. Anything else printing to the
// same terminal, such as a logger's echo core, must write through it so
// lines never interleave.
func (c *Console) Writer() zapcore.WriteSyncer {
	return c.writer
}

// PrintHeader prints the run header.
func (c *Console) PrintHeader(info RunInfo) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rule := c.scheme.Rule.Sprint(strings.Repeat("━", ruleWidth))
	c.writeln(rule)
	c.writeln(c.scheme.Title.Sprintf("%s - Running", info.Name))
	c.writeln(rule)
	c.writeln(c.field("Target", info.BaseURL))
	c.writeln(c.field("Workers", fmt.Sprintf("%d", info.Workers)))
	c.writeln(c.field("Delay", formatDuration(info.Delay)))
	c.writeln(c.field("Credentials", fmt.Sprintf("%d", info.Credentials)))
	if info.Description != "" {
		c.writeln(c.field("Description", info.Description))
	}
	c.writeln("")
}

// PrintStats prints one throughput line.
func (c *Console) PrintStats(rep stats.Report) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.writeln(fmt.Sprintf("%s %s | %s %s | %s",
		c.scheme.Label.Sprint("Total:"),
		c.scheme.Value.Sprint(formatNumber(rep.Total)),
		c.scheme.Label.Sprint("Last:"),
		c.scheme.Value.Sprintf("+%s in %s", formatNumber(rep.Delta), formatDuration(rep.Elapsed)),
		c.scheme.Rate.Sprintf("%.2f req/s", rep.Rate)))
}

// PrintSummary prints the final run summary.
func (c *Console) PrintSummary(name string, s *orchestrator.Summary) {
	if s == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.quiet {
		c.writeln(fmt.Sprintf("%s: %d sent in %s", name, s.Total, formatDuration(s.Elapsed)))
		return
	}

	rule := c.scheme.Rule.Sprint(strings.Repeat("━", ruleWidth))
	c.writeln("")
	c.writeln(rule)
	c.writeln(fmt.Sprintf("%s - %s", c.scheme.Title.Sprint(name), c.scheme.Success.Sprint("Stopped")))
	c.writeln(rule)
	c.writeln("")

	c.writeln(c.field("Duration", formatDuration(s.Elapsed)))
	c.writeln(c.field("Sent", formatNumber(s.Total)))
	c.writeln(c.field("Rate", fmt.Sprintf("%.2f req/s", s.Rate)))

	if m := s.Metrics; m != nil {
		c.writeln(c.count("Rotations", m.Rotations, c.scheme.Warn))
		c.writeln(c.count("Faults", m.Faults, c.scheme.Error))
	}
	c.writeln(c.count("Undrained", s.Undrained, c.scheme.Error))
	c.writeln("")

	if s.Metrics == nil {
		return
	}

	c.writeln(c.scheme.Title.Sprint("Latency Distribution:"))
	c.writeln(c.scheme.Dim.Sprintf("  %-9s %8s %8s %8s %8s %8s  %s", "op", "count", "p50", "p95", "p99", "max", "statuses"))
	for _, op := range metrics.Operations {
		st, ok := s.Metrics.Operations[op]
		if !ok {
			continue
		}
		l := st.Latency
		c.writeln(fmt.Sprintf("  %-9s %8s %8s %8s %8s %8s  %s",
			op,
			formatNumber(l.Count),
			c.scheme.Latency.Sprintf("%8s", formatDurationShort(l.P50)),
			c.scheme.Latency.Sprintf("%8s", formatDurationShort(l.P95)),
			c.scheme.Latency.Sprintf("%8s", formatDurationShort(l.P99)),
			c.scheme.Latency.Sprintf("%8s", formatDurationShort(l.Max)),
			c.statuses(st.Statuses)))
	}
	c.writeln("")
}

// PrintError prints an error line.
func (c *Console) PrintError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeln(c.scheme.Error.Sprintf("Error: %v", err))
}

func (c *Console) field(label, value string) string {
	return fmt.Sprintf("%s %s", c.scheme.Label.Sprintf("%-12s", label+":"), c.scheme.Value.Sprint(value))
}

// count highlights non-zero values with alert.
func (c *Console) count(label string, n int64, alert interface{ Sprint(...interface{}) string }) string {
	value := formatNumber(n)
	if n > 0 {
		value = alert.Sprint(value)
	} else {
		value = c.scheme.Value.Sprint(value)
	}
	return fmt.Sprintf("%s %s", c.scheme.Label.Sprintf("%-12s", label+":"), value)
}

func (c *Console) statuses(m map[string]int64) string {
	if len(m) == 0 {
		return "-"
	}
	classes := make([]string, 0, len(m))
	for k := range m {
		classes = append(classes, k)
	}
	sort.Strings(classes)

	parts := make([]string, 0, len(classes))
	for _, k := range classes {
		parts = append(parts, c.scheme.StatusColor(k).Sprintf("%s=%s", k, formatNumber(m[k])))
	}
	return strings.Join(parts, " ")
}

func (c *Console) writeln(s string) {
	fmt.Fprintln(c.writer, s)
}
