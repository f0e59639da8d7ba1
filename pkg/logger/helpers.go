package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode/utf8"
)

// Icons and symbols for different log types
const (
	IconSuccess   = "✅"
	IconError     = "❌"
	IconWarning   = "⚠️"
	IconInfo      = "ℹ️"
	IconRocket    = "🚀"
	IconConfig    = "⚙️"
	IconRefresh   = "🔄"
	IconParachute = "🪂"
	IconWind      = "💨"
	IconGlobe     = "🌍"
	IconTarget    = "🎯"
	IconChart     = "📊"
	IconFolder    = "📁"
	IconCheck     = "✓"
	IconCross     = "✗"
	IconDot       = "•"
	IconArrow     = "→"
)

// Success logs a success message with a green checkmark
func Success(args ...interface{}) {
	defaultLogger.Info(IconSuccess + " " + fmt.Sprint(args...))
}

// Successf logs a formatted success message
func Successf(format string, args ...interface{}) {
	Success(fmt.Sprintf(format, args...))
}

// Progress logs a progress message with a refresh icon
func Progress(args ...interface{}) {
	defaultLogger.Info(IconRefresh + " " + fmt.Sprint(args...))
}

// Progressf logs a formatted progress message
func Progressf(format string, args ...interface{}) {
	Progress(fmt.Sprintf(format, args...))
}

// Windf logs a formatted message about the atmosphere
func Windf(format string, args ...interface{}) {
	defaultLogger.Info(IconWind + " " + fmt.Sprintf(format, args...))
}

// LogSection creates a visual section separator
func LogSection(title string) {
	FprintSection(os.Stdout, title, colorEnabled())
}

// FprintSection writes a section banner to w
func FprintSection(w io.Writer, title string, color bool) {
	line := strings.Repeat("=", 50)
	for _, s := range []string{line, title, line} {
		fmt.Fprintln(w, paint(sectionColor, !color, s))
	}
}

// LogSubSection creates a visual subsection separator
func LogSubSection(title string) {
	line := strings.Repeat("-", 40)
	noColor := !colorEnabled()
	fmt.Println(paint(timeColor, noColor, line))
	fmt.Println(paint(timeColor, noColor, title))
	fmt.Println(paint(timeColor, noColor, line))
}

// LogKeyValue logs a key-value pair with nice formatting
func LogKeyValue(key string, value interface{}) {
	FprintKeyValue(os.Stdout, key, value, colorEnabled())
}

// FprintKeyValue writes an aligned key-value line to w
func FprintKeyValue(w io.Writer, key string, value interface{}, color bool) {
	fmt.Fprintf(w, "%s %v\n", paint(prefixColor, !color, fmt.Sprintf("%-22s", key+":")), value)
}

// LogKeyValues logs multiple key-value pairs in key order
func LogKeyValues(pairs map[string]interface{}) {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		LogKeyValue(k, pairs[k])
	}
}

// Table represents a simple table for logging
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable creates a new table
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// AddRow adds a row to the table
func (t *Table) AddRow(values ...string) {
	t.rows = append(t.rows, values)
}

// Print prints the table to stdout
func (t *Table) Print() {
	t.Render(os.Stdout)
}

// Render writes the table to w
func (t *Table) Render(w io.Writer) {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell); i < len(widths) && n > widths[i] {
				widths[i] = n
			}
		}
	}

	writeRow := func(cells []string) {
		var b strings.Builder
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			b.WriteString(cell)
			b.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell)+2))
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}

	writeRow(t.headers)
	sep := make([]string, len(widths))
	for i, n := range widths {
		sep[i] = strings.Repeat("-", n)
	}
	writeRow(sep)
	for _, row := range t.rows {
		writeRow(row)
	}
}
