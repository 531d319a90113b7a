package ingest

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Reporter provides progress feedback during ingestion.
type Reporter interface {
	Start(total int)
	Update(current int, message string)
	Finish()
}

// NewReporter returns a terminal progress bar, or line-by-line output
// when running under CI.
func NewReporter() Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &ciReporter{}
	}
	return &terminalReporter{}
}

type terminalReporter struct {
	bar *progressbar.ProgressBar
}

func (r *terminalReporter) Start(total int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Ingesting documents"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *terminalReporter) Update(current int, message string) {
	if r.bar != nil {
		r.bar.Describe(message)
		_ = r.bar.Set(current)
	}
}

func (r *terminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

type ciReporter struct {
	total int
}

func (r *ciReporter) Start(total int) {
	r.total = total
	fmt.Fprintf(os.Stderr, "Ingesting %d files\n", total)
}

func (r *ciReporter) Update(current int, message string) {
	fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", current, r.total, message)
}

func (r *ciReporter) Finish() {
	fmt.Fprintln(os.Stderr, "Ingestion complete")
}

// silentReporter is used by tests and the server-side ingest path.
type silentReporter struct{}

func (silentReporter) Start(int)           {}
func (silentReporter) Update(int, string)  {}
func (silentReporter) Finish()             {}
