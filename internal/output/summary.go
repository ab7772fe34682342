// Package output renders run documents for the console or as JSON.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/codewharf/snapmine/internal/pipeline"
)

// Format selects an output renderer.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// ParseFormat maps a format flag value to a Format, defaulting to console.
func ParseFormat(s string) Format {
	if s == "json" {
		return FormatJSON
	}
	return FormatConsole
}

// Options configures a writer.
type Options struct {
	Format     Format
	OutputPath string // empty means stdout
	Top        int    // limit for index listings; 0 means all
}

// SummaryWriter renders a run summary.
type SummaryWriter interface {
	Write(summary *pipeline.Summary, options Options) error
}

// NewSummaryWriter returns the writer for the requested format.
func NewSummaryWriter(format Format) SummaryWriter {
	if format == FormatJSON {
		return &JSONSummaryWriter{}
	}
	return &ConsoleSummaryWriter{}
}

// ConsoleSummaryWriter prints a run summary to stdout.
type ConsoleSummaryWriter struct{}

func (w *ConsoleSummaryWriter) Write(summary *pipeline.Summary, _ Options) error {
	color.Green("Pipeline Run Summary")
	fmt.Printf("Repository: %s\n", summary.Repo)
	fmt.Printf("Output: %s\n", summary.OutputDir)
	fmt.Printf("Indexed commits: %d\n", summary.TotalCommits)
	fmt.Printf("Processed: %d\n", summary.Processed)

	if len(summary.Failed) == 0 {
		fmt.Println("Failed: 0")
		return nil
	}

	color.Red("Failed: %d", len(summary.Failed))
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Commit\tError")
	for _, f := range summary.Failed {
		fmt.Fprintf(tw, "%s\t%s\n", f.Commit, f.Error)
	}
	return tw.Flush()
}

// JSONSummaryWriter writes a run summary as JSON.
type JSONSummaryWriter struct{}

func (w *JSONSummaryWriter) Write(summary *pipeline.Summary, options Options) error {
	return writeJSON(summary, options.OutputPath)
}

// IndexWriter renders a commit index.
type IndexWriter interface {
	Write(index *pipeline.IndexDocument, options Options) error
}

// NewIndexWriter returns the index writer for the requested format.
func NewIndexWriter(format Format) IndexWriter {
	if format == FormatJSON {
		return &JSONIndexWriter{}
	}
	return &ConsoleIndexWriter{}
}

// ConsoleIndexWriter prints a commit listing to stdout.
type ConsoleIndexWriter struct{}

func (w *ConsoleIndexWriter) Write(index *pipeline.IndexDocument, options Options) error {
	color.Green("Commit Index")
	fmt.Printf("Repository: %s\n", index.RepoPath)
	fmt.Printf("Total commits: %d\n\n", index.CommitCount)

	commits := index.Commits
	if options.Top > 0 && options.Top < len(commits) {
		commits = commits[:options.Top]
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tHash\tDate\tTags\tMessage")
	for i, c := range commits {
		hash := c.Hash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		tags := ""
		if len(c.Tags) > 0 {
			tags = fmt.Sprintf("%v", c.Tags)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			i+1, hash, c.Timestamp.Format(time.DateOnly), tags, c.Message)
	}
	return tw.Flush()
}

// JSONIndexWriter writes the index document as JSON.
type JSONIndexWriter struct{}

func (w *JSONIndexWriter) Write(index *pipeline.IndexDocument, options Options) error {
	return writeJSON(index, options.OutputPath)
}

func writeJSON(data any, outputPath string) error {
	encoder := json.NewEncoder(os.Stdout)
	if outputPath != "" {
		file, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer file.Close()
		encoder = json.NewEncoder(file)
	}

	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
