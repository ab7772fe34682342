// Package aggregation merges snapshot, diff and structural-analysis
// documents into the final per-commit metadata record.
package aggregation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codewharf/snapmine/internal/analyze"
	"github.com/codewharf/snapmine/internal/git"
	"github.com/codewharf/snapmine/internal/snapshot"
)

const (
	// ParsedFile is the structural-analysis document name.
	ParsedFile = "parsed.json"
	// DiffFile is the diff document name.
	DiffFile = "diff.json"
	// MetadataFile is the aggregated record name. It replaces the snapshot
	// metadata document of the same name after reading it.
	MetadataFile = "metadata.json"
)

// ASTSummary totals the structural document across all files.
type ASTSummary struct {
	Files     int `json:"files"`
	Functions int `json:"functions"`
	Classes   int `json:"classes"`
	Imports   int `json:"imports"`
	Calls     int `json:"calls"`
	LOC       int `json:"loc"`
}

// Stats carries the diff-derived change statistics.
type Stats struct {
	FilesChanged []git.FileStat `json:"files_changed"`
	LinesAdded   int            `json:"lines_added"`
	LinesDeleted int            `json:"lines_deleted"`
}

// Metadata is the terminal normalized record for one commit.
type Metadata struct {
	Commit     string     `json:"commit"`
	Timestamp  string     `json:"timestamp,omitempty"`
	Message    string     `json:"message,omitempty"`
	Parent     string     `json:"parent,omitempty"`
	NumFiles   int        `json:"num_files"`
	LOC        int        `json:"loc"`
	Languages  []string   `json:"languages"`
	Stats      Stats      `json:"stats"`
	ASTSummary ASTSummary `json:"ast_summary"`
}

// BuildMetadata assembles the aggregated record for one commit-scoped
// snapshot directory and writes it to outPath. Missing upstream documents
// are treated as empty, not as errors; aggregation is best-effort over
// whatever partial state exists.
func BuildMetadata(snapshotDir, outPath string) (*Metadata, error) {
	base := map[string]any{}
	if err := loadJSON(filepath.Join(snapshotDir, snapshot.MetadataFile), &base); err != nil {
		return nil, fmt.Errorf("load snapshot metadata: %w", err)
	}

	var parsed analyze.Document
	if err := loadJSON(filepath.Join(snapshotDir, ParsedFile), &parsed); err != nil {
		return nil, fmt.Errorf("load structural document: %w", err)
	}

	var diff git.DiffRecord
	if err := loadJSON(filepath.Join(snapshotDir, DiffFile), &diff); err != nil {
		return nil, fmt.Errorf("load diff document: %w", err)
	}

	numFiles, languages := scanSource(filepath.Join(snapshotDir, snapshot.SourceDirName))
	astSummary := summarize(&parsed)

	loc := astSummary.LOC
	if loc == 0 {
		loc = intField(base, "loc")
	}

	commit := stringField(base, "commit")
	if commit == "" {
		commit = diff.Commit
	}

	parent := diff.Parent
	if parent == "" {
		parent = stringField(base, "parent")
	}

	if len(languages) == 0 {
		languages = []string{"python"}
	}

	stats := Stats{
		FilesChanged: diff.FilesChanged,
		LinesAdded:   diff.LinesAdded,
		LinesDeleted: diff.LinesDeleted,
	}
	if stats.FilesChanged == nil {
		stats.FilesChanged = []git.FileStat{}
	}

	record := &Metadata{
		Commit:     commit,
		Timestamp:  stringField(base, "timestamp"),
		Message:    stringField(base, "message"),
		Parent:     parent,
		NumFiles:   numFiles,
		LOC:        loc,
		Languages:  languages,
		Stats:      stats,
		ASTSummary: astSummary,
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(outPath, append(data, '\n'), 0o644); err != nil {
		return nil, err
	}
	return record, nil
}

// summarize counts structural entities across all file entries, tolerating
// error-shaped entries (which contribute only their loc).
func summarize(doc *analyze.Document) ASTSummary {
	sum := ASTSummary{Files: len(doc.Files)}
	for _, f := range doc.Files {
		sum.Functions += len(f.Functions)
		sum.Classes += len(f.Classes)
		sum.Imports += len(f.Imports)
		sum.Calls += len(f.Calls)
		sum.LOC += f.LOC
	}
	return sum
}

// scanSource counts files and buckets them by extension-derived language.
// A missing source directory yields zero counts.
func scanSource(sourceDir string) (int, []string) {
	if _, err := os.Stat(sourceDir); err != nil {
		return 0, nil
	}

	fileCount := 0
	buckets := map[string]bool{}
	_ = filepath.WalkDir(sourceDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		fileCount++
		if strings.EqualFold(filepath.Ext(p), ".py") {
			buckets["python"] = true
		} else {
			buckets["other"] = true
		}
		return nil
	})

	languages := make([]string, 0, len(buckets))
	for lang := range buckets {
		languages = append(languages, lang)
	}
	sort.Strings(languages)
	return fileCount, languages
}

// loadJSON reads a document into out; a missing file leaves out untouched.
func loadJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func intField(m map[string]any, key string) int {
	if v, ok := m[key].(float64); ok {
		return int(v)
	}
	return 0
}
