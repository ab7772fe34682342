// Package analyze produces structural summaries of Python source trees.
package analyze

// Document is the structural-analysis artifact for one snapshot. Every file
// entry either carries the four sequence fields, or an error string; both
// shapes carry a non-blank line count.
type Document struct {
	Files   map[string]FileSummary `json:"files"`
	Summary Summary                `json:"summary"`
}

// Summary aggregates over all scanned files.
type Summary struct {
	FileCount int `json:"file_count"`
	LOC       int `json:"loc"`
}

// FileSummary is the per-file structural summary.
type FileSummary struct {
	Functions []Function `json:"functions,omitempty"`
	Classes   []Class    `json:"classes,omitempty"`
	Imports   []Import   `json:"imports,omitempty"`
	Calls     []Call     `json:"calls,omitempty"`
	Error     string     `json:"error,omitempty"`
	LOC       int        `json:"loc"`
}

// Function describes one function definition.
type Function struct {
	Name    string   `json:"name"`
	Line    int      `json:"lineno"`
	EndLine int      `json:"end_lineno"`
	Args    []string `json:"args"`
}

// Class describes one class definition.
type Class struct {
	Name string `json:"name"`
	Line int    `json:"lineno"`
}

// Import describes one imported module reference.
type Import struct {
	Module string `json:"module"`
	Line   int    `json:"lineno"`
}

// Call describes one resolved call site.
type Call struct {
	Target string `json:"target"`
	Line   int    `json:"lineno"`
}
