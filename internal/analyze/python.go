package analyze

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexaandru/go-sitter-forest/python"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// Vendored/virtualenv directories are never scanned.
var ignoredDirs = map[string]bool{
	"venv":         true,
	".tox":         true,
	"node_modules": true,
}

// Analyzer parses Python sources with tree-sitter and summarizes their
// structure. It is not safe for concurrent use; the pipeline processes
// commits sequentially.
type Analyzer struct {
	lang *sitter.Language
}

// New creates an Analyzer with the Python grammar loaded.
func New() *Analyzer {
	return &Analyzer{lang: sitter.NewLanguage(python.GetLanguage())}
}

// AnalyzeTree walks root and produces the structural document covering
// every .py file under it.
func (a *Analyzer) AnalyzeTree(ctx context.Context, root string) (*Document, error) {
	doc := &Document{Files: map[string]FileSummary{}}

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if ignoredDirs[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".py") {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		src, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		doc.Files[filepath.ToSlash(rel)] = a.analyzeFile(ctx, src)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, f := range doc.Files {
		doc.Summary.FileCount++
		doc.Summary.LOC += f.LOC
	}
	return doc, nil
}

func (a *Analyzer) analyzeFile(ctx context.Context, src []byte) FileSummary {
	sum := FileSummary{LOC: countNonBlank(src)}

	parser := sitter.NewParser()
	parser.SetLanguage(a.lang)

	tree, err := parser.ParseString(ctx, nil, src)
	if err != nil {
		sum.Error = err.Error()
		return sum
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		sum.Error = "no parse tree produced"
		return sum
	}

	sum.Functions = []Function{}
	sum.Classes = []Class{}
	sum.Imports = []Import{}
	sum.Calls = []Call{}
	walk(root, src, &sum)
	return sum
}

func walk(n sitter.Node, src []byte, sum *FileSummary) {
	switch n.Type() {
	case "function_definition":
		sum.Functions = append(sum.Functions, functionAt(n, src))
	case "class_definition":
		if name := childIdentifier(n, src); name != "" {
			sum.Classes = append(sum.Classes, Class{Name: name, Line: line(n)})
		}
	case "import_statement", "import_from_statement":
		sum.Imports = append(sum.Imports, importsAt(n, src)...)
	case "call":
		if target := callTarget(n, src); target != "" {
			sum.Calls = append(sum.Calls, Call{Target: target, Line: line(n)})
		}
	}

	for i := range n.NamedChildCount() {
		walk(n.NamedChild(i), src, sum)
	}
}

func functionAt(n sitter.Node, src []byte) Function {
	fn := Function{
		Name:    childIdentifier(n, src),
		Line:    line(n),
		EndLine: int(n.EndPoint().Row) + 1,
		Args:    []string{},
	}

	for i := range n.NamedChildCount() {
		child := n.NamedChild(i)
		if child.Type() != "parameters" {
			continue
		}
		for j := range child.NamedChildCount() {
			param := child.NamedChild(j)
			switch param.Type() {
			case "identifier":
				fn.Args = append(fn.Args, nodeText(param, src))
			case "typed_parameter", "default_parameter", "typed_default_parameter",
				"list_splat_pattern", "dictionary_splat_pattern":
				if name := childIdentifier(param, src); name != "" {
					fn.Args = append(fn.Args, name)
				}
			}
		}
	}
	return fn
}

func importsAt(n sitter.Node, src []byte) []Import {
	ln := line(n)
	var out []Import

	if n.Type() == "import_statement" {
		for i := range n.NamedChildCount() {
			child := n.NamedChild(i)
			switch child.Type() {
			case "dotted_name":
				out = append(out, Import{Module: nodeText(child, src), Line: ln})
			case "aliased_import":
				if name := childDottedName(child, src); name != "" {
					out = append(out, Import{Module: name, Line: ln})
				}
			}
		}
		return out
	}

	// from X import a, b: the first dotted_name (or relative_import) is the
	// module, the remaining names are the imported symbols.
	base := ""
	for i := range n.NamedChildCount() {
		child := n.NamedChild(i)
		switch child.Type() {
		case "dotted_name", "relative_import":
			if base == "" {
				base = nodeText(child, src)
				continue
			}
			out = append(out, Import{Module: joinModule(base, nodeText(child, src)), Line: ln})
		case "aliased_import":
			if name := childDottedName(child, src); name != "" {
				out = append(out, Import{Module: joinModule(base, name), Line: ln})
			}
		case "wildcard_import":
			out = append(out, Import{Module: joinModule(base, "*"), Line: ln})
		}
	}
	return out
}

// callTarget resolves plain and dotted call targets; anything else
// (subscripts, lambdas, nested calls) is left out of the summary.
func callTarget(n sitter.Node, src []byte) string {
	if n.NamedChildCount() == 0 {
		return ""
	}
	fn := n.NamedChild(0)
	switch fn.Type() {
	case "identifier", "attribute":
		return nodeText(fn, src)
	}
	return ""
}

func childIdentifier(n sitter.Node, src []byte) string {
	for i := range n.NamedChildCount() {
		if child := n.NamedChild(i); child.Type() == "identifier" {
			return nodeText(child, src)
		}
	}
	return ""
}

func childDottedName(n sitter.Node, src []byte) string {
	for i := range n.NamedChildCount() {
		if child := n.NamedChild(i); child.Type() == "dotted_name" {
			return nodeText(child, src)
		}
	}
	return ""
}

func joinModule(base, name string) string {
	base = strings.Trim(base, ".")
	if base == "" {
		return name
	}
	return base + "." + name
}

func nodeText(n sitter.Node, src []byte) string {
	start, end := n.StartByte(), n.EndByte()
	if start <= end && end <= uint(len(src)) {
		return string(src[start:end])
	}
	return ""
}

func line(n sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

func countNonBlank(src []byte) int {
	count := 0
	for _, ln := range bytes.Split(src, []byte{'\n'}) {
		if len(bytes.TrimSpace(ln)) > 0 {
			count++
		}
	}
	return count
}
