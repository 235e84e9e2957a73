// Command sqllint checks that every SQL string constant starts with a
// "--sql <uuid>" marker line and that no marker is reused. The postgres
// runner refuses queries without a marker, so this catches them before
// they reach a database.
package main

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	sqlKeywords = regexp.MustCompile(`(?i)^\s*(--[^\n]*\n\s*)?(select|insert|update|delete|with)\b`)
	// statementShape is stricter than sqlKeywords so messages such as
	// "delete task failed" passed to calls are not mistaken for SQL.
	statementShape = regexp.MustCompile(`(?is)^\s*(--[^\n]*\n\s*)?(select\s.+\sfrom\s|insert\s+into\s|update\s+\w+\s+set\s|delete\s+from\s|with\s+\w+\s+as\s)`)
	markerPattern  = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

type finding struct {
	pos     token.Position
	name    string
	message string
}

func (f finding) String() string {
	return fmt.Sprintf("%s:%d %s (%s)", f.pos.Filename, f.pos.Line, f.message, f.name)
}

// query is one SQL constant found in the source tree.
type query struct {
	pos    token.Position
	name   string
	marker string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(targets []string, stderr io.Writer) int {
	if len(targets) == 0 {
		targets = []string{"internal/sqlinline"}
	}
	files, err := collect(targets)
	if err != nil {
		fmt.Fprintf(stderr, "sqllint: %v\n", err)
		return 2
	}
	findings, err := lint(files)
	if err != nil {
		fmt.Fprintf(stderr, "sqllint: %v\n", err)
		return 2
	}
	if len(findings) == 0 {
		return 0
	}
	fmt.Fprintf(stderr, "sqllint: %d problem(s)\n", len(findings))
	for _, f := range findings {
		fmt.Fprintf(stderr, "  %s\n", f)
	}
	return 1
}

func collect(targets []string) ([]string, error) {
	var files []string
	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if filepath.Ext(target) == ".go" {
				files = append(files, target)
			}
			continue
		}
		err = filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != target && (strings.HasPrefix(d.Name(), ".") || strings.HasPrefix(d.Name(), "_") || d.Name() == "vendor") {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) == ".go" && !strings.HasSuffix(path, "_test.go") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

// lint reports constants with a missing or malformed marker and markers
// shared by more than one constant.
func lint(files []string) ([]finding, error) {
	fset := token.NewFileSet()
	var (
		findings []finding
		seen     = map[string]query{}
	)
	for _, path := range files {
		queries, bad, err := scanFile(fset, path)
		if err != nil {
			return nil, err
		}
		findings = append(findings, bad...)
		for _, q := range queries {
			if first, dup := seen[q.marker]; dup {
				findings = append(findings, finding{
					pos:     q.pos,
					name:    q.name,
					message: fmt.Sprintf("marker already used by %s at %s:%d", first.name, first.pos.Filename, first.pos.Line),
				})
				continue
			}
			seen[q.marker] = q
		}
	}
	return findings, nil
}

func scanFile(fset *token.FileSet, path string) ([]query, []finding, error) {
	file, err := parser.ParseFile(fset, path, nil, 0)
	if err != nil {
		return nil, nil, err
	}
	var (
		queries  []query
		findings []finding
	)
	ast.Inspect(file, func(n ast.Node) bool {
		if call, ok := n.(*ast.CallExpr); ok {
			for _, arg := range call.Args {
				if _, ok := sqlLiteral(arg); ok {
					findings = append(findings, finding{
						pos:     fset.Position(arg.Pos()),
						name:    callName(call),
						message: "inline SQL argument, use a marked sqlinline constant",
					})
				}
			}
			return true
		}
		vs, ok := n.(*ast.ValueSpec)
		if !ok {
			return true
		}
		for i, value := range vs.Values {
			lit, ok := value.(*ast.BasicLit)
			if !ok || lit.Kind != token.STRING {
				continue
			}
			text, err := unquote(lit.Value)
			if err != nil || !sqlKeywords.MatchString(text) {
				continue
			}
			name := "_"
			if i < len(vs.Names) {
				name = vs.Names[i].Name
			}
			pos := fset.Position(lit.Pos())
			marker := firstLine(text)
			if !markerPattern.MatchString(marker) {
				findings = append(findings, finding{pos: pos, name: name, message: "missing or invalid --sql <uuid> marker"})
				continue
			}
			queries = append(queries, query{pos: pos, name: name, marker: marker})
		}
		return true
	})
	return queries, findings, nil
}

// sqlLiteral reports whether expr is a string literal holding a statement.
func sqlLiteral(expr ast.Expr) (string, bool) {
	lit, ok := expr.(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return "", false
	}
	text, err := unquote(lit.Value)
	if err != nil || !statementShape.MatchString(text) {
		return "", false
	}
	return text, true
}

func callName(call *ast.CallExpr) string {
	switch fn := call.Fun.(type) {
	case *ast.SelectorExpr:
		return fn.Sel.Name
	case *ast.Ident:
		return fn.Name
	default:
		return "call"
	}
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, "\n\r \t")
	head, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(head)
}

func unquote(v string) (string, error) {
	if strings.HasPrefix(v, "`") {
		return strings.Trim(v, "`"), nil
	}
	return strconv.Unquote(v)
}
