// Command sqllint checks that every inline SQL string constant starts with a
// "--sql <uuid>" audit marker and that no two statements share a marker.
package main

import (
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	sqlKeywordPattern = regexp.MustCompile(`(?i)^\s*(--sql[^\n]*\n\s*)?(select|insert|update|delete|with)\b`)
	uuidMarkerPattern = regexp.MustCompile(`^--sql ([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})$`)
)

type violation struct {
	file    string
	name    string
	line    int
	message string
}

func (v violation) String() string {
	return fmt.Sprintf("%s:%d %s (%s)", v.file, v.line, v.message, v.name)
}

type statement struct {
	file   string
	name   string
	line   int
	marker string
}

func main() {
	tests := flag.Bool("tests", false, "also lint _test.go files")
	flag.Parse()
	targets := flag.Args()
	if len(targets) == 0 {
		targets = []string{"."}
	}

	var files []string
	for _, target := range targets {
		found, err := goFiles(target, *tests)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sqllint: %v\n", err)
			os.Exit(1)
		}
		files = append(files, found...)
	}

	var stmts []statement
	var violations []violation
	for _, path := range files {
		ss, vs, err := lintFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sqllint: %v\n", err)
			os.Exit(1)
		}
		stmts = append(stmts, ss...)
		violations = append(violations, vs...)
	}
	violations = append(violations, duplicateMarkers(stmts)...)

	if report(os.Stderr, violations) {
		os.Exit(1)
	}
}

func goFiles(target string, tests bool) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	keep := func(path string) bool {
		return filepath.Ext(path) == ".go" && (tests || !strings.HasSuffix(path, "_test.go"))
	}
	if !info.IsDir() {
		if keep(target) {
			return []string{target}, nil
		}
		return nil, nil
	}
	var out []string
	err = filepath.WalkDir(target, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != target && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor" || name == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}
		if keep(path) {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}

func lintFile(path string) ([]statement, []violation, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return lintSource(path, src)
}

// lintSource inspects string constants and package-level string variables.
func lintSource(path string, src []byte) ([]statement, []violation, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, nil, err
	}
	var stmts []statement
	var violations []violation
	ast.Inspect(file, func(n ast.Node) bool {
		vs, ok := n.(*ast.ValueSpec)
		if !ok {
			return true
		}
		for i, value := range vs.Values {
			bl, ok := value.(*ast.BasicLit)
			if !ok || bl.Kind != token.STRING {
				continue
			}
			raw, err := unquote(bl.Value)
			if err != nil || !sqlKeywordPattern.MatchString(raw) {
				continue
			}
			name := "_"
			if i < len(vs.Names) {
				name = vs.Names[i].Name
			}
			line := fset.Position(bl.Pos()).Line
			m := uuidMarkerPattern.FindStringSubmatch(firstLine(raw))
			if m == nil {
				violations = append(violations, violation{
					file:    path,
					name:    name,
					line:    line,
					message: "missing or invalid --sql <uuid> marker",
				})
				continue
			}
			stmts = append(stmts, statement{file: path, name: name, line: line, marker: m[1]})
		}
		return true
	})
	return stmts, violations, nil
}

func duplicateMarkers(stmts []statement) []violation {
	byMarker := map[string][]statement{}
	for _, s := range stmts {
		byMarker[s.marker] = append(byMarker[s.marker], s)
	}
	var out []violation
	for marker, group := range byMarker {
		if len(group) < 2 {
			continue
		}
		for _, s := range group[1:] {
			out = append(out, violation{
				file:    s.file,
				name:    s.name,
				line:    s.line,
				message: fmt.Sprintf("marker %s already used by %s", marker, group[0].name),
			})
		}
	}
	return out
}

// report prints violations sorted by position and reports whether any exist.
func report(w io.Writer, violations []violation) bool {
	if len(violations) == 0 {
		return false
	}
	sort.Slice(violations, func(i, j int) bool {
		if violations[i].file != violations[j].file {
			return violations[i].file < violations[j].file
		}
		return violations[i].line < violations[j].line
	})
	fmt.Fprintln(w, "sqllint: SQL audit marker violations")
	for _, v := range violations {
		fmt.Fprintf(w, "  %s\n", v)
	}
	return true
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, "\n\r \t")
	if idx := strings.IndexAny(s, "\n\r"); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

func unquote(v string) (string, error) {
	if len(v) == 0 {
		return v, nil
	}
	if v[0] == '`' {
		return v[1 : len(v)-1], nil
	}
	return strconv.Unquote(v)
}
