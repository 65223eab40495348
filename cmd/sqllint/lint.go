package main

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	sqlKeywordPattern = regexp.MustCompile(`(?i)\b(select|insert|update|delete|with)\b`)
	uuidMarkerPattern = regexp.MustCompile(`^--sql ([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})$`)
)

type violation struct {
	file    string
	name    string
	line    int
	message string
}

type markerSite struct {
	file string
	name string
	line int
}

// linter accumulates findings across files so duplicate markers are
// reported even when they live in different packages.
type linter struct {
	found []violation
	seen  map[string]markerSite
}

func newLinter() *linter {
	return &linter{seen: map[string]markerSite{}}
}

func (l *linter) lintFile(path string) error {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		return err
	}
	return l.lintAST(fset, path, file)
}

func (l *linter) lintSource(path, src string) error {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if err != nil {
		return err
	}
	return l.lintAST(fset, path, file)
}

func (l *linter) lintAST(fset *token.FileSet, path string, file *ast.File) error {
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
			site := markerSite{file: path, line: fset.Position(bl.Pos()).Line, name: specName(vs, i)}
			m := uuidMarkerPattern.FindStringSubmatch(firstLine(raw))
			if m == nil {
				l.report(site, "missing or invalid --sql <uuid> marker")
				continue
			}
			if prev, dup := l.seen[m[1]]; dup {
				l.report(site, fmt.Sprintf("marker %s already used by %s at %s:%d", m[1], prev.name, prev.file, prev.line))
				continue
			}
			l.seen[m[1]] = site
		}
		return true
	})
	return nil
}

func (l *linter) report(site markerSite, msg string) {
	l.found = append(l.found, violation{file: site.file, name: site.name, line: site.line, message: msg})
}

func (l *linter) violations() []violation {
	out := append([]violation(nil), l.found...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].file != out[j].file {
			return out[i].file < out[j].file
		}
		return out[i].line < out[j].line
	})
	return out
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

func specName(vs *ast.ValueSpec, i int) string {
	if i < len(vs.Names) && vs.Names[i] != nil {
		return vs.Names[i].Name
	}
	return "?"
}
