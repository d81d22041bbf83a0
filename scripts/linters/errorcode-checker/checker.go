package main

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// declaredCode is one error code registered through MustNewCode or NewCode.
type declaredCode struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Package string `json:"package"`
	File    string `json:"file"`
	Line    int    `json:"line"`
}

// finding is one convention violation.
type finding struct {
	Kind string `json:"kind"`
	File string `json:"file"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// checker accumulates declarations and identifier references across the
// whole tree before judging anything, so cross-package use counts. Use is
// tracked by identifier name, which is as precise as parsing without type
// information allows.
type checker struct {
	cfg      *Config
	fset     *token.FileSet
	declared []declaredCode
	refs     map[string]int
	findings []finding
	patterns []*regexp.Regexp
}

// check walks every Go file under root, skipping excluded trees, and
// returns the declarations it found together with any violations.
func check(root string, cfg *Config) (*report, error) {
	c := &checker{
		cfg:  cfg,
		fset: token.NewFileSet(),
		refs: make(map[string]int),
	}
	for _, p := range cfg.ForbiddenPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("bad forbidden pattern %q: %w", p, err)
		}
		c.patterns = append(c.patterns, re)
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && c.excluded(root, path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || c.excluded(root, path) {
			return nil
		}
		return c.checkFile(root, path)
	})
	if err != nil {
		return nil, err
	}

	c.flagUnused()
	c.flagDuplicates()
	return &report{Declared: c.declared, Findings: c.findings}, nil
}

func (c *checker) excluded(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, prefix := range c.cfg.ExcludePaths {
		if strings.HasPrefix(rel+"/", strings.TrimSuffix(prefix, "/")+"/") {
			return true
		}
	}
	return false
}

func (c *checker) checkFile(root, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	file, err := parser.ParseFile(c.fset, path, src, parser.SkipObjectResolution)
	if err != nil {
		return fmt.Errorf("parse %s: %w", rel, err)
	}

	// Tests construct throwaway errors freely; only production files are
	// held to the forbidden patterns.
	if c.cfg.CheckForbidden && !strings.HasSuffix(path, "_test.go") {
		c.scanForbidden(rel, src)
	}

	c.collect(rel, file)
	return nil
}

// scanForbidden applies the configured patterns line by line, skipping
// comment lines so prose mentions do not count.
func (c *checker) scanForbidden(rel string, src []byte) {
	for i, line := range strings.Split(string(src), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "//") {
			continue
		}
		for _, re := range c.patterns {
			if re.MatchString(line) {
				c.findings = append(c.findings, finding{
					Kind: "forbidden",
					File: rel,
					Line: i + 1,
					Text: fmt.Sprintf("%s used instead of the errors package", re.String()),
				})
			}
		}
	}
}

// collect records registered codes and counts identifier references.
func (c *checker) collect(rel string, file *ast.File) {
	pkg := file.Name.Name

	ast.Inspect(file, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.ValueSpec:
			for i, value := range node.Values {
				code, ok := registeredCode(value)
				if !ok || i >= len(node.Names) {
					continue
				}
				name := node.Names[i]
				pos := c.fset.Position(name.Pos())
				c.declared = append(c.declared, declaredCode{
					Name:    name.Name,
					Value:   code,
					Package: pkg,
					File:    rel,
					Line:    pos.Line,
				})

				if c.cfg.CheckMismatched {
					if prefix, _, found := strings.Cut(code, "."); found && prefix != pkg {
						c.findings = append(c.findings, finding{
							Kind: "mismatched",
							File: rel,
							Line: pos.Line,
							Text: fmt.Sprintf("code %q belongs to package %q but is declared in package %q", code, prefix, pkg),
						})
					}
				}
			}
		case *ast.Ident:
			c.refs[node.Name]++
		}
		return true
	})
}

// registeredCode matches errors.MustNewCode("...") and errors.NewCode("...")
// initializers and returns the registered string.
func registeredCode(expr ast.Expr) (string, bool) {
	call, ok := expr.(*ast.CallExpr)
	if !ok || len(call.Args) == 0 {
		return "", false
	}
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return "", false
	}
	if sel.Sel.Name != "MustNewCode" && sel.Sel.Name != "NewCode" {
		return "", false
	}
	lit, ok := call.Args[0].(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return "", false
	}
	value, err := strconv.Unquote(lit.Value)
	if err != nil {
		return "", false
	}
	return value, true
}

// flagUnused reports codes whose only reference is their own declaration.
func (c *checker) flagUnused() {
	if !c.cfg.CheckUnused {
		return
	}
	for _, d := range c.declared {
		if c.refs[d.Name] <= 1 {
			c.findings = append(c.findings, finding{
				Kind: "unused",
				File: d.File,
				Line: d.Line,
				Text: fmt.Sprintf("code %s (%q) is declared but never used", d.Name, d.Value),
			})
		}
	}
}

// flagDuplicates reports code strings registered more than once.
func (c *checker) flagDuplicates() {
	if !c.cfg.CheckDuplicate {
		return
	}
	seen := make(map[string]declaredCode)
	for _, d := range c.declared {
		if prev, ok := seen[d.Value]; ok {
			c.findings = append(c.findings, finding{
				Kind: "duplicate",
				File: d.File,
				Line: d.Line,
				Text: fmt.Sprintf("code %q already registered at %s:%d", d.Value, prev.File, prev.Line),
			})
			continue
		}
		seen[d.Value] = d
	}
}
