// Package syntax keeps a tree-sitter tree in step with document edits.
package syntax

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"unsafe"

	golang "github.com/alexaandru/go-sitter-forest/go"
	"github.com/alexaandru/go-sitter-forest/json"
	"github.com/alexaandru/go-sitter-forest/yaml"
	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/lineindex/pkg/parseedit"
	"github.com/Sumatoshi-tech/lineindex/pkg/safeconv"
)

var (
	// ErrUnsupportedLanguage is returned for languages without a grammar.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrNoTree is returned when the parser produced no tree.
	ErrNoTree = errors.New("parser returned no tree")
)

var languageFuncs = map[string]func() unsafe.Pointer{
	"go":   golang.GetLanguage,
	"json": json.GetLanguage,
	"yaml": yaml.GetLanguage,
}

var extensions = map[string]string{
	".go":   "go",
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
}

var languageCache sync.Map

// LanguageFor returns the grammar name for path by its extension.
func LanguageFor(path string) (string, bool) {
	name, ok := extensions[strings.ToLower(filepath.Ext(path))]

	return name, ok
}

func language(name string) (*sitter.Language, error) {
	if cached, ok := languageCache.Load(name); ok {
		if lang, castOK := cached.(*sitter.Language); castOK {
			return lang, nil
		}
	}

	fn, ok := languageFuncs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, name)
	}

	lang := sitter.NewLanguage(fn())
	languageCache.Store(name, lang)

	return lang, nil
}

// Tree is a parsed source that is reparsed incrementally after each edit.
// It is not safe for concurrent use.
type Tree struct {
	parser *sitter.Parser
	tree   *sitter.Tree
}

// Parse parses src with the named grammar.
func Parse(ctx context.Context, name string, src []byte) (*Tree, error) {
	lang, err := language(name)
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseString(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	if tree == nil {
		return nil, ErrNoTree
	}

	return &Tree{parser: parser, tree: tree}, nil
}

// Edit tells the tree about edit and reparses src, the text after it.
func (t *Tree) Edit(ctx context.Context, edit parseedit.InputEdit, src []byte) error {
	t.tree.Edit(EditInput(edit))

	tree, err := t.parser.ParseString(ctx, t.tree, src)
	if err != nil {
		return fmt.Errorf("reparse: %w", err)
	}

	if tree == nil {
		return ErrNoTree
	}

	t.tree.Close()
	t.tree = tree

	return nil
}

// String returns the root node as an S-expression.
func (t *Tree) String() string {
	return t.tree.RootNode().String()
}

// HasError reports whether the source has syntax errors.
func (t *Tree) HasError() bool {
	return t.tree.RootNode().HasError()
}

// Close releases the tree. The parser is freed by its finalizer.
func (t *Tree) Close() {
	t.tree.Close()
}

// EditInput converts edit to tree-sitter coordinates.
func EditInput(edit parseedit.InputEdit) sitter.InputEdit {
	return sitter.InputEdit{
		StartIndex:  safeconv.MustIntToUint(edit.StartByte),
		OldEndIndex: safeconv.MustIntToUint(edit.OldEndByte),
		NewEndIndex: safeconv.MustIntToUint(edit.NewEndByte),
		StartPoint:  point(edit.StartPoint),
		OldEndPoint: point(edit.OldEndPoint),
		NewEndPoint: point(edit.NewEndPoint),
	}
}

func point(p parseedit.Point) sitter.Point {
	return sitter.Point{
		Row:    safeconv.MustIntToUint(p.Row),
		Column: safeconv.MustIntToUint(p.Column),
	}
}
