package lspsync

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Sumatoshi-tech/lineindex/pkg/document"
	"github.com/Sumatoshi-tech/lineindex/pkg/lineindex"
)

// ErrUnknownDocument is returned for URIs that were not opened.
var ErrUnknownDocument = errors.New("document not open")

type entry struct {
	doc     *document.Document
	version int32
}

// Workspace is a thread-safe set of open documents keyed by URI.
type Workspace struct {
	documents map[string]*entry
	opts      lineindex.Options
	mu        sync.Mutex
}

// NewWorkspace creates an empty workspace indexing documents with opts.
func NewWorkspace(opts lineindex.Options) *Workspace {
	return &Workspace{
		documents: make(map[string]*entry),
		opts:      opts,
	}
}

// Open indexes text under uri, replacing any previous document.
func (ws *Workspace) Open(uri, text string, version int32) error {
	doc, err := document.New(text, ws.opts)
	if err != nil {
		return err
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()

	ws.documents[uri] = &entry{doc: doc, version: version}

	return nil
}

// Change applies content change events in order and records the new version.
func (ws *Workspace) Change(uri string, version int32, changes []any) ([]document.Edit, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	e, ok := ws.documents[uri]
	if !ok {
		return nil, fmt.Errorf("%s: %w", uri, ErrUnknownDocument)
	}

	edits := make([]document.Edit, 0, len(changes))

	for i, change := range changes {
		edit, err := Apply(e.doc, change)
		if err != nil {
			return edits, fmt.Errorf("%s change %d: %w", uri, i, err)
		}

		edits = append(edits, edit)
	}

	e.version = version

	return edits, nil
}

// Close forgets a document.
func (ws *Workspace) Close(uri string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	delete(ws.documents, uri)
}

// With runs fn with exclusive access to the document under uri.
func (ws *Workspace) With(uri string, fn func(doc *document.Document, version int32) error) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	e, ok := ws.documents[uri]
	if !ok {
		return fmt.Errorf("%s: %w", uri, ErrUnknownDocument)
	}

	return fn(e.doc, e.version)
}

// Len returns the number of open documents.
func (ws *Workspace) Len() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	return len(ws.documents)
}
