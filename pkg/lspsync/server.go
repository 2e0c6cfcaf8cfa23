package lspsync

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/Sumatoshi-tech/lineindex/pkg/document"
	"github.com/Sumatoshi-tech/lineindex/pkg/linetree"
)

const serverName = "lineindex"

// Server is a text synchronization language server. Hover shows the index entry of the
// hovered line and diagnostics report lines whose ending differs from the dominant one.
type Server struct {
	workspace *Workspace
	handler   protocol.Handler
	logger    *slog.Logger
	version   string
}

// NewServer creates a server over workspace.
func NewServer(workspace *Workspace, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	srv := &Server{workspace: workspace, logger: logger, version: version}

	srv.handler = protocol.Handler{
		Initialize:            srv.initialize,
		Initialized:           srv.initialized,
		Shutdown:              srv.shutdown,
		SetTrace:              srv.setTrace,
		TextDocumentDidOpen:   srv.didOpen,
		TextDocumentDidChange: srv.didChange,
		TextDocumentDidSave:   srv.didSave,
		TextDocumentDidClose:  srv.didClose,
		TextDocumentHover:     srv.hover,
	}

	return srv
}

// Run serves the protocol on stdio until the client disconnects.
func (srv *Server) Run() error {
	lspServer := server.NewServer(&srv.handler, serverName, false)

	err := lspServer.RunStdio()
	if err != nil {
		return fmt.Errorf("lsp server: %w", err)
	}

	return nil
}

func (srv *Server) initialize(_ *glsp.Context, _ *protocol.InitializeParams) (any, error) {
	capabilities := srv.handler.CreateServerCapabilities()

	openClose := true
	change := protocol.TextDocumentSyncKindIncremental
	capabilities.TextDocumentSync = protocol.TextDocumentSyncOptions{
		OpenClose: &openClose,
		Change:    &change,
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &srv.version,
		},
	}, nil
}

func (srv *Server) initialized(_ *glsp.Context, _ *protocol.InitializedParams) error {
	return nil
}

func (srv *Server) shutdown(_ *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)

	return nil
}

func (srv *Server) setTrace(_ *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)

	return nil
}

func (srv *Server) didOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI

	if err := srv.workspace.Open(uri, params.TextDocument.Text, params.TextDocument.Version); err != nil {
		return err
	}

	srv.logger.Debug("document opened", "uri", uri)
	srv.publishDiagnostics(ctx, uri)

	return nil
}

func (srv *Server) didChange(_ *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	edits, err := srv.workspace.Change(uri, params.TextDocument.Version, params.ContentChanges)
	if err != nil {
		srv.logger.Warn("content change rejected", "uri", uri, "error", err)

		return err
	}

	touched := 0
	for _, edit := range edits {
		touched += len(edit.Lines.Inserted) + len(edit.Lines.Edited) + len(edit.Lines.Removed)
	}

	srv.logger.Debug("document changed", "uri", uri, "events", len(edits), "lines", touched)

	return nil
}

func (srv *Server) didSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	srv.publishDiagnostics(ctx, params.TextDocument.URI)

	return nil
}

func (srv *Server) didClose(_ *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	srv.workspace.Close(params.TextDocument.URI)

	return nil
}

func (srv *Server) hover(_ *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	var hover *protocol.Hover

	err := srv.workspace.With(params.TextDocument.URI, func(doc *document.Document, _ int32) error {
		h, err := Describe(doc, params.Position)
		hover = h

		return err
	})
	if errors.Is(err, ErrUnknownDocument) {
		return nil, nil //nolint:nilnil // LSP protocol expects nil hover when no document found.
	}

	return hover, err
}

// Describe builds the hover of the line under pos.
func Describe(doc *document.Document, pos protocol.Position) (*protocol.Hover, error) {
	ix := doc.Index()

	offset, err := OffsetAt(ix, pos)
	if err != nil {
		return nil, err
	}

	line, err := ix.LineContainingOffset(offset)
	if err != nil {
		return nil, err
	}

	b, err := ix.ByteOffset(offset)
	if err != nil {
		b = -1
	}

	rng, err := RangeOf(ix, line.Start, line.Content)
	if err != nil {
		return nil, err
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind: protocol.MarkupKindMarkdown,
			Value: fmt.Sprintf("line %d: offset %d, byte %d, length %d, ending `%s`",
				line.Row+1, offset, b, line.TotalLength(), line.Delimiter),
		},
		Range: &rng,
	}, nil
}

// Diagnostics reports the first lines whose delimiter differs from the detected line ending.
func Diagnostics(doc *document.Document, limit int) []protocol.Diagnostic {
	ix := doc.Index()

	dominant, ok := ix.DetectLineEnding()
	if !ok {
		return []protocol.Diagnostic{}
	}

	severity := protocol.DiagnosticSeverityInformation
	source := serverName
	diagnostics := []protocol.Diagnostic{}

	for line := range ix.Lines() {
		if len(diagnostics) >= limit {
			break
		}

		if line.Delimiter == linetree.None || line.Delimiter == dominant {
			continue
		}

		rng, err := RangeOf(ix, line.ContentEnd(), line.Delimiter.Len())
		if err != nil {
			continue
		}

		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    rng,
			Severity: &severity,
			Source:   &source,
			Message:  fmt.Sprintf("line ends with `%s`, document uses `%s`", line.Delimiter, dominant),
		})
	}

	return diagnostics
}

const maxDiagnostics = 100

func (srv *Server) publishDiagnostics(ctx *glsp.Context, uri string) {
	var diagnostics []protocol.Diagnostic

	err := srv.workspace.With(uri, func(doc *document.Document, _ int32) error {
		diagnostics = Diagnostics(doc, maxDiagnostics)

		return nil
	})
	if err != nil {
		return
	}

	ctx.Notify("textDocument/publishDiagnostics", &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}
