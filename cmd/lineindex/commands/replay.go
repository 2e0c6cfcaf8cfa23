package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Sumatoshi-tech/lineindex/pkg/document"
	"github.com/Sumatoshi-tech/lineindex/pkg/replay"
	"github.com/Sumatoshi-tech/lineindex/pkg/syntax"
)

// Errors returned by replay.
var (
	ErrUnknownMode    = errors.New("unknown diff mode (use chars or lines)")
	ErrSyntaxMismatch = errors.New("incrementally parsed tree differs from a fresh parse")
)

func newReplayCommand(app *App) *cobra.Command {
	var (
		mode      string
		useSyntax bool
	)

	cmd := &cobra.Command{
		Use:   "replay <old> <new>",
		Short: "Replay the diff between two files as incremental edits",
		Long: `Index <old>, apply the diff to <new> edit by edit and check the result against a fresh index.
With --syntax, a tree-sitter tree for Go, JSON or YAML is reparsed after every edit and compared
with a fresh parse of <new>.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var diffMode replay.Mode

			switch mode {
			case "chars":
				diffMode = replay.ModeChars
			case "lines":
				diffMode = replay.ModeLines
			default:
				return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
			}

			return app.traced(cmd, func(ctx context.Context) error {
				return app.replay(ctx, cmd, args[0], args[1], diffMode, useSyntax)
			}, attribute.String("old", args[0]), attribute.String("new", args[1]))
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "chars", "diff granularity: chars, lines")
	cmd.Flags().BoolVar(&useSyntax, "syntax", false, "reparse a syntax tree after every edit")

	return cmd
}

func (a *App) replay(ctx context.Context, cmd *cobra.Command, oldPath, newPath string, mode replay.Mode, useSyntax bool) error {
	oldText, err := a.readText(oldPath)
	if err != nil {
		return err
	}

	newText, err := a.readText(newPath)
	if err != nil {
		return err
	}

	doc, err := document.New(oldText, a.indexOptions())
	if err != nil {
		return err
	}

	var observers []replay.Observer

	var tree *syntax.Tree

	if useSyntax {
		lang, ok := syntax.LanguageFor(newPath)
		if !ok {
			return fmt.Errorf("%w: %s", syntax.ErrUnsupportedLanguage, newPath)
		}

		tree, err = syntax.Parse(ctx, lang, []byte(oldText))
		if err != nil {
			return err
		}
		defer tree.Close()

		observers = append(observers, func(edit document.Edit) error {
			return tree.Edit(ctx, edit.Input, []byte(doc.Text()))
		})
	}

	edits := replay.Edits(oldText, newText, mode)

	stats, err := replay.Apply(doc, edits, observers...)
	if err != nil {
		return err
	}

	if err = replay.Verify(doc); err != nil {
		return err
	}

	if doc.Text() != newText {
		return fmt.Errorf("%w: replayed text differs from %s", replay.ErrMismatch, newPath)
	}

	if tree != nil {
		if err = compareSyntax(ctx, tree, newPath, newText); err != nil {
			return err
		}
	}

	a.providers.Logger.DebugContext(ctx, "replay verified", "edits", stats.Edits, "lines", doc.Index().LineCount())

	tbl := table.NewWriter()
	tbl.SetOutputMirror(cmd.OutOrStdout())
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Edits", "Inserted", "Removed", "Edited", "Lines", "Verified"})
	tbl.AppendRow(table.Row{stats.Edits, stats.Inserted, stats.Removed, stats.Edited, doc.Index().LineCount(), "yes"})
	tbl.Render()

	return nil
}

func compareSyntax(ctx context.Context, tree *syntax.Tree, path, text string) error {
	lang, _ := syntax.LanguageFor(path)

	fresh, err := syntax.Parse(ctx, lang, []byte(text))
	if err != nil {
		return err
	}
	defer fresh.Close()

	if fresh.String() != tree.String() {
		return ErrSyntaxMismatch
	}

	return nil
}
