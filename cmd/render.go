package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/glamour"

	"github.com/pharmadocs/dmsd/internal/exporter"
)

// printRendered writes text as-is, or glamour-rendered markdown when
// --pretty was requested. Its one caller prints a document's description
// (spec.md §4.8, SPEC_FULL.md §3 glamour wiring).
func printRendered(text string) {
	if !Pretty() {
		fmt.Fprintln(Out(), text)
		return
	}
	rendered, err := glamour.Render(text, "dark")
	if err != nil {
		fmt.Fprintln(Out(), text)
		return
	}
	fmt.Fprint(Out(), rendered)
}

// docxRenderer is the CLI's concrete exporter.Renderer. The HTML-to-DOCX
// translation is an external collaborator (spec.md §4.8); this passthrough
// wraps the HTML with the document's heading metadata so `dmsd version
// export` has something deployable before a real OOXML writer is plugged
// in.
type docxRenderer struct{}

func (docxRenderer) Render(_ context.Context, html string, meta exporter.Metadata) ([]byte, error) {
	header := fmt.Sprintf("<!-- %s %s (%s) -->\n", meta.DocumentNumber, meta.VersionString, meta.Status)
	return []byte(header + html), nil
}
