package export

import (
	"fmt"
	stdhtml "html"
	"math"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"qacompare/domain/qa"
	"qacompare/internal/summary"
)

// MarkdownReport renders the run as markdown: the summary line followed by
// one table row per comparison.
func MarkdownReport(run *qa.RunRecord) string {
	var b strings.Builder
	title := run.Label
	if title == "" {
		title = "QA run " + run.ID.String()
	}
	fmt.Fprintf(&b, "# %s\n\n", escapeText(title))
	fmt.Fprintf(&b, "%s\n\n", summary.SummaryText(run.Combined))
	fmt.Fprintf(&b, "Run `%s`, %s\n\n", run.ID, run.CreatedAt.UTC().Format("2006-01-02 15:04:05 MST"))

	if len(run.Comparisons) == 0 {
		b.WriteString("No comparisons.\n")
		return b.String()
	}
	b.WriteString("| # | Histogram | p-Value | Verdict |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, c := range run.Comparisons {
		p := "n/a"
		if c.Tested && !math.IsNaN(c.PValue) {
			p = fmt.Sprintf("%.3f", c.PValue)
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", c.Seq, escapeText(c.Name), p, c.Verdict)
	}
	return b.String()
}

// RenderHTMLReport renders MarkdownReport as a complete HTML page. Names and
// labels come from input manifests, so raw HTML is never passed through.
func RenderHTMLReport(run *qa.RunRecord) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	title := run.Label
	if title == "" {
		title = "QA run " + run.ID.String()
	}
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage | html.SkipHTML,
		Title: stdhtml.EscapeString(title),
	})
	return markdown.ToHTML([]byte(MarkdownReport(run)), p, renderer)
}

// markdownEscaper turns characters with markdown or HTML meaning into
// backslash escapes, so they render as literal text.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"|", `\|`,
	"_", `\_`,
	"<", `\<`,
	">", `\>`,
	"&", `\&`,
)

func escapeText(s string) string {
	return markdownEscaper.Replace(s)
}
