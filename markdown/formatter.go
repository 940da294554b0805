// Package markdown renders extraction reports as GitHub-flavored Markdown.
package markdown

import (
	"io"
	"strconv"
	"strings"

	"github.com/fwojciec/furnitron"
	"github.com/fwojciec/furnitron/crawl"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// Ensure Formatter implements furnitron.ReportFormatter at compile time.
var _ furnitron.ReportFormatter = (*Formatter)(nil)

// Formatter writes a report as a Markdown document: a run summary, an
// outcome chart, the names found on each page and a table of skipped pages.
type Formatter struct {
	// MaxURLLen truncates URLs in tables. Zero keeps them whole.
	MaxURLLen int
}

// NewFormatter returns a Formatter with default settings.
func NewFormatter() *Formatter {
	return &Formatter{MaxURLLen: 80}
}

// FormatReport writes report to w.
func (f *Formatter) FormatReport(w io.Writer, report *furnitron.Report) error {
	md := markdown.NewMarkdown(w)

	f.writeSummary(md, report)
	f.writeNames(md, report)
	f.writeSkipped(md, report)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by furnitron in %s*", crawl.FormatDuration(report.Duration()))

	return md.Build()
}

func (f *Formatter) writeSummary(md *markdown.Markdown, report *furnitron.Report) {
	succeeded := report.Count(furnitron.OutcomeSucceeded)
	degraded := report.Count(furnitron.OutcomeDegraded)
	skipped := report.Count(furnitron.OutcomeSkipped)

	names := 0
	for _, u := range report.URLs {
		names += len(u.Names)
	}

	md.H1("Product Names")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + report.ID + "`"},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", crawl.FormatDuration(report.Duration())},
			{"URLs", strconv.Itoa(len(report.URLs))},
			{"Succeeded", strconv.Itoa(succeeded)},
			{"Degraded", strconv.Itoa(degraded)},
			{"Skipped", strconv.Itoa(skipped)},
			{"**Names**", "**" + strconv.Itoa(names) + "**"},
		},
	})
	md.PlainText("")

	if len(report.URLs) > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("URL Outcomes"),
			piechart.WithShowData(true),
		)
		for _, o := range []struct {
			label string
			n     int
		}{
			{"Succeeded", succeeded},
			{"Degraded", degraded},
			{"Skipped", skipped},
		} {
			if o.n > 0 {
				chart.LabelAndIntValue(o.label, uint64(o.n))
			}
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case degraded > 0:
		md.Warningf("The classifier was unavailable for %d page(s). Their unlabeled candidates are listed for review.", degraded)
		md.PlainText("")
	case skipped > 0:
		md.Note("Some pages could not be rendered. See Skipped Pages below.")
		md.PlainText("")
	}
}

func (f *Formatter) writeNames(md *markdown.Markdown, report *furnitron.Report) {
	md.H2("Names by Page")
	md.PlainText("")

	found := false
	for _, u := range report.URLs {
		if len(u.Names) == 0 && len(u.Degraded) == 0 {
			continue
		}
		found = true

		md.H3(u.URL)
		md.PlainText("")
		if len(u.Names) > 0 {
			md.BulletList(u.Names...)
			md.PlainText("")
		}
		if len(u.Degraded) > 0 {
			md.Details("Unclassified candidates ("+strconv.Itoa(len(u.Degraded))+")", strings.Join(u.Degraded, "\n"))
			md.PlainText("")
		}
	}
	if !found {
		md.PlainText("No product names found.")
		md.PlainText("")
	}
}

func (f *Formatter) writeSkipped(md *markdown.Markdown, report *furnitron.Report) {
	var rows [][]string
	for _, u := range report.URLs {
		if u.Outcome != furnitron.OutcomeSkipped {
			continue
		}
		reason := u.Error
		if reason == "" {
			reason = "-"
		}
		rows = append(rows, []string{
			f.truncate(u.URL),
			u.Reason,
			strconv.Itoa(u.Attempts),
			reason,
		})
	}
	if len(rows) == 0 {
		return
	}

	md.H2("Skipped Pages")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Reason", "Attempts", "Last Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (f *Formatter) truncate(url string) string {
	if f.MaxURLLen <= 0 {
		return url
	}
	return crawl.TruncateURL(url, f.MaxURLLen)
}
