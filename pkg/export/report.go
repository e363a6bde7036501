package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"skinscraper/pkg/analysis"
	"skinscraper/pkg/classify"
)

// maxReportTags caps the tag table in the report
const maxReportTags = 20

// Report is the input of the Markdown analysis report
type Report struct {
	Title          string
	GeneratedAt    time.Time
	ImageDir       string
	TagMapPath     string
	TopN           int
	Order          classify.Order
	Classification *classify.Result
	Stats          []analysis.Stats
	Artifacts      []string
}

// WriteReport renders the report as Markdown
func WriteReport(w io.Writer, r Report) error {
	md := markdown.NewMarkdown(w)

	title := r.Title
	if title == "" {
		title = "Skin Analysis Report"
	}
	md.H1(title)
	md.PlainText("")

	writeOverview(md, r)
	writeTags(md, r)
	writeClasses(md, r)
	writeStats(md, r)

	if len(r.Artifacts) > 0 {
		md.H2("Artifacts")
		md.PlainText("")
		md.BulletList(r.Artifacts...)
		md.PlainText("")
	}

	return md.Build()
}

func writeOverview(md *markdown.Markdown, r Report) {
	generated := r.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	images := len(r.Stats)
	if r.Classification != nil && len(r.Classification.Assignments) > images {
		images = len(r.Classification.Assignments)
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Generated", generated.Format("2006-01-02 15:04:05 MST")},
			{"Image Directory", "`" + r.ImageDir + "`"},
			{"Tag Map", "`" + r.TagMapPath + "`"},
			{"Images", strconv.Itoa(images)},
		},
	})
	md.PlainText("")
}

func writeTags(md *markdown.Markdown, r Report) {
	md.H2("Top Tags")
	md.PlainText("")

	if r.Classification == nil || len(r.Classification.Frequencies) == 0 {
		md.PlainText("No tags recorded.")
		md.PlainText("")
		return
	}

	freq := r.Classification.Frequencies
	if len(freq) > maxReportTags {
		freq = freq[:maxReportTags]
	}
	rows := make([][]string, 0, len(freq))
	for i, tc := range freq {
		rows = append(rows, []string{strconv.Itoa(i + 1), tc.Tag, strconv.Itoa(tc.Count)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Rank", "Tag", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if n := len(r.Classification.Frequencies); n > maxReportTags {
		md.Note(fmt.Sprintf("%d more tags omitted, see frequencies.csv.", n-maxReportTags))
		md.PlainText("")
	}
}

func writeClasses(md *markdown.Markdown, r Report) {
	if r.Classification == nil {
		return
	}

	md.H2("Classes")
	md.PlainText("")
	md.PlainTextf("Top %d tags, targets ordered %s.", r.TopN, r.Order)
	md.PlainText("")

	counts := r.Classification.ClassCounts()
	names := r.Classification.TargetNames()
	rows := make([][]string, 0, len(names))
	for target, name := range names {
		rows = append(rows, []string{strconv.Itoa(target), name, strconv.Itoa(counts[name])})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Target", "Class", "Images"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writeStats(md *markdown.Markdown, r Report) {
	md.H2("Image Statistics")
	md.PlainText("")

	if len(r.Stats) == 0 {
		md.PlainText("No images analyzed.")
		md.PlainText("")
		return
	}

	s := analysis.Summarize(r.Stats)
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Images", strconv.Itoa(s.Count)},
			{"Mean Brightness", formatFloat(s.MeanBrightness)},
			{"Min Brightness", formatFloat(s.MinBrightness)},
			{"Max Brightness", formatFloat(s.MaxBrightness)},
			{"Mean Variance", formatFloat(s.MeanVariance)},
			{"Mean Hue", formatFloat(s.MeanHue)},
		},
	})
	md.PlainText("")
}
