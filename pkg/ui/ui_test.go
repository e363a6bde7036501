package ui

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"skinscraper/pkg/crawler"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetQuiet(false)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetQuiet(false)
	})
	return &buf
}

func TestColorsDroppedOffTerminal(t *testing.T) {
	buf := captureOutput(t)

	PrintSuccess("done")
	PrintInfo("Pages", "3")

	assert.Equal(t, "done\nPages: 3\n", buf.String())
	assert.NotContains(t, buf.String(), "\033[")
}

func TestQuietKeepsErrorsAndWarnings(t *testing.T) {
	buf := captureOutput(t)
	SetQuiet(true)

	PrintLogo()
	PrintSuccess("hidden")
	PrintHighlight("hidden")
	PrintWarning("careful")
	PrintError("failed", errors.New("boom"))

	assert.Equal(t, "careful\nfailed: boom\n", buf.String())
}

func TestCrawlProgressLines(t *testing.T) {
	buf := captureOutput(t)
	p := NewCrawlProgressTo(buf, false)

	p.PageStarted(1, 2, 3)
	p.Item(crawler.ItemEvent{Page: 1, Item: 1, Items: 3, Outcome: crawler.OutcomeSaved, Index: 0, ImageURL: "https://cdn/a.png"})
	p.Item(crawler.ItemEvent{Page: 1, Item: 2, Items: 3, Outcome: crawler.OutcomeDuplicate, ImageURL: "https://cdn/a.png"})
	p.Item(crawler.ItemEvent{Page: 1, Item: 3, Items: 3, Outcome: crawler.OutcomeSkipped, ProfileURL: "https://site/c", Err: errors.New("no image link")})

	out := buf.String()
	assert.Contains(t, out, "[PAGE 1/2]")
	assert.Contains(t, out, "[1:1/3] saved #0 https://cdn/a.png")
	assert.NotContains(t, out, "duplicate")
	assert.Contains(t, out, "[1:3/3] skipped https://site/c: no image link")

	saved, dups, skipped := p.Counts()
	assert.Equal(t, []int{1, 1, 1}, []int{saved, dups, skipped})
}

func TestCrawlProgressVerboseShowsDuplicates(t *testing.T) {
	buf := captureOutput(t)
	p := NewCrawlProgressTo(buf, true)

	p.Item(crawler.ItemEvent{Page: 2, Item: 1, Items: 1, Outcome: crawler.OutcomeDuplicate, ImageURL: "u"})
	assert.Contains(t, buf.String(), "[2:1/1] duplicate u")
}

func TestCrawlProgressFinished(t *testing.T) {
	buf := captureOutput(t)
	p := NewCrawlProgressTo(buf, false)

	res := &crawler.Result{
		Records:        []crawler.ImageRecord{{Index: 0}, {Index: 1}},
		PagesAttempted: 2,
	}
	p.Finished(res, errors.New("listing page 2 unreachable"))

	out := buf.String()
	assert.Contains(t, out, "obtained 2 images from 2 pages")
	assert.Contains(t, out, "[FAILED] listing page 2 unreachable")
}

func TestPageBar(t *testing.T) {
	assert.Equal(t, "["+strings.Repeat(ProgressEmpty, barWidth)+"]", pageBar(0, 4))
	assert.Equal(t, "["+strings.Repeat(ProgressBar, 10)+strings.Repeat(ProgressEmpty, 10)+"]", pageBar(2, 4))
	assert.Equal(t, "", pageBar(1, 0))
}

type recordingSender struct {
	titles   []string
	messages []string
}

func (r *recordingSender) Send(title, message string) error {
	r.titles = append(r.titles, title)
	r.messages = append(r.messages, message)
	return errors.New("no notification daemon")
}

func TestNotifierCrawlFinished(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifierWithSender(sender)

	res := &crawler.Result{Records: []crawler.ImageRecord{{}}, PagesAttempted: 1}
	n.CrawlFinished(res, nil)
	n.CrawlFinished(res, errors.New("boom"))

	assert.Equal(t, []string{"skinscraper: crawl complete", "skinscraper: crawl failed"}, sender.titles)
	assert.Equal(t, "obtained 1 images from 1 pages", sender.messages[0])
	assert.Contains(t, sender.messages[1], "boom")

	// a nil sender is a no-op
	NewNotifierWithSender(nil).CrawlFinished(nil, nil)
}
