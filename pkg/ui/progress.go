package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"skinscraper/pkg/crawler"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// CrawlProgress prints one line per processed item and the final summary
type CrawlProgress struct {
	mu        sync.Mutex
	out       io.Writer
	verbose   bool
	startTime time.Time

	page, pages int
	saved       int
	duplicates  int
	skipped     int
}

// NewCrawlProgress creates a progress printer writing to the terminal output.
// Duplicates are only printed when verbose is set.
func NewCrawlProgress(verbose bool) *CrawlProgress {
	return NewCrawlProgressTo(Output(), verbose)
}

// NewCrawlProgressTo creates a progress printer writing to w
func NewCrawlProgressTo(w io.Writer, verbose bool) *CrawlProgress {
	return &CrawlProgress{
		out:       w,
		verbose:   verbose,
		startTime: time.Now(),
	}
}

// PageStarted prints the page header with a bar over all pages
func (p *CrawlProgress) PageStarted(page, pages, items int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.page, p.pages = page, pages
	if Quiet() {
		return
	}
	fmt.Fprintf(p.out, "\n%s %s %d profiles\n",
		Magenta(fmt.Sprintf("[PAGE %d/%d]", page, pages)),
		Dim(pageBar(page-1, pages)),
		items)
}

// Item prints the outcome of one profile reference
func (p *CrawlProgress) Item(ev crawler.ItemEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var line string
	prefix := fmt.Sprintf("[%d:%d/%d]", ev.Page, ev.Item, ev.Items)

	switch ev.Outcome {
	case crawler.OutcomeSaved:
		p.saved++
		line = fmt.Sprintf("%s %s #%d %s", prefix, Green("saved"), ev.Index, ev.ImageURL)
	case crawler.OutcomeDuplicate:
		p.duplicates++
		if !p.verbose {
			return
		}
		line = fmt.Sprintf("%s %s %s", prefix, Dim("duplicate"), ev.ImageURL)
	case crawler.OutcomeTagsFailed:
		line = fmt.Sprintf("%s %s %s: %v", prefix, Yellow("no tags"), ev.ProfileURL, ev.Err)
	case crawler.OutcomeSkipped:
		p.skipped++
		line = fmt.Sprintf("%s %s %s: %v", prefix, Red("skipped"), ev.ProfileURL, ev.Err)
	default:
		line = fmt.Sprintf("%s %s %s", prefix, ev.Outcome, ev.ProfileURL)
	}

	if Quiet() && ev.Outcome != crawler.OutcomeSkipped {
		return
	}
	fmt.Fprintln(p.out, line)
}

// Finished prints the summary line and, on failure, the fatal error
func (p *CrawlProgress) Finished(res *crawler.Result, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if res != nil {
		fmt.Fprintf(p.out, "\n%s %s\n", Green("[DONE]"), res.Summary())
		if !Quiet() {
			fmt.Fprintf(p.out, "%s duplicates %d | skipped %d | elapsed %s | %.1f images/min\n",
				Dim("  "), res.Duplicates, res.Skipped, p.elapsed().Round(time.Second), p.rate())
		}
	}
	if err != nil {
		fmt.Fprintf(p.out, "%s %v\n", Red("[FAILED]"), err)
	}
}

// Counts returns saved, duplicate and skipped totals seen so far
func (p *CrawlProgress) Counts() (saved, duplicates, skipped int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saved, p.duplicates, p.skipped
}

func (p *CrawlProgress) elapsed() time.Duration {
	return time.Since(p.startTime)
}

// rate returns saved images per minute
func (p *CrawlProgress) rate() float64 {
	minutes := p.elapsed().Minutes()
	if minutes == 0 {
		return 0
	}
	return float64(p.saved) / minutes
}

func pageBar(done, total int) string {
	if total <= 0 {
		return ""
	}
	filled := done * barWidth / total
	if filled > barWidth {
		filled = barWidth
	}
	return "[" + strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, barWidth-filled) + "]"
}
