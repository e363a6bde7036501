package crawler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	errs "skinscraper/pkg/errors"
)

// Request describes one crawl
type Request struct {
	BaseURL    string
	Pages      int
	SearchTerm string
	Resume     bool
}

// Validate checks the request before any network activity
func (r Request) Validate() error {
	if r.BaseURL == "" {
		return errs.NewConfigurationError("base URL must not be empty")
	}
	if !strings.HasSuffix(r.BaseURL, "/") {
		return errs.NewConfigurationError("base URL %q must end with '/'", r.BaseURL)
	}
	if r.Pages <= 0 {
		return errs.NewConfigurationError("page count must be a positive integer, got %d", r.Pages)
	}
	return nil
}

// ListingRoot returns the URL listing pages are numbered under
func ListingRoot(baseURL, searchTerm string) string {
	if searchTerm == "" {
		return baseURL
	}
	return baseURL + "search/skin/" + searchTerm + "/"
}

// PageURL returns the URL of a 1-based listing page
func PageURL(root string, page int) string {
	return root + strconv.Itoa(page)
}

// ImageRecord is one downloaded, deduplicated image
type ImageRecord struct {
	Index      int      `json:"index"`
	SourceURL  string   `json:"source_url"`
	ProfileURL string   `json:"profile_url"`
	Page       int      `json:"page"`
	Tags       []string `json:"tags"`
	Path       string   `json:"path"`
}

// Result accumulates the outcome of a crawl. It is returned even when the crawl aborts.
type Result struct {
	ListingRoot    string
	Records        []ImageRecord
	Errors         []error
	Duplicates     int
	Skipped        int
	TagFailures    int
	PagesAttempted int
	PagesCompleted int
	StartPage      int
	Resumed        bool
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Summary is the final line shown to the user
func (r *Result) Summary() string {
	return fmt.Sprintf("obtained %d images from %d pages", len(r.Records), r.PagesAttempted)
}

// Outcome is what happened to one profile reference
type Outcome string

const (
	OutcomeSaved      Outcome = "saved"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeTagsFailed Outcome = "tags_failed"
)

// ItemEvent reports progress on one profile reference
type ItemEvent struct {
	Page       int
	Item       int
	Items      int
	ProfileURL string
	ImageURL   string
	Index      int
	Outcome    Outcome
	Err        error
}

// Progress receives per-page and per-item updates
type Progress interface {
	PageStarted(page, pages, items int)
	Item(ev ItemEvent)
	Finished(res *Result, err error)
}

type nopProgress struct{}

func (nopProgress) PageStarted(int, int, int) {}
func (nopProgress) Item(ItemEvent)            {}
func (nopProgress) Finished(*Result, error)   {}

// RunInfo describes a run for the crawl history
type RunInfo struct {
	ListingRoot string
	BaseURL     string
	SearchTerm  string
	Pages       int
	Resumed     bool
	StartedAt   time.Time
}

// Run status values passed to Recorder.FinishRun
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Recorder persists crawl history. Failures are logged and never abort a crawl.
type Recorder interface {
	BeginRun(ctx context.Context, info RunInfo) (int64, error)
	RecordImage(ctx context.Context, runID int64, rec ImageRecord) error
	FinishRun(ctx context.Context, runID int64, res *Result, status string) error
}
