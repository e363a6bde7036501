package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"skinscraper/pkg/checkpoint"
	"skinscraper/pkg/config"
	errs "skinscraper/pkg/errors"
	"skinscraper/pkg/extract"
	"skinscraper/pkg/fetcher"
	"skinscraper/pkg/logger"
	"skinscraper/pkg/ratelimit"
	"skinscraper/pkg/retry"
	"skinscraper/pkg/storage"
)

// Options wires the coordinator's collaborators
type Options struct {
	Static     fetcher.Fetcher        // listing and profile pages
	Downloader fetcher.Downloader     // image bytes
	Renderer   fetcher.SessionFactory // rendered profile pages, opened once per crawl
	Limiter    ratelimit.Limiter
	Storage    *storage.Manager
	TagMapPath string
	Selectors  extract.Selectors
	Retry      config.RetryConfig

	// CheckpointDir enables resumable crawls when set
	CheckpointDir string
	Recorder      Recorder
	Progress      Progress
	Logger        logger.Logger

	MaxAdvisoryPages int
}

// Coordinator drives pagination, dedup and per-item error containment
type Coordinator struct {
	opts   Options
	logger logger.Logger
}

// New validates the options and returns a coordinator
func New(opts Options) (*Coordinator, error) {
	switch {
	case opts.Static == nil:
		return nil, errs.NewConfigurationError("static fetcher is required")
	case opts.Downloader == nil:
		return nil, errs.NewConfigurationError("downloader is required")
	case opts.Renderer == nil:
		return nil, errs.NewConfigurationError("renderer is required")
	case opts.Storage == nil:
		return nil, errs.NewConfigurationError("storage manager is required")
	case opts.TagMapPath == "":
		return nil, errs.NewConfigurationError("tag map path is required")
	}

	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited()
	}
	if opts.Progress == nil {
		opts.Progress = nopProgress{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}
	if opts.Selectors == (extract.Selectors{}) {
		opts.Selectors = extract.DefaultSelectors()
	}
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry.MaxAttempts = 1
	}

	return &Coordinator{
		opts:   opts,
		logger: opts.Logger.WithField("component", "crawler"),
	}, nil
}

// run holds everything scoped to one Crawl call
type run struct {
	req     Request
	root    string
	state   *State
	result  *Result
	session fetcher.Session
	cp      *checkpoint.Checkpoint
	cpMgr   *checkpoint.Manager
	runID   int64
}

// Crawl runs the scrape, dedup and download pipeline.
// On a fatal error the partial Result is returned together with the error.
func (c *Coordinator) Crawl(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if c.opts.MaxAdvisoryPages > 0 && req.Pages > c.opts.MaxAdvisoryPages {
		c.logger.WarnWithFields("Page count above advisory limit", map[string]interface{}{
			"pages": req.Pages,
			"limit": c.opts.MaxAdvisoryPages,
		})
	}

	r := &run{
		req:   req,
		root:  ListingRoot(req.BaseURL, req.SearchTerm),
		state: NewState(),
		result: &Result{
			StartPage: 1,
			StartedAt: time.Now(),
		},
	}
	r.result.ListingRoot = r.root

	session, err := c.opts.Renderer.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open rendering session: %w", err)
	}
	r.session = session

	if err := c.prepare(r); err != nil {
		if closeErr := session.Close(); closeErr != nil {
			c.logger.WithError(closeErr).Warn("Failed to close rendering session")
		}
		return nil, err
	}

	c.beginRecording(ctx, r)
	logger.LogComponentStart(c.logger, "crawler", map[string]interface{}{
		"listing_root": r.root,
		"pages":        req.Pages,
		"start_page":   r.result.StartPage,
		"resumed":      r.result.Resumed,
	})

	crawlErr := c.crawlPages(ctx, r)
	return r.result, c.finish(ctx, r, crawlErr)
}

// prepare restores a checkpoint or resets the storage area
func (c *Coordinator) prepare(r *run) error {
	if c.opts.CheckpointDir != "" {
		mgr, err := checkpoint.NewManager(c.opts.CheckpointDir, r.root, c.logger)
		if err != nil {
			c.logger.WithError(err).Warn("Checkpoints disabled")
		} else {
			r.cpMgr = mgr
		}
	}

	if r.cpMgr != nil && r.req.Resume {
		cp, err := r.cpMgr.Load()
		if err != nil {
			return fmt.Errorf("failed to load checkpoint: %w", err)
		}
		if cp != nil && cp.ListingRoot == r.root {
			state, err := Restore(cp)
			if err != nil {
				return fmt.Errorf("failed to restore checkpoint: %w", err)
			}
			if _, err := c.opts.Storage.Prune(state.NextIndex()); err != nil {
				return fmt.Errorf("failed to prune storage area: %w", err)
			}
			cp.Pages = r.req.Pages
			r.state = state
			r.cp = cp
			r.result.Resumed = true
			r.result.StartPage = cp.LastCompletedPage + 1
			return nil
		}
		c.logger.Warn("No checkpoint to resume from, starting over")
	}

	if r.cpMgr != nil {
		if err := r.cpMgr.Delete(); err != nil {
			c.logger.WithError(err).Warn("Failed to discard stale checkpoint")
		}
		r.cp = checkpoint.New(r.root, r.req.BaseURL, r.req.SearchTerm, r.req.Pages)
	}

	if err := c.opts.Storage.Reset(); err != nil {
		return fmt.Errorf("failed to reset storage area: %w", err)
	}
	return nil
}

func (c *Coordinator) crawlPages(ctx context.Context, r *run) error {
	for page := r.result.StartPage; page <= r.req.Pages; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.result.PagesAttempted++

		pageURL := PageURL(r.root, page)
		listing, err := c.opts.Static.Fetch(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errs.NewConnectionError(pageURL, page, err)
		}
		doc, err := extract.Parse(listing.HTML)
		if err != nil {
			return errs.NewConnectionError(pageURL, page, err)
		}

		links := c.opts.Selectors.Links(doc, r.req.BaseURL)
		c.logger.InfoWithFields("Listing page fetched", map[string]interface{}{
			"page":  page,
			"url":   pageURL,
			"items": len(links),
		})
		c.opts.Progress.PageStarted(page, r.req.Pages, len(links))

		for i, link := range links {
			if err := c.processItem(ctx, r, page, i+1, len(links), link); err != nil {
				return err
			}
		}

		r.result.PagesCompleted++
		c.saveCheckpoint(r, page)
	}
	return nil
}

// processItem handles one profile reference. Only context cancellation is returned;
// every other failure is contained here.
func (c *Coordinator) processItem(ctx context.Context, r *run, page, item, items int, profileURL string) error {
	ev := ItemEvent{Page: page, Item: item, Items: items, ProfileURL: profileURL, Index: -1}

	tags, err := c.renderTags(ctx, r, profileURL)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		skipErr := errs.NewItemSkipError("render tags", profileURL, page, item, err)
		r.result.TagFailures++
		r.result.Errors = append(r.result.Errors, skipErr)
		logger.LogItem(c.logger, page, item, profileURL, string(OutcomeTagsFailed), skipErr)
		tagEv := ev
		tagEv.Outcome, tagEv.Err = OutcomeTagsFailed, skipErr
		c.opts.Progress.Item(tagEv)
		tags = []string{}
	}

	imageURL, err := c.resolveImage(ctx, profileURL)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return c.skip(r, ev, errs.NewItemSkipError("resolve image", profileURL, page, item, err))
	}
	ev.ImageURL = imageURL

	if r.state.Seen(imageURL) {
		r.result.Duplicates++
		ev.Outcome = OutcomeDuplicate
		ev.Err = errs.NewDuplicateSkip(imageURL, page, item)
		logger.LogItem(c.logger, page, item, imageURL, string(OutcomeDuplicate), nil)
		c.opts.Progress.Item(ev)
		return nil
	}

	data, err := c.download(ctx, imageURL)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return c.skip(r, ev, errs.NewItemSkipError("download", imageURL, page, item, err))
	}

	index := r.state.NextIndex()
	path, err := c.opts.Storage.SaveImage(index, bytes.NewReader(data))
	if err != nil {
		return c.skip(r, ev, errs.NewItemSkipError("store image", imageURL, page, item, err))
	}
	r.state.Commit(imageURL, tags)

	rec := ImageRecord{
		Index:      index,
		SourceURL:  imageURL,
		ProfileURL: profileURL,
		Page:       page,
		Tags:       append([]string{}, tags...),
		Path:       path,
	}
	r.result.Records = append(r.result.Records, rec)
	c.recordImage(ctx, r, rec)

	ev.Index = index
	ev.Outcome = OutcomeSaved
	logger.LogItem(c.logger, page, item, imageURL, string(OutcomeSaved), nil)
	c.opts.Progress.Item(ev)
	return nil
}

func (c *Coordinator) skip(r *run, ev ItemEvent, err error) error {
	r.result.Skipped++
	r.result.Errors = append(r.result.Errors, err)
	ev.Outcome = OutcomeSkipped
	ev.Err = err
	logger.LogItem(c.logger, ev.Page, ev.Item, ev.ProfileURL, string(OutcomeSkipped), err)
	c.opts.Progress.Item(ev)
	return nil
}

func (c *Coordinator) renderTags(ctx context.Context, r *run, profileURL string) ([]string, error) {
	if err := c.opts.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	defer c.opts.Limiter.Done()
	page, err := r.session.Fetch(ctx, profileURL)
	if err != nil {
		return nil, err
	}
	doc, err := extract.Parse(page.HTML)
	if err != nil {
		return nil, err
	}
	return c.opts.Selectors.Tags(doc), nil
}

var errNoImageLink = errors.New("image link marker not found")

func (c *Coordinator) resolveImage(ctx context.Context, profileURL string) (string, error) {
	if err := c.opts.Limiter.Wait(ctx); err != nil {
		return "", err
	}
	defer c.opts.Limiter.Done()
	page, err := c.opts.Static.Fetch(ctx, profileURL)
	if err != nil {
		return "", err
	}
	doc, err := extract.Parse(page.HTML)
	if err != nil {
		return "", err
	}
	src, ok := c.opts.Selectors.ImageURL(doc)
	if !ok {
		return "", errNoImageLink
	}

	// relative image links are resolved against the profile page
	base, err := url.Parse(profileURL)
	if err != nil {
		return src, nil
	}
	ref, err := url.Parse(src)
	if err != nil {
		return "", errs.NewParsingError("image URL", err)
	}
	return base.ResolveReference(ref).String(), nil
}

func (c *Coordinator) download(ctx context.Context, imageURL string) ([]byte, error) {
	if err := c.opts.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	defer c.opts.Limiter.Done()
	cfg := retry.FromSettings(ctx, c.opts.Retry, c.logger.WithField("url", imageURL))
	return retry.DoWithResult(func() ([]byte, error) {
		return c.opts.Downloader.Download(ctx, imageURL)
	}, cfg)
}

func (c *Coordinator) saveCheckpoint(r *run, page int) {
	if r.cpMgr == nil || r.cp == nil {
		return
	}
	r.cp.LastCompletedPage = page
	r.state.Snapshot(r.cp)
	if err := r.cpMgr.Save(r.cp); err != nil {
		c.logger.WithError(err).WithField("page", page).Warn("Failed to save checkpoint")
	}
}

// finish runs on both the normal and the fatal path: it releases the
// rendering session, persists the tag map and closes out history.
func (c *Coordinator) finish(ctx context.Context, r *run, crawlErr error) error {
	if err := r.session.Close(); err != nil {
		c.logger.WithError(err).Warn("Failed to close rendering session")
	}

	status := StatusCompleted
	switch {
	case crawlErr == nil:
	case errors.Is(crawlErr, context.Canceled) || errors.Is(crawlErr, context.DeadlineExceeded):
		status = StatusCancelled
	default:
		status = StatusFailed
		r.result.Errors = append(r.result.Errors, crawlErr)
	}

	err := crawlErr
	if writeErr := storage.WriteTagMap(c.opts.TagMapPath, r.state.TagMap()); writeErr != nil {
		c.logger.WithError(writeErr).WithField("path", c.opts.TagMapPath).Error("Failed to write tag map")
		if err == nil {
			err = writeErr
			status = StatusFailed
		}
	}

	if status == StatusCompleted && r.cpMgr != nil {
		if delErr := r.cpMgr.Delete(); delErr != nil {
			c.logger.WithError(delErr).Warn("Failed to delete checkpoint")
		}
	}

	r.result.FinishedAt = time.Now()
	c.finishRecording(ctx, r, status)

	logger.LogCrawlSummary(c.logger, len(r.result.Records), r.result.Duplicates, r.result.Skipped, r.result.PagesAttempted)
	logger.LogComponentStop(c.logger, "crawler", status)
	c.opts.Progress.Finished(r.result, err)
	return err
}

func (c *Coordinator) beginRecording(ctx context.Context, r *run) {
	if c.opts.Recorder == nil {
		return
	}
	id, err := c.opts.Recorder.BeginRun(ctx, RunInfo{
		ListingRoot: r.root,
		BaseURL:     r.req.BaseURL,
		SearchTerm:  r.req.SearchTerm,
		Pages:       r.req.Pages,
		Resumed:     r.result.Resumed,
		StartedAt:   r.result.StartedAt,
	})
	if err != nil {
		c.logger.WithError(err).Warn("Crawl history unavailable for this run")
		return
	}
	r.runID = id
}

func (c *Coordinator) recordImage(ctx context.Context, r *run, rec ImageRecord) {
	if c.opts.Recorder == nil || r.runID == 0 {
		return
	}
	if err := c.opts.Recorder.RecordImage(ctx, r.runID, rec); err != nil {
		c.logger.WithError(err).WithField("index", rec.Index).Warn("Failed to record image")
	}
}

func (c *Coordinator) finishRecording(ctx context.Context, r *run, status string) {
	if c.opts.Recorder == nil || r.runID == 0 {
		return
	}
	// the crawl context may already be cancelled
	if err := c.opts.Recorder.FinishRun(context.WithoutCancel(ctx), r.runID, r.result, status); err != nil {
		c.logger.WithError(err).Warn("Failed to finish run record")
	}
}

// DiscoverPages reads the site's listing page total from the pagination block
func (c *Coordinator) DiscoverPages(ctx context.Context, baseURL, searchTerm string) (int, error) {
	root := ListingRoot(baseURL, searchTerm)
	page, err := c.opts.Static.Fetch(ctx, root)
	if err != nil {
		return 0, errs.NewConnectionError(root, 0, err)
	}
	doc, err := extract.Parse(page.HTML)
	if err != nil {
		return 0, err
	}
	n, ok := c.opts.Selectors.PageCount(doc)
	if !ok {
		return 0, errs.NewParsingError("pagination", errors.New("page total not found"))
	}
	return n, nil
}
