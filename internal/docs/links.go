package docs

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/sync/errgroup"
)

type linkChecker struct {
	client      *http.Client
	concurrency int
}

func newLinkChecker(opts Options) *linkChecker {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &linkChecker{client: client, concurrency: concurrency}
}

// check requests every link and returns one issue per broken link. A failed link
// does not stop the others; only ctx cancellation does.
func (c *linkChecker) check(ctx context.Context, links []string) ([]Issue, error) {
	results := make([]*Issue, len(links))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, link := range links {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = c.checkLink(gctx, link)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("check links: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("check links: %w", err)
	}

	var issues []Issue
	for _, r := range results {
		if r != nil {
			issues = append(issues, *r)
		}
	}
	return issues, nil
}

// checkLink sends HEAD and falls back to GET for servers that refuse HEAD
func (c *linkChecker) checkLink(ctx context.Context, link string) *Issue {
	status, err := c.do(ctx, http.MethodHead, link)
	if err != nil || status == http.StatusMethodNotAllowed || status == http.StatusForbidden || status == http.StatusNotImplemented {
		status, err = c.do(ctx, http.MethodGet, link)
	}
	switch {
	case err != nil:
		return &Issue{Kind: KindLink, Target: link, Message: err.Error()}
	case status == http.StatusNotFound || status == http.StatusGone:
		return &Issue{Kind: KindLink, Target: link, Message: fmt.Sprintf("returned %d", status)}
	default:
		return nil
	}
}

func (c *linkChecker) do(ctx context.Context, method, link string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, link, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", "cansat-groundstation-docs-check")
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	return resp.StatusCode, nil
}
