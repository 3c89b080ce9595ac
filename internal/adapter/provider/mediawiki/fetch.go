package mediawiki

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/g33ktony/hot-wheels-manager-sub006/internal/domain"
)

// maxContinuations bounds the follow-up requests of one batch. The wiki
// hands out at least one revision per continuation, so a full batch never
// needs more.
const maxContinuations = MaxBatchSize

// FetchBatch retrieves the current wikitext of up to MaxBatchSize titles.
// Every requested title gets an entry keyed by the title as given. Pages the
// wiki does not know come back with Exists=false. When the response is cut
// at the result size limit, the query is repeated with the returned continue
// parameters until every page carries its revision; each repetition is a
// separate paced request. A failed round trip returns a single batch-level
// error and no map.
func (c *Client) FetchBatch(ctx context.Context, titles []domain.PageTitle) (map[domain.PageTitle]domain.PageResult, error) {
	if len(titles) > MaxBatchSize {
		return nil, fmt.Errorf("mediawiki: batch of %d titles exceeds %d: %w", len(titles), MaxBatchSize, domain.ErrValidation)
	}
	out := make(map[domain.PageTitle]domain.PageResult, len(titles))
	if len(titles) == 0 {
		return out, nil
	}

	names := make([]string, len(titles))
	for i, t := range titles {
		names[i] = string(t)
	}

	c.log.DebugContext(ctx, "fetch batch", slog.Int("titles", len(titles)), slog.String("first", names[0]))

	var (
		normalized = map[string]string{}
		redirects  = map[string]string{}
		pages      = map[string]apiPage{}
		cont       map[string]string
		requests   int
	)
	for {
		params := url.Values{}
		params.Set("titles", strings.Join(names, "|"))
		params.Set("prop", "revisions")
		params.Set("rvprop", "content")
		params.Set("redirects", "1")
		for k, v := range cont {
			params.Set(k, v)
		}

		resp, err := c.query(ctx, params)
		if err != nil {
			c.log.WarnContext(ctx, "fetch batch failed",
				slog.Int("titles", len(titles)),
				slog.Int("request", requests+1),
				slog.String("error", err.Error()),
			)
			return nil, err
		}
		requests++

		addMappings(normalized, resp.Query.Normalized)
		addMappings(redirects, resp.Query.Redirects)
		for _, p := range resp.Query.Pages {
			if prev, ok := pages[p.Title]; ok && len(prev.Revisions) > 0 {
				continue
			}
			pages[p.Title] = p
		}

		cont = resp.Continue
		if len(cont) == 0 || requests > maxContinuations {
			break
		}
	}

	// Still cut off after the last allowed request: pages without a revision
	// are unknown rather than empty.
	truncated := len(cont) > 0

	fetchedAt := c.now()
	for _, t := range titles {
		resolved := resolve(string(t), normalized, redirects)
		page := domain.WikiPage{
			Title:         t,
			FetchedAt:     fetchedAt,
			ResolvedTitle: domain.PageTitle(resolved),
		}
		var pageErr error
		if p, ok := pages[resolved]; ok && !p.Missing && !p.Invalid {
			page.Exists = true
			switch {
			case len(p.Revisions) > 0:
				page.RawContent = p.Revisions[0].text()
			case truncated:
				pageErr = &domain.TransportError{Err: fmt.Errorf("mediawiki: %s: revision not returned after %d requests", t, requests)}
			}
		}
		out[t] = domain.PageResult{Page: page, Err: pageErr}
	}

	c.log.DebugContext(ctx, "fetch batch done",
		slog.Int("titles", len(titles)),
		slog.Int("pages", len(pages)),
		slog.Int("requests", requests),
	)
	return out, nil
}

func addMappings(idx map[string]string, ms []titleMapping) {
	for _, m := range ms {
		idx[m.From] = m.To
	}
}

// resolve follows the normalization then the redirect chain of title.
// Chains are bounded to guard against redirect loops in the response.
func resolve(title string, normalized, redirects map[string]string) string {
	if n, ok := normalized[title]; ok {
		title = n
	}
	for range 5 {
		to, ok := redirects[title]
		if !ok || to == title {
			break
		}
		title = to
	}
	return title
}
