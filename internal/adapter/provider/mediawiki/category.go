package mediawiki

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/g33ktony/hot-wheels-manager-sub006/internal/domain"
)

const categoryPrefix = "Category:"

// CategoryMembers lists the article titles of one category, following
// cmcontinue until the listing is complete. Each page of the listing is a
// separate paced request.
func (c *Client) CategoryMembers(ctx context.Context, category string) ([]domain.PageTitle, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, fmt.Errorf("mediawiki: empty category: %w", domain.ErrValidation)
	}
	if !strings.HasPrefix(category, categoryPrefix) {
		category = categoryPrefix + category
	}

	var (
		titles []domain.PageTitle
		cont   map[string]string
	)
	for {
		params := url.Values{}
		params.Set("list", "categorymembers")
		params.Set("cmtitle", category)
		params.Set("cmtype", "page")
		params.Set("cmlimit", "500")
		for k, v := range cont {
			params.Set(k, v)
		}

		resp, err := c.query(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("mediawiki: category %s: %w", category, err)
		}
		for _, m := range resp.Query.CategoryMembers {
			titles = append(titles, domain.PageTitle(m.Title))
		}

		if resp.Continue["cmcontinue"] == "" {
			break
		}
		cont = resp.Continue
	}

	c.log.InfoContext(ctx, "category listed", slog.String("category", category), slog.Int("titles", len(titles)))
	return titles, nil
}
