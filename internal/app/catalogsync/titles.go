package catalogsync

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/g33ktony/hot-wheels-manager-sub006/internal/domain"
)

// CategoryLister lists the pages of a wiki category.
// Implemented by mediawiki.Client.
type CategoryLister interface {
	CategoryMembers(ctx context.Context, category string) ([]domain.PageTitle, error)
}

// ReadTitles reads a title list file: either a JSON array of strings or one
// title per line. Blank lines and lines starting with # are ignored.
func ReadTitles(path string) ([]domain.PageTitle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read titles %s: %w", path, err)
	}

	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		var names []string
		if err := json.Unmarshal(trimmed, &names); err != nil {
			return nil, fmt.Errorf("decode titles %s: %w", path, err)
		}
		out := make([]domain.PageTitle, 0, len(names))
		for _, n := range names {
			out = append(out, domain.PageTitle(n))
		}
		return out, nil
	}

	var out []domain.PageTitle
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, domain.PageTitle(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan titles %s: %w", path, err)
	}
	return out, nil
}

// BuildUniverse returns the crawl's ordered title universe: explicit titles
// first, then the members of each category in order. Titles are normalized
// and duplicates dropped, keeping the first occurrence.
func BuildUniverse(ctx context.Context, log *slog.Logger, lister CategoryLister, explicit []domain.PageTitle, categories []string) ([]domain.PageTitle, error) {
	seen := make(map[domain.PageTitle]struct{}, len(explicit))
	var out []domain.PageTitle
	add := func(titles []domain.PageTitle) int {
		added := 0
		for _, t := range titles {
			t = domain.NormalizeTitle(t)
			if t == "" {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
			added++
		}
		return added
	}

	add(explicit)
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if lister == nil {
			return nil, fmt.Errorf("category %q: no category source configured", c)
		}
		members, err := lister.CategoryMembers(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("list category %q: %w", c, err)
		}
		n := add(members)
		log.InfoContext(ctx, "category listed",
			slog.String("category", c),
			slog.Int("members", len(members)),
			slog.Int("new", n),
		)
	}
	return out, nil
}
