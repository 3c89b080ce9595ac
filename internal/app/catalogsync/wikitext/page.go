package wikitext

import (
	"strings"

	"github.com/g33ktony/hot-wheels-manager-sub006/internal/domain"
)

// PageParse is the parser's view of one page.
type PageParse struct {
	Records     []domain.VehicleRecord
	HasTemplate bool
	HasTable    bool
	IsPack      bool

	// NeedsReview is set for pages whose structure is ambiguous. Such pages
	// yield no records.
	NeedsReview  bool
	ReviewReason string
}

// ParsePage extracts candidate records from page. Casting blocks become one
// record each, except on pack pages, where a pack template wraps them into a
// single parent record carrying one PackItem per block in source order. A
// page with a single casting block and a versions table yields one record per
// version. A ===Cars=== table supplies pack contents when no casting block
// does, and stands in for the template on pack pages that have none.
func (e *Extractor) ParsePage(page domain.WikiPage) PageParse {
	content := page.RawContent
	blocks := Parse(content)
	packs := packOpenerRe.FindAllStringIndex(content, -1)
	cars := packContents(content)

	out := PageParse{
		HasTemplate: len(blocks) > 0 || len(packs) > 0,
		HasTable:    strings.Contains(content, "{|"),
		IsPack:      len(packs) > 0 || len(cars) > 0,
	}
	if !out.HasTemplate {
		if len(cars) > 0 {
			parent := e.record(textPackFields(content), page.Title)
			parent.PackItems = cars
			out.Records = []domain.VehicleRecord{parent}
		}
		return out
	}

	if reason := ambiguity(blocks, packs); reason != "" {
		out.NeedsReview = true
		out.ReviewReason = reason
		return out
	}

	if len(packs) == 0 {
		if len(blocks) == 1 {
			out.Records = e.casting(blocks[0], page.Title, content, cars)
			return out
		}
		out.Records = make([]domain.VehicleRecord, 0, len(blocks))
		for _, b := range blocks {
			out.Records = append(out.Records, e.ExtractRecord(b, page.Title))
		}
		return out
	}

	parent := e.record(packHeader(content, packs[0]), page.Title)
	for _, b := range blocks {
		parent.PackItems = append(parent.PackItems, e.packItem(b.Fields))
	}
	if len(blocks) == 0 {
		parent.PackItems = cars
	}
	out.Records = []domain.VehicleRecord{parent}
	return out
}

// casting builds the records of a page with one casting block: the template
// record carrying the cars table as pack contents, or one record per row of
// the versions table, or the template record alone.
func (e *Extractor) casting(block TemplateBlock, title domain.PageTitle, content string, cars []domain.PackItem) []domain.VehicleRecord {
	base := e.ExtractRecord(block, title)
	if len(cars) > 0 {
		base.PackItems = cars
		return []domain.VehicleRecord{base}
	}

	versions := versionRows(ParseTables(content))
	if len(versions) == 0 {
		return []domain.VehicleRecord{base}
	}
	out := make([]domain.VehicleRecord, 0, len(versions))
	for _, v := range versions {
		out = append(out, v.apply(base))
	}
	return out
}

func ambiguity(blocks []TemplateBlock, packs [][]int) string {
	if len(packs) > 1 {
		return "multiple pack templates"
	}
	for _, b := range blocks {
		if castingOpenerRe.MatchString(b.Body) {
			return "nested casting template"
		}
	}
	return ""
}
