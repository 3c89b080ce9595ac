package wikitext

import (
	"regexp"
	"strings"

	"github.com/g33ktony/hot-wheels-manager-sub006/internal/domain"
)

// Table is one {| ... |} wikitable. Rows holds the data rows with their
// cells cleaned of markup; header rows (cells opened with "!") are dropped.
type Table struct {
	Rows [][]string
}

var (
	tableRe        = regexp.MustCompile(`(?s)\{\|(.*?)\n\s*\|\}`)
	carsSectionRe  = regexp.MustCompile(`(?im)^[ \t]*===[ \t]*cars[ \t]*===[ \t]*$`)
	headingRe      = regexp.MustCompile(`(?m)^[ \t]*==`)
	textToyNumRe   = regexp.MustCompile(`\(([A-Z0-9]{3,10})\)`)
	releasedYearRe = regexp.MustCompile(`(?i)released in ((?:19|20)\d{2})`)
)

// ParseTables returns the wikitables of content in source order. Each table
// runs from "{|" to the first "|}" that opens a line; nested tables are not
// balanced.
func ParseTables(content string) []Table {
	var out []Table
	for _, m := range tableRe.FindAllStringSubmatch(content, -1) {
		out = append(out, Table{Rows: tableRows(m[1])})
	}
	return out
}

func tableRows(body string) [][]string {
	var (
		rows   [][]string
		cells  []string
		header bool
	)
	flush := func() {
		if !header && len(cells) > 0 {
			rows = append(rows, cells)
		}
		cells, header = nil, false
	}

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "|-"):
			flush()
		case strings.HasPrefix(line, "|+"):
			// caption
		case strings.HasPrefix(line, "!"):
			header = true
		case strings.HasPrefix(line, "|"):
			for _, c := range strings.Split(line[1:], "||") {
				cells = append(cells, cellText(c))
			}
		case len(cells) > 0 && line != "":
			last := len(cells) - 1
			cells[last] = strings.TrimSpace(cells[last] + " " + StripMarkup(line))
		}
	}
	flush()
	return rows
}

// cellText drops a leading `attr="..." |` from a cell and cleans the rest.
func cellText(c string) string {
	if segs := splitSegments(c); len(segs) > 1 && strings.Contains(segs[0], "=") {
		c = strings.Join(segs[1:], "|")
	}
	return StripMarkup(c)
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// Column layout of a casting's versions table.
const (
	versionColNum = iota
	versionYear
	versionSeries
	versionColor
	versionTampo
	versionBase
	versionWindow
	versionInterior
	versionWheels
	versionToyNum
	versionColumns
)

// version is one released variant of a casting.
type version struct {
	ColNum    string
	Year      string
	Series    string
	Color     string
	Tampo     string
	WheelType string
	ToyNum    string
}

// versionRows reads the first table of tables that lists versions. Rows
// without a toy number or a year are ignored.
func versionRows(tables []Table) []version {
	for _, t := range tables {
		var out []version
		for _, row := range t.Rows {
			if len(row) < versionColumns {
				continue
			}
			v := version{
				ColNum:    row[versionColNum],
				Year:      row[versionYear],
				Series:    row[versionSeries],
				Color:     row[versionColor],
				Tampo:     row[versionTampo],
				WheelType: row[versionWheels],
				ToyNum:    row[versionToyNum],
			}
			if v.ToyNum == "" || v.Year == "" {
				continue
			}
			out = append(out, v)
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// apply overlays v on the casting's template record.
func (v version) apply(base domain.VehicleRecord) domain.VehicleRecord {
	rec := base
	set := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	set(&rec.ColNum, v.ColNum)
	set(&rec.Year, v.Year)
	set(&rec.Series, v.Series)
	set(&rec.Color, v.Color)
	set(&rec.Tampo, v.Tampo)
	set(&rec.WheelType, v.WheelType)
	set(&rec.ToyNum, v.ToyNum)
	return rec
}

// packContents reads the vehicles of a multi-pack from the first table under
// the page's ===Cars=== heading. Columns: casting name, body color, tampo,
// then wheel type at 6 and notes at 8.
func packContents(content string) []domain.PackItem {
	loc := carsSectionRe.FindStringIndex(content)
	if loc == nil {
		return nil
	}
	section := content[loc[1]:]
	if next := headingRe.FindStringIndex(section); next != nil {
		section = section[:next[0]]
	}

	tables := ParseTables(section)
	if len(tables) == 0 {
		return nil
	}

	var items []domain.PackItem
	for _, row := range tables[0].Rows {
		if len(row) < 2 || row[0] == "" || strings.EqualFold(row[0], "Casting Name") {
			continue
		}
		items = append(items, domain.PackItem{
			CastingName: row[0],
			BodyColor:   cell(row, 1),
			Tampo:       strings.ReplaceAll(cell(row, 2), ";", ","),
			WheelType:   cell(row, 6),
			Notes:       cell(row, 8),
		})
	}
	return items
}

// textPackFields recovers a pack's toy number and year from its prose, for
// pack pages that carry no template: "Car Meet 5-Pack (GHP52)" and
// "released in 2020".
func textPackFields(content string) FieldMap {
	f := FieldMap{}
	for _, m := range textToyNumRe.FindAllStringSubmatch(content, -1) {
		if strings.ContainsAny(m[1], "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
			f["toy_num"] = m[1]
			break
		}
	}
	if m := releasedYearRe.FindStringSubmatch(content); m != nil {
		f["year"] = m[1]
	}
	return f
}
