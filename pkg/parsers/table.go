package parsers

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/coaxwatch/coaxwatch/pkg/docsis"
)

// tableRows returns the cell texts of every <tr> under selector, trimmed.
// Header rows (containing <th>) are skipped.
func tableRows(doc *goquery.Document, selector string) [][]string {
	var rows [][]string
	doc.Find(selector).Find("tr").Each(func(i int, tr *goquery.Selection) {
		if tr.Find("th").Length() > 0 {
			return
		}
		var cells []string
		tr.Find("td").Each(func(j int, td *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(td.Text()))
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})
	return rows
}

// findTableWithHeader locates the first table whose header row contains all
// of the given labels (case-insensitive) and returns its data rows.
func findTableWithHeader(doc *goquery.Document, labels ...string) [][]string {
	var rows [][]string
	doc.Find("table").EachWithBreak(func(i int, table *goquery.Selection) bool {
		header := strings.ToLower(table.Find("tr").First().Text())
		for _, label := range labels {
			if !strings.Contains(header, strings.ToLower(label)) {
				return true
			}
		}
		table.Find("tr").Each(func(j int, tr *goquery.Selection) {
			if j == 0 || tr.Find("th").Length() > 0 {
				return
			}
			var cells []string
			tr.Find("td").Each(func(k int, td *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(td.Text()))
			})
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
		})
		return false
	})
	return rows
}

func parseDoc(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// systemInfoFromTables extracts the label/value system table shared by
// several Broadcom-derived firmwares. Returns nil when nothing matched so
// callers never attach a placeholder SystemInfo.
func systemInfoFromTables(doc *goquery.Document) *docsis.SystemInfo {
	info := &docsis.SystemInfo{}
	found := false
	for _, row := range tableRows(doc, "table") {
		if len(row) < 2 {
			continue
		}
		label := strings.ToLower(row[0])
		switch {
		case strings.Contains(label, "software version"):
			info.SoftwareVersion = row[1]
			found = true
		case strings.Contains(label, "hardware version"):
			info.HardwareVersion = row[1]
			found = true
		case strings.Contains(label, "serial number"):
			info.SerialNumber = row[1]
			found = true
		case strings.Contains(label, "up time"), strings.Contains(label, "uptime"):
			if uptime, ok := docsis.ParseUptime(row[1]); ok {
				info.Uptime = uptime
				info.LastBoot = docsis.LastBoot(time.Now(), uptime)
				found = true
			}
		}
	}
	if !found {
		return nil
	}
	return info
}
