package parsers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/coaxwatch/coaxwatch/pkg/docsis"
)

// broadcomParser is the last-resort generic parser for the stock Broadcom
// status page layout. It claims SC-QAM downstream only and locates columns
// by header label instead of position, since vendors reorder them freely.
type broadcomParser struct{}

type broadcomColumns struct {
	id, lock, mod, freq, power, snr int
}

func (broadcomParser) Parse(ctx context.Context, env *Env) (*docsis.PollResult, error) {
	html := env.PrefetchedHTML
	if !strings.Contains(strings.ToLower(html), "downstream") {
		var err error
		html, err = env.Fetch(ctx, "/")
		if err != nil {
			return nil, err
		}
	}
	doc, err := parseDoc(html)
	if err != nil {
		return nil, err
	}

	header, rows := genericChannelTable(doc)
	if rows == nil {
		return nil, fmt.Errorf("no recognizable channel table")
	}
	col := mapBroadcomColumns(header)
	if col.id < 0 {
		return nil, fmt.Errorf("channel table missing channel id column")
	}

	result := &docsis.PollResult{FetchedAt: time.Now()}
	for _, row := range rows {
		if col.id >= len(row) {
			continue
		}
		id, ok := docsis.ParseChannelID(row[col.id])
		if !ok {
			continue
		}
		ch := docsis.Channel{ChannelID: id, LockStatus: true}
		if col.lock >= 0 && col.lock < len(row) {
			ch.LockStatus = docsis.ParseLocked(row[col.lock])
		}
		if col.mod >= 0 && col.mod < len(row) {
			ch.Modulation = row[col.mod]
		}
		if col.freq >= 0 && col.freq < len(row) {
			ch.FrequencyHz, _ = docsis.ParseFrequency(row[col.freq])
		}
		if col.power >= 0 && col.power < len(row) {
			ch.PowerDBmV, _ = docsis.ParseDecibel(row[col.power])
		}
		if col.snr >= 0 && col.snr < len(row) {
			ch.SNRdB, _ = docsis.ParseDecibel(row[col.snr])
		}
		result.Downstream = append(result.Downstream, ch)
	}
	if len(result.Downstream) == 0 {
		return nil, fmt.Errorf("channel table yielded no rows")
	}
	return result, nil
}

// genericChannelTable finds the first table whose header mentions both a
// frequency and a channel column, returning the header labels and data rows.
func genericChannelTable(doc *goquery.Document) ([]string, [][]string) {
	var header []string
	var rows [][]string
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		first := table.Find("tr").First()
		var labels []string
		first.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			labels = append(labels, strings.ToLower(strings.TrimSpace(cell.Text())))
		})
		joined := strings.Join(labels, " ")
		if !strings.Contains(joined, "frequency") || !strings.Contains(joined, "channel") {
			return true
		}
		header = labels
		table.Find("tr").Each(func(i int, tr *goquery.Selection) {
			if i == 0 || tr.Find("th").Length() > 0 {
				return
			}
			var cells []string
			tr.Find("td").Each(func(_ int, td *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(td.Text()))
			})
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
		})
		return false
	})
	return header, rows
}

func mapBroadcomColumns(header []string) broadcomColumns {
	col := broadcomColumns{id: -1, lock: -1, mod: -1, freq: -1, power: -1, snr: -1}
	for i, label := range header {
		switch {
		case col.id < 0 && strings.Contains(label, "channel"):
			col.id = i
		case col.lock < 0 && strings.Contains(label, "lock"):
			col.lock = i
		case col.mod < 0 && strings.Contains(label, "modulation"):
			col.mod = i
		case col.freq < 0 && strings.Contains(label, "frequency"):
			col.freq = i
		case col.power < 0 && strings.Contains(label, "power"):
			col.power = i
		case col.snr < 0 && (strings.Contains(label, "snr") || strings.Contains(label, "mer")):
			col.snr = i
		}
	}
	return col
}
