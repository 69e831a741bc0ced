package parsers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coaxwatch/coaxwatch/pkg/docsis"
)

// arrisParser handles the SB8200-family status pages: plain HTML tables
// behind HTTP Basic auth, with OFDM channels mixed into the downstream table
// as "OFDM PLC" rows.
type arrisParser struct{}

func (arrisParser) Parse(ctx context.Context, env *Env) (*docsis.PollResult, error) {
	statusHTML := env.PrefetchedHTML
	if statusHTML == "" || !strings.Contains(strings.ToLower(statusHTML), "downstream") {
		var err error
		statusHTML, err = env.Fetch(ctx, "/cmconnectionstatus.html")
		if err != nil {
			return nil, err
		}
	}

	doc, err := parseDoc(statusHTML)
	if err != nil {
		return nil, fmt.Errorf("unparseable status page: %w", err)
	}

	result := &docsis.PollResult{FetchedAt: time.Now()}

	for _, row := range findTableWithHeader(doc, "Channel ID", "Lock Status", "Modulation") {
		if len(row) < 8 {
			continue
		}
		id, ok := docsis.ParseChannelID(row[0])
		if !ok {
			continue
		}
		freq, _ := docsis.ParseFrequency(row[3])
		power, _ := docsis.ParseDecibel(row[4])
		snr, _ := docsis.ParseDecibel(row[5])
		corrected, _ := docsis.ParseCount(row[6])
		uncorrected, _ := docsis.ParseCount(row[7])

		if strings.Contains(strings.ToUpper(row[2]), "OFDM") {
			result.DownstreamOFDM = append(result.DownstreamOFDM, docsis.OFDMChannel{
				ChannelID:   id,
				LockStatus:  docsis.ParseLocked(row[1]),
				Profile:     row[2],
				FrequencyHz: freq,
				PowerDBmV:   power,
				RxMERdB:     snr,
				Corrected:   corrected,
				Uncorrected: uncorrected,
			})
			continue
		}
		result.Downstream = append(result.Downstream, docsis.Channel{
			ChannelID:   id,
			LockStatus:  docsis.ParseLocked(row[1]),
			Modulation:  row[2],
			FrequencyHz: freq,
			PowerDBmV:   power,
			SNRdB:       snr,
			Corrected:   corrected,
			Uncorrected: uncorrected,
		})
	}

	for _, row := range findTableWithHeader(doc, "US Channel Type", "Frequency") {
		if len(row) < 7 {
			continue
		}
		id, ok := docsis.ParseChannelID(row[1])
		if !ok {
			continue
		}
		freq, _ := docsis.ParseFrequency(row[4])
		power, _ := docsis.ParseDecibel(row[6])
		result.Upstream = append(result.Upstream, docsis.UpstreamChannel{
			ChannelID:   id,
			LockStatus:  docsis.ParseLocked(row[2]),
			ChannelType: normalizeUpstreamType(row[3]),
			FrequencyHz: freq,
			PowerDBmV:   power,
		})
	}

	if info := arrisSystemInfo(ctx, env); info != nil {
		result.System = info
	}
	return result, nil
}

// arrisSystemInfo reads /cmswinfo.html; absence is not an error, the system
// capability is simply not populated.
func arrisSystemInfo(ctx context.Context, env *Env) *docsis.SystemInfo {
	html, err := env.Fetch(ctx, "/cmswinfo.html")
	if err != nil {
		return nil
	}
	doc, err := parseDoc(html)
	if err != nil {
		return nil
	}
	return systemInfoFromTables(doc)
}

func normalizeUpstreamType(raw string) string {
	upper := strings.ToUpper(raw)
	if strings.Contains(upper, "OFDMA") {
		return "OFDMA"
	}
	return "ATDMA"
}
