package parsers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coaxwatch/coaxwatch/pkg/docsis"
)

// netgearParser handles the CM600/CM1000 family: base64 form login, then
// tabular DocsisStatus.htm plus a separate page for software version.
type netgearParser struct{}

func (netgearParser) Parse(ctx context.Context, env *Env) (*docsis.PollResult, error) {
	statusHTML, err := env.Fetch(ctx, "/DocsisStatus.htm")
	if err != nil {
		return nil, err
	}
	doc, err := parseDoc(statusHTML)
	if err != nil {
		return nil, fmt.Errorf("unparseable status page: %w", err)
	}

	result := &docsis.PollResult{FetchedAt: time.Now()}

	// Downstream: Channel | Lock Status | Modulation | Channel ID |
	// Frequency | Power | SNR | Correctables | Uncorrectables.
	for _, row := range findTableWithHeader(doc, "Lock Status", "Modulation", "Channel ID") {
		if len(row) < 9 {
			continue
		}
		id, ok := docsis.ParseChannelID(row[3])
		if !ok {
			continue
		}
		freq, _ := docsis.ParseFrequency(row[4])
		power, _ := docsis.ParseDecibel(row[5])
		snr, _ := docsis.ParseDecibel(row[6])
		corrected, _ := docsis.ParseCount(row[7])
		uncorrected, _ := docsis.ParseCount(row[8])

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

	// Upstream: Channel | Lock Status | US Channel Type | Channel ID |
	// Symbol Rate | Frequency | Power.
	for _, row := range findTableWithHeader(doc, "US Channel Type", "Symbol Rate") {
		if len(row) < 7 {
			continue
		}
		id, ok := docsis.ParseChannelID(row[3])
		if !ok {
			continue
		}
		freq, _ := docsis.ParseFrequency(row[5])
		power, _ := docsis.ParseDecibel(row[6])
		symbolRate, _ := docsis.ParseChannelID(row[4])
		result.Upstream = append(result.Upstream, docsis.UpstreamChannel{
			ChannelID:   id,
			LockStatus:  docsis.ParseLocked(row[1]),
			ChannelType: normalizeUpstreamType(row[2]),
			FrequencyHz: freq,
			PowerDBmV:   power,
			SymbolRate:  symbolRate,
		})
	}

	if uptimeText := doc.Find("#SystemUpTime, td#uptime").First().Text(); uptimeText != "" {
		if uptime, ok := docsis.ParseUptime(uptimeText); ok {
			result.System = &docsis.SystemInfo{
				Uptime:   uptime,
				LastBoot: docsis.LastBoot(time.Now(), uptime),
			}
		}
	}

	if html, err := env.Fetch(ctx, "/RouterStatus.htm"); err == nil {
		if doc, err := parseDoc(html); err == nil {
			if info := systemInfoFromTables(doc); info != nil {
				if result.System == nil {
					result.System = info
				} else if info.SoftwareVersion != "" {
					result.System.SoftwareVersion = info.SoftwareVersion
					result.System.HardwareVersion = info.HardwareVersion
					result.System.SerialNumber = info.SerialNumber
				}
			}
		}
	}
	return result, nil
}
