package parsers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coaxwatch/coaxwatch/pkg/docsis"
)

// technicolorParser handles the TC4400's nested status tables. Unlike the
// Arris layout, every channel row carries full codeword counters and the
// channel type column distinguishes SC-QAM from OFDM directly.
type technicolorParser struct{}

func (technicolorParser) Parse(ctx context.Context, env *Env) (*docsis.PollResult, error) {
	statusHTML, err := env.Fetch(ctx, "/cmconnectionstatus.html")
	if err != nil {
		return nil, err
	}
	doc, err := parseDoc(statusHTML)
	if err != nil {
		return nil, fmt.Errorf("unparseable status page: %w", err)
	}

	result := &docsis.PollResult{FetchedAt: time.Now()}

	// Columns: index, channel id, lock, type, bonded, center freq, width,
	// snr, power, modulation, unerrored, corrected, uncorrectable.
	for _, row := range findTableWithHeader(doc, "Channel Type", "SNR") {
		if len(row) < 13 {
			continue
		}
		id, ok := docsis.ParseChannelID(row[1])
		if !ok {
			continue
		}
		locked := docsis.ParseLocked(row[2])
		freq, _ := docsis.ParseFrequency(row[5])
		snr, _ := docsis.ParseDecibel(row[7])
		power, _ := docsis.ParseDecibel(row[8])
		corrected, _ := docsis.ParseCount(row[11])
		uncorrected, _ := docsis.ParseCount(row[12])

		if strings.Contains(strings.ToUpper(row[3]), "OFDM") {
			result.DownstreamOFDM = append(result.DownstreamOFDM, docsis.OFDMChannel{
				ChannelID:   id,
				LockStatus:  locked,
				Profile:     row[9],
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
			LockStatus:  locked,
			Modulation:  row[9],
			FrequencyHz: freq,
			PowerDBmV:   power,
			SNRdB:       snr,
			Corrected:   corrected,
			Uncorrected: uncorrected,
		})
	}

	for _, row := range findTableWithHeader(doc, "Upstream Channel Type") {
		if len(row) < 7 {
			continue
		}
		id, ok := docsis.ParseChannelID(row[1])
		if !ok {
			continue
		}
		freq, _ := docsis.ParseFrequency(row[5])
		power, _ := docsis.ParseDecibel(row[6])
		result.Upstream = append(result.Upstream, docsis.UpstreamChannel{
			ChannelID:   id,
			LockStatus:  docsis.ParseLocked(row[2]),
			ChannelType: normalizeUpstreamType(row[3]),
			FrequencyHz: freq,
			PowerDBmV:   power,
		})
	}

	if html, err := env.Fetch(ctx, "/cmswinfo.html"); err == nil {
		if doc, err := parseDoc(html); err == nil {
			if info := systemInfoFromTables(doc); info != nil {
				result.System = info
			}
		}
	}
	return result, nil
}
