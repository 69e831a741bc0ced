package parsers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coaxwatch/coaxwatch/pkg/docsis"
)

// sagemcomParser reads the F@st status page. The login form action is
// tokenized per session, which the dynamic form strategy resolves before this
// parser ever runs.
type sagemcomParser struct{}

func (sagemcomParser) Parse(ctx context.Context, env *Env) (*docsis.PollResult, error) {
	html := env.PrefetchedHTML
	if !strings.Contains(strings.ToLower(html), "downstream") {
		var err error
		html, err = env.Fetch(ctx, "/status_docsis.html")
		if err != nil {
			return nil, err
		}
	}
	doc, err := parseDoc(html)
	if err != nil {
		return nil, err
	}

	result := &docsis.PollResult{FetchedAt: time.Now()}

	// Channel | Lock | Modulation | Frequency | Power | SNR | Corrected | Uncorrected
	dsRows := findTableWithHeader(doc, "Lock Status", "SNR")
	for _, row := range dsRows {
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

	// Channel | Lock | Channel Type | Frequency | Width | Power
	usRows := findTableWithHeader(doc, "Channel Type", "Power")
	for _, row := range usRows {
		if len(row) < 6 {
			continue
		}
		id, ok := docsis.ParseChannelID(row[0])
		if !ok {
			continue
		}
		freq, _ := docsis.ParseFrequency(row[3])
		power, _ := docsis.ParseDecibel(row[5])
		result.Upstream = append(result.Upstream, docsis.UpstreamChannel{
			ChannelID:   id,
			LockStatus:  docsis.ParseLocked(row[1]),
			ChannelType: normalizeUpstreamType(row[2]),
			FrequencyHz: freq,
			PowerDBmV:   power,
		})
	}

	if len(result.Downstream) == 0 && len(result.DownstreamOFDM) == 0 {
		return nil, fmt.Errorf("no channel tables in status page")
	}

	if infoHTML, err := env.Fetch(ctx, "/status_system.html"); err == nil {
		if infoDoc, err := parseDoc(infoHTML); err == nil {
			result.System = systemInfoFromTables(infoDoc)
		}
	}
	return result, nil
}
