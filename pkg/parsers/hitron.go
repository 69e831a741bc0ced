package parsers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coaxwatch/coaxwatch/pkg/docsis"
)

// hitronParser reads the Hitron AJAX endpoints. Every numeric field comes
// back as a string, so each one goes through the lenient docsis parsers.
type hitronParser struct{}

type hitronDownstreamRow struct {
	PortID         string `json:"portId"`
	Frequency      string `json:"frequency"`
	Modulation     string `json:"modulation"`
	SignalStrength string `json:"signalStrength"`
	SNR            string `json:"snr"`
	ChannelID      string `json:"channelId"`
	Correcteds     string `json:"correcteds"`
	Uncorrect      string `json:"uncorrect"`
}

type hitronUpstreamRow struct {
	PortID         string `json:"portId"`
	Frequency      string `json:"frequency"`
	Bandwidth      string `json:"bandwidth"`
	ModulationType string `json:"modulationType"`
	SignalStrength string `json:"signalStrength"`
	ChannelID      string `json:"channelId"`
}

type hitronSysInfo struct {
	SWVersion    string `json:"swVersion"`
	HWVersion    string `json:"hwVersion"`
	SerialNumber string `json:"serialNumber"`
	SystemUptime string `json:"systemUptime"`
}

func (hitronParser) Parse(ctx context.Context, env *Env) (*docsis.PollResult, error) {
	result := &docsis.PollResult{FetchedAt: time.Now()}

	dsBody, err := env.Fetch(ctx, "/data/dsinfo.asp")
	if err != nil {
		return nil, err
	}
	var dsRows []hitronDownstreamRow
	if err := json.Unmarshal([]byte(dsBody), &dsRows); err != nil {
		return nil, fmt.Errorf("malformed dsinfo JSON: %w", err)
	}
	for _, row := range dsRows {
		id, ok := docsis.ParseChannelID(row.ChannelID)
		if !ok {
			continue
		}
		freq, _ := docsis.ParseFrequency(row.Frequency)
		power, _ := docsis.ParseDecibel(row.SignalStrength)
		snr, _ := docsis.ParseDecibel(row.SNR)
		corrected, _ := docsis.ParseCount(row.Correcteds)
		uncorrected, _ := docsis.ParseCount(row.Uncorrect)
		result.Downstream = append(result.Downstream, docsis.Channel{
			ChannelID:   id,
			LockStatus:  true,
			Modulation:  row.Modulation,
			FrequencyHz: freq,
			PowerDBmV:   power,
			SNRdB:       snr,
			Corrected:   corrected,
			Uncorrected: uncorrected,
		})
	}

	usBody, err := env.Fetch(ctx, "/data/usinfo.asp")
	if err != nil {
		return nil, err
	}
	var usRows []hitronUpstreamRow
	if err := json.Unmarshal([]byte(usBody), &usRows); err != nil {
		return nil, fmt.Errorf("malformed usinfo JSON: %w", err)
	}
	for _, row := range usRows {
		id, ok := docsis.ParseChannelID(row.ChannelID)
		if !ok {
			continue
		}
		freq, _ := docsis.ParseFrequency(row.Frequency)
		power, _ := docsis.ParseDecibel(row.SignalStrength)
		result.Upstream = append(result.Upstream, docsis.UpstreamChannel{
			ChannelID:   id,
			LockStatus:  true,
			ChannelType: normalizeUpstreamType(row.ModulationType),
			FrequencyHz: freq,
			PowerDBmV:   power,
		})
	}

	if sysBody, err := env.Fetch(ctx, "/data/getSysInfo.asp"); err == nil {
		var sys []hitronSysInfo
		if err := json.Unmarshal([]byte(sysBody), &sys); err == nil && len(sys) > 0 {
			info := &docsis.SystemInfo{
				SoftwareVersion: sys[0].SWVersion,
				HardwareVersion: sys[0].HWVersion,
				SerialNumber:    sys[0].SerialNumber,
			}
			if up, ok := docsis.ParseUptime(sys[0].SystemUptime); ok {
				info.Uptime = up
				info.LastBoot = docsis.LastBoot(time.Now(), up)
			}
			result.System = info
		}
	}
	return result, nil
}
