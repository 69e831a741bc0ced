package parsers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coaxwatch/coaxwatch/pkg/docsis"
)

// compalParser reads the Compal/Connect Box PHP getter endpoints. Requests
// carry the URL session token; Fetch appends it from the descriptor spec.
type compalParser struct{}

type compalConnection struct {
	Downstream []struct {
		ChannelID  string `json:"channelid"`
		Frequency  string `json:"freq"`
		Power      string `json:"pow"`
		SNR        string `json:"snr"`
		Modulation string `json:"mod"`
		Locked     string `json:"locked"`
		Corrected  string `json:"correcteds"`
		Uncorrect  string `json:"uncorrectables"`
	} `json:"downstream"`
	Upstream []struct {
		ChannelID   string `json:"channelid"`
		Frequency   string `json:"freq"`
		Power       string `json:"pow"`
		ChannelType string `json:"channeltype"`
		SymbolRate  string `json:"srate"`
		Locked      string `json:"locked"`
	} `json:"upstream"`
}

type compalSystem struct {
	SoftwareVersion string `json:"swversion"`
	HardwareVersion string `json:"hwversion"`
	SerialNumber    string `json:"serialnumber"`
	Uptime          string `json:"uptime"`
}

func (compalParser) Parse(ctx context.Context, env *Env) (*docsis.PollResult, error) {
	result := &docsis.PollResult{FetchedAt: time.Now()}

	body, err := env.Fetch(ctx, "/php/ajaxGet_connection_data.php")
	if err != nil {
		return nil, err
	}
	var conn compalConnection
	if err := json.Unmarshal([]byte(body), &conn); err != nil {
		return nil, fmt.Errorf("malformed connection JSON: %w", err)
	}
	for _, row := range conn.Downstream {
		id, ok := docsis.ParseChannelID(row.ChannelID)
		if !ok {
			continue
		}
		freq, _ := docsis.ParseFrequency(row.Frequency)
		power, _ := docsis.ParseDecibel(row.Power)
		snr, _ := docsis.ParseDecibel(row.SNR)
		corrected, _ := docsis.ParseCount(row.Corrected)
		uncorrected, _ := docsis.ParseCount(row.Uncorrect)
		result.Downstream = append(result.Downstream, docsis.Channel{
			ChannelID:   id,
			LockStatus:  docsis.ParseLocked(row.Locked),
			Modulation:  row.Modulation,
			FrequencyHz: freq,
			PowerDBmV:   power,
			SNRdB:       snr,
			Corrected:   corrected,
			Uncorrected: uncorrected,
		})
	}
	for _, row := range conn.Upstream {
		id, ok := docsis.ParseChannelID(row.ChannelID)
		if !ok {
			continue
		}
		freq, _ := docsis.ParseFrequency(row.Frequency)
		power, _ := docsis.ParseDecibel(row.Power)
		rate := 0
		if v, ok := docsis.ParseCount(row.SymbolRate); ok {
			rate = int(v)
		}
		result.Upstream = append(result.Upstream, docsis.UpstreamChannel{
			ChannelID:   id,
			LockStatus:  docsis.ParseLocked(row.Locked),
			ChannelType: normalizeUpstreamType(row.ChannelType),
			FrequencyHz: freq,
			PowerDBmV:   power,
			SymbolRate:  rate,
		})
	}

	if sysBody, err := env.Fetch(ctx, "/php/ajaxGet_system_info.php"); err == nil {
		var sys compalSystem
		if err := json.Unmarshal([]byte(sysBody), &sys); err == nil {
			info := &docsis.SystemInfo{
				SoftwareVersion: sys.SoftwareVersion,
				HardwareVersion: sys.HardwareVersion,
				SerialNumber:    sys.SerialNumber,
			}
			if up, ok := docsis.ParseUptime(sys.Uptime); ok {
				info.Uptime = up
				info.LastBoot = docsis.LastBoot(time.Now(), up)
			}
			result.System = info
		}
	}
	return result, nil
}
