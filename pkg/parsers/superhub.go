package parsers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/coaxwatch/coaxwatch/pkg/docsis"
)

// superhubParser reads the Super Hub's unauthenticated REST API: one JSON
// document per direction, with sc_qam/ofdm and atdma/ofdma channel types.
type superhubParser struct{}

type superhubDownstream struct {
	Downstream struct {
		Channels []struct {
			ChannelID   int     `json:"channelId"`
			Frequency   int64   `json:"frequency"`
			Power       float64 `json:"power"`
			Modulation  string  `json:"modulation"`
			SNR         float64 `json:"snr"`
			RxMer       float64 `json:"rxMer"`
			Corrected   uint64  `json:"correctedErrors"`
			Uncorrected uint64  `json:"uncorrectedErrors"`
			ChannelType string  `json:"channelType"`
			LockStatus  bool    `json:"lockStatus"`
		} `json:"channels"`
	} `json:"downstream"`
}

type superhubUpstream struct {
	Upstream struct {
		Channels []struct {
			ChannelID   int     `json:"channelId"`
			Frequency   int64   `json:"frequency"`
			Power       float64 `json:"power"`
			ChannelType string  `json:"channelType"`
			LockStatus  bool    `json:"lockStatus"`
			SymbolRate  int     `json:"symbolRate"`
		} `json:"channels"`
	} `json:"upstream"`
}

type superhubState struct {
	CableModem struct {
		SoftwareVersion string `json:"firmwareVersion"`
		HardwareVersion string `json:"hardwareVersion"`
		UptimeSeconds   int64  `json:"upTime"`
	} `json:"cablemodem"`
}

func (superhubParser) Parse(ctx context.Context, env *Env) (*docsis.PollResult, error) {
	result := &docsis.PollResult{FetchedAt: time.Now()}

	dsBody, err := env.Fetch(ctx, "/rest/v1/cablemodem/downstream")
	if err != nil {
		return nil, err
	}
	var ds superhubDownstream
	if err := json.Unmarshal([]byte(dsBody), &ds); err != nil {
		return nil, fmt.Errorf("malformed downstream JSON: %w", err)
	}
	for _, ch := range ds.Downstream.Channels {
		switch strings.ToLower(ch.ChannelType) {
		case "ofdm":
			result.DownstreamOFDM = append(result.DownstreamOFDM, docsis.OFDMChannel{
				ChannelID:   ch.ChannelID,
				LockStatus:  ch.LockStatus,
				Profile:     ch.Modulation,
				FrequencyHz: uint64(ch.Frequency),
				PowerDBmV:   ch.Power,
				RxMERdB:     ch.RxMer,
				Corrected:   ch.Corrected,
				Uncorrected: ch.Uncorrected,
			})
		default: // sc_qam
			result.Downstream = append(result.Downstream, docsis.Channel{
				ChannelID:   ch.ChannelID,
				LockStatus:  ch.LockStatus,
				Modulation:  ch.Modulation,
				FrequencyHz: uint64(ch.Frequency),
				PowerDBmV:   ch.Power,
				SNRdB:       ch.SNR,
				Corrected:   ch.Corrected,
				Uncorrected: ch.Uncorrected,
			})
		}
	}

	usBody, err := env.Fetch(ctx, "/rest/v1/cablemodem/upstream")
	if err != nil {
		return nil, err
	}
	var us superhubUpstream
	if err := json.Unmarshal([]byte(usBody), &us); err != nil {
		return nil, fmt.Errorf("malformed upstream JSON: %w", err)
	}
	for _, ch := range us.Upstream.Channels {
		result.Upstream = append(result.Upstream, docsis.UpstreamChannel{
			ChannelID:   ch.ChannelID,
			LockStatus:  ch.LockStatus,
			ChannelType: normalizeUpstreamType(ch.ChannelType),
			FrequencyHz: uint64(ch.Frequency),
			PowerDBmV:   ch.Power,
			SymbolRate:  ch.SymbolRate,
		})
	}

	// State endpoint is optional on older firmware.
	if stateBody, err := env.Fetch(ctx, "/rest/v1/cablemodem/state"); err == nil {
		var state superhubState
		if err := json.Unmarshal([]byte(stateBody), &state); err == nil {
			info := &docsis.SystemInfo{
				SoftwareVersion: state.CableModem.SoftwareVersion,
				HardwareVersion: state.CableModem.HardwareVersion,
			}
			if state.CableModem.UptimeSeconds > 0 {
				info.Uptime = time.Duration(state.CableModem.UptimeSeconds) * time.Second
				info.LastBoot = docsis.LastBoot(time.Now(), info.Uptime)
			}
			if info.SoftwareVersion != "" || info.Uptime > 0 {
				result.System = info
			}
		}
	}
	return result, nil
}
