package parsers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/coaxwatch/coaxwatch/pkg/docsis"
)

// motorolaParser handles the MB-series HNAP JSON API. Channel data arrives
// as caret-delimited records joined with "|+|".
type motorolaParser struct{}

const (
	motoDownstreamAction = "GetMotoStatusDownstreamChannelInfo"
	motoUpstreamAction   = "GetMotoStatusUpstreamChannelInfo"
	motoSoftwareAction   = "GetMotoStatusSoftware"
	motoConnectionAction = "GetMotoStatusConnectionInfo"
)

type motoEnvelope struct {
	Multiple struct {
		Downstream struct {
			Channels string `json:"MotoConnDownstreamChannel"`
		} `json:"GetMotoStatusDownstreamChannelInfoResponse"`
		Upstream struct {
			Channels string `json:"MotoConnUpstreamChannel"`
		} `json:"GetMotoStatusUpstreamChannelInfoResponse"`
		Software struct {
			SoftwareVersion string `json:"StatusSoftwareSfVer"`
			HardwareVersion string `json:"StatusSoftwareHdVer"`
			SerialNumber    string `json:"StatusSoftwareSerialNum"`
		} `json:"GetMotoStatusSoftwareResponse"`
		Connection struct {
			Uptime string `json:"MotoConnSystemUpTime"`
		} `json:"GetMotoStatusConnectionInfoResponse"`
	} `json:"GetMultipleHNAPsResponse"`
}

func (motorolaParser) Parse(ctx context.Context, env *Env) (*docsis.PollResult, error) {
	if env.HNAP == nil {
		return nil, fmt.Errorf("motorola parser requires an HNAP session")
	}

	raw, err := env.HNAP.CallMultiple(ctx,
		motoDownstreamAction, motoUpstreamAction, motoSoftwareAction, motoConnectionAction)
	if err != nil {
		return nil, err
	}

	var envelope motoEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("malformed HNAP status payload: %w", err)
	}

	result := &docsis.PollResult{FetchedAt: time.Now()}

	// Downstream record: index^lock^modulation^id^freqMHz^power^snr^corrected^uncorrected^
	for _, record := range splitMotoRecords(envelope.Multiple.Downstream.Channels) {
		fields := splitMotoFields(record)
		if len(fields) < 9 {
			continue
		}
		id, ok := docsis.ParseChannelID(fields[3])
		if !ok {
			continue
		}
		freqMHz, _ := docsis.ParseDecibel(fields[4])
		power, _ := docsis.ParseDecibel(fields[5])
		snr, _ := docsis.ParseDecibel(fields[6])
		corrected, _ := docsis.ParseCount(fields[7])
		uncorrected, _ := docsis.ParseCount(fields[8])

		if strings.Contains(strings.ToUpper(fields[2]), "OFDM") {
			result.DownstreamOFDM = append(result.DownstreamOFDM, docsis.OFDMChannel{
				ChannelID:   id,
				LockStatus:  docsis.ParseLocked(fields[1]),
				Profile:     fields[2],
				FrequencyHz: uint64(freqMHz * 1e6),
				PowerDBmV:   power,
				RxMERdB:     snr,
				Corrected:   corrected,
				Uncorrected: uncorrected,
			})
			continue
		}
		result.Downstream = append(result.Downstream, docsis.Channel{
			ChannelID:   id,
			LockStatus:  docsis.ParseLocked(fields[1]),
			Modulation:  fields[2],
			FrequencyHz: uint64(freqMHz * 1e6),
			PowerDBmV:   power,
			SNRdB:       snr,
			Corrected:   corrected,
			Uncorrected: uncorrected,
		})
	}

	// Upstream record: index^lock^type^id^rate^freqMHz^power^
	for _, record := range splitMotoRecords(envelope.Multiple.Upstream.Channels) {
		fields := splitMotoFields(record)
		if len(fields) < 7 {
			continue
		}
		id, ok := docsis.ParseChannelID(fields[3])
		if !ok {
			continue
		}
		freqMHz, _ := docsis.ParseDecibel(fields[5])
		power, _ := docsis.ParseDecibel(fields[6])
		symbolRate, _ := docsis.ParseChannelID(fields[4])
		result.Upstream = append(result.Upstream, docsis.UpstreamChannel{
			ChannelID:   id,
			LockStatus:  docsis.ParseLocked(fields[1]),
			ChannelType: normalizeUpstreamType(fields[2]),
			FrequencyHz: uint64(freqMHz * 1e6),
			PowerDBmV:   power,
			SymbolRate:  symbolRate,
		})
	}

	info := &docsis.SystemInfo{
		SoftwareVersion: envelope.Multiple.Software.SoftwareVersion,
		HardwareVersion: envelope.Multiple.Software.HardwareVersion,
		SerialNumber:    envelope.Multiple.Software.SerialNumber,
	}
	if uptime, ok := docsis.ParseUptime(envelope.Multiple.Connection.Uptime); ok {
		info.Uptime = uptime
		info.LastBoot = docsis.LastBoot(time.Now(), uptime)
	}
	if info.SoftwareVersion != "" || info.Uptime > 0 {
		result.System = info
	}
	return result, nil
}

func splitMotoRecords(s string) []string {
	var out []string
	for _, r := range strings.Split(s, "|+|") {
		if strings.TrimSpace(r) != "" {
			out = append(out, r)
		}
	}
	return out
}

func splitMotoFields(record string) []string {
	fields := strings.Split(record, "^")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}
