// Package docsis defines the normalized channel and system dataset produced
// by one poll cycle, independent of modem model.
package docsis

import "time"

// Capability declares what a parser can extract. A PollResult never carries
// placeholder values for capabilities its parser does not declare.
type Capability string

const (
	CapSCQAMDownstream Capability = "scqam_downstream"
	CapOFDMDownstream  Capability = "ofdm_downstream"
	CapATDMAUpstream   Capability = "atdma_upstream"
	CapOFDMAUpstream   Capability = "ofdma_upstream"
	CapSystemUptime    Capability = "system_uptime"
	CapSoftwareVersion Capability = "software_version"
	CapRestart         Capability = "restart"
	CapEventLog        Capability = "event_log"
)

// CapabilitySet is an immutable membership set.
type CapabilitySet map[Capability]struct{}

func NewCapabilitySet(caps ...Capability) CapabilitySet {
	s := make(CapabilitySet, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// Channel is one downstream SC-QAM channel. Identity does not persist across
// polls beyond ChannelID.
type Channel struct {
	ChannelID   int     `json:"channel_id"`
	LockStatus  bool    `json:"lock_status"`
	Modulation  string  `json:"modulation"`
	FrequencyHz uint64  `json:"frequency_hz"`
	PowerDBmV   float64 `json:"power_dbmv"`
	SNRdB       float64 `json:"snr_db"`
	Corrected   uint64  `json:"corrected"`
	Uncorrected uint64  `json:"uncorrected"`
}

// OFDMChannel is a DOCSIS 3.1 downstream channel.
type OFDMChannel struct {
	ChannelID   int     `json:"channel_id"`
	LockStatus  bool    `json:"lock_status"`
	Profile     string  `json:"profile"`
	FrequencyHz uint64  `json:"frequency_hz"`
	PowerDBmV   float64 `json:"power_dbmv"`
	RxMERdB     float64 `json:"rxmer_db"`
	Corrected   uint64  `json:"corrected"`
	Uncorrected uint64  `json:"uncorrected"`
}

// UpstreamChannel is one ATDMA or OFDMA upstream channel.
type UpstreamChannel struct {
	ChannelID   int     `json:"channel_id"`
	LockStatus  bool    `json:"lock_status"`
	ChannelType string  `json:"channel_type"` // "ATDMA" or "OFDMA"
	FrequencyHz uint64  `json:"frequency_hz"`
	PowerDBmV   float64 `json:"power_dbmv"`
	SymbolRate  int     `json:"symbol_rate,omitempty"`
}

// SystemInfo fields are optional per capability.
type SystemInfo struct {
	SoftwareVersion string        `json:"software_version,omitempty"`
	HardwareVersion string        `json:"hardware_version,omitempty"`
	SerialNumber    string        `json:"serial_number,omitempty"`
	Uptime          time.Duration `json:"uptime,omitempty"`
	LastBoot        time.Time     `json:"last_boot,omitempty"`
}

// PollStatus is the terminal state of a poll cycle.
type PollStatus string

const (
	StatusOK       PollStatus = "ok"
	StatusDegraded PollStatus = "degraded"
	StatusFailed   PollStatus = "failed"
)

// PollResult is the terminal output of one orchestrator cycle. It is
// stateless and discarded by the core after hand-off.
type PollResult struct {
	Downstream     []Channel         `json:"downstream"`
	DownstreamOFDM []OFDMChannel     `json:"downstream_ofdm,omitempty"`
	Upstream       []UpstreamChannel `json:"upstream"`
	System         *SystemInfo       `json:"system,omitempty"`
	ParserName     string            `json:"parser_name"`
	Status         PollStatus        `json:"status"`
	FetchedAt      time.Time         `json:"fetched_at"`
}
