package parsers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const technicolorStatusFixture = `<html><body>
<table>
<tr><th>Channel</th><th>Channel ID</th><th>Lock Status</th><th>Channel Type</th><th>Bonded</th><th>Center Frequency</th><th>Width</th><th>SNR</th><th>Power</th><th>Modulation/Profile</th><th>Unerrored</th><th>Corrected</th><th>Uncorrectable</th></tr>
<tr><td>1</td><td>9</td><td>Locked</td><td>SC-QAM</td><td>Yes</td><td>138000000 Hz</td><td>8000000</td><td>37.4 dB</td><td>4.1 dBmV</td><td>QAM256</td><td>123456789</td><td>52</td><td>0</td></tr>
<tr><td>2</td><td>159</td><td>Locked</td><td>OFDM</td><td>Yes</td><td>680000000 Hz</td><td>96000000</td><td>41.2 dB</td><td>2.3 dBmV</td><td>Profile A</td><td>987654321</td><td>1200</td><td>14</td></tr>
</table>
<table>
<tr><th>Channel</th><th>Channel ID</th><th>Lock Status</th><th>Upstream Channel Type</th><th>Bonded</th><th>Center Frequency</th><th>Power</th></tr>
<tr><td>1</td><td>2</td><td>Locked</td><td>ATDMA</td><td>Yes</td><td>43600000 Hz</td><td>47.3 dBmV</td></tr>
</table>
</body></html>`

const technicolorSwinfoFixture = `<html><body><table>
<tr><td>Software Version</td><td>SR70.12.33-180327</td></tr>
<tr><td>Hardware Version</td><td>1.0</td></tr>
<tr><td>Serial Number</td><td>TC440012345</td></tr>
<tr><td>Up Time</td><td>21 days 10:11:12</td></tr>
</table></body></html>`

func TestTechnicolorParse(t *testing.T) {
	env := fixtureEnv(map[string]string{
		"/cmconnectionstatus.html": technicolorStatusFixture,
		"/cmswinfo.html":           technicolorSwinfoFixture,
	})

	result, err := technicolorParser{}.Parse(context.Background(), env)
	require.NoError(t, err)

	require.Len(t, result.Downstream, 1)
	ch := result.Downstream[0]
	assert.Equal(t, 9, ch.ChannelID)
	assert.True(t, ch.LockStatus)
	assert.Equal(t, "QAM256", ch.Modulation)
	assert.Equal(t, uint64(138000000), ch.FrequencyHz)
	assert.InDelta(t, 37.4, ch.SNRdB, 0.001)
	assert.InDelta(t, 4.1, ch.PowerDBmV, 0.001)
	assert.Equal(t, uint64(52), ch.Corrected)

	require.Len(t, result.DownstreamOFDM, 1)
	ofdm := result.DownstreamOFDM[0]
	assert.Equal(t, 159, ofdm.ChannelID)
	assert.Equal(t, "Profile A", ofdm.Profile)
	assert.Equal(t, uint64(14), ofdm.Uncorrected)

	require.Len(t, result.Upstream, 1)
	assert.Equal(t, 2, result.Upstream[0].ChannelID)
	assert.Equal(t, "ATDMA", result.Upstream[0].ChannelType)

	require.NotNil(t, result.System)
	assert.Equal(t, "SR70.12.33-180327", result.System.SoftwareVersion)
	assert.Equal(t, "TC440012345", result.System.SerialNumber)
}

func TestTechnicolorParseStatusFetchError(t *testing.T) {
	env := fixtureEnv(nil)
	_, err := technicolorParser{}.Parse(context.Background(), env)
	require.Error(t, err)
}
