package parsers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hitronDsFixture = `[
  {"portId":"1","frequency":"615000000","modulation":"QAM256","signalStrength":"2.9",
   "snr":"38.6","channelId":"9","correcteds":"456","uncorrect":"3"},
  {"portId":"2","frequency":"621000000","modulation":"QAM256","signalStrength":"3.1",
   "snr":"38.9","channelId":"10","correcteds":"0","uncorrect":"0"}
]`

const hitronUsFixture = `[
  {"portId":"1","frequency":"36300000","bandwidth":"6400000","modulationType":"ATDMA",
   "signalStrength":"46.5","channelId":"2"}
]`

const hitronSysFixture = `[
  {"swVersion":"7.1.1.34","hwVersion":"1A","serialNumber":"XYZ789","systemUptime":"05 Days,12 Hours,30 Minutes,9 Seconds"}
]`

func TestHitronParse(t *testing.T) {
	env := fixtureEnv(map[string]string{
		"/data/dsinfo.asp":     hitronDsFixture,
		"/data/usinfo.asp":     hitronUsFixture,
		"/data/getSysInfo.asp": hitronSysFixture,
	})

	result, err := hitronParser{}.Parse(context.Background(), env)
	require.NoError(t, err)

	require.Len(t, result.Downstream, 2)
	require.Len(t, result.Upstream, 1)

	assert.Equal(t, 9, result.Downstream[0].ChannelID)
	assert.Equal(t, uint64(615000000), result.Downstream[0].FrequencyHz)
	assert.InDelta(t, 38.6, result.Downstream[0].SNRdB, 0.001)
	assert.Equal(t, uint64(456), result.Downstream[0].Corrected)

	assert.Equal(t, 2, result.Upstream[0].ChannelID)
	assert.Equal(t, "ATDMA", result.Upstream[0].ChannelType)
	assert.InDelta(t, 46.5, result.Upstream[0].PowerDBmV, 0.001)

	require.NotNil(t, result.System)
	assert.Equal(t, "7.1.1.34", result.System.SoftwareVersion)
	assert.Equal(t, "XYZ789", result.System.SerialNumber)
	assert.Equal(t, 5*24*3600+12*3600+30*60+9, int(result.System.Uptime.Seconds()))
}

func TestHitronParseBadRowSkipped(t *testing.T) {
	env := fixtureEnv(map[string]string{
		"/data/dsinfo.asp": `[{"channelId":"","frequency":"615000000"},{"channelId":"4","frequency":"615000000"}]`,
		"/data/usinfo.asp": `[]`,
	})
	result, err := hitronParser{}.Parse(context.Background(), env)
	require.NoError(t, err)
	assert.Len(t, result.Downstream, 1)
	assert.Nil(t, result.System)
}
