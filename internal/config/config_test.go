package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, "info", c.Logger.Level)
	assert.Equal(t, 30*time.Second, c.Poll.Timeout)
	assert.Empty(t, c.Modems)
}

func TestValidateRejectsEmptyModemList(t *testing.T) {
	c := Default()
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no modems configured")
}

func TestValidateRejectsBlankHost(t *testing.T) {
	c := Default()
	c.Modems = []ModemConfig{
		{Host: "192.168.100.1"},
		{Host: "   "},
	}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "modem 1: host is required")
}

func TestValidateAcceptsConfiguredModems(t *testing.T) {
	c := Default()
	c.Modems = []ModemConfig{{Host: "192.168.100.1", Username: "admin"}}
	require.NoError(t, c.Validate())
}
