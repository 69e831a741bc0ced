package detect

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/coaxwatch/coaxwatch/internal/config"
	"github.com/coaxwatch/coaxwatch/internal/httpclient"
	"github.com/coaxwatch/coaxwatch/internal/logger"
	"github.com/coaxwatch/coaxwatch/pkg/auth"
	"github.com/coaxwatch/coaxwatch/pkg/parsers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(config.LoggerConfig{Level: "error", Format: "console"})
	require.NoError(t, err)
	return log
}

func testDetector(t *testing.T) *Detector {
	t.Helper()
	sess, err := httpclient.NewSession(httpclient.DefaultConfig())
	require.NoError(t, err)
	return New(parsers.NewRegistry(), sess, testLogger(t), nil)
}

func TestDetectExplicitName(t *testing.T) {
	d := testDetector(t)
	desc, err := d.Detect(context.Background(), Input{ParserName: "arris_sb8200"})
	require.NoError(t, err)
	assert.Equal(t, "arris_sb8200", desc.Name)
}

func TestDetectExplicitNameUnknown(t *testing.T) {
	d := testDetector(t)
	_, err := d.Detect(context.Background(), Input{ParserName: "no_such_parser"})
	require.Error(t, err)

	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, auth.KindParserNotFound, derr.Kind)
}

func TestDetectPreAuthSingleMatch(t *testing.T) {
	d := testDetector(t)
	desc, err := d.Detect(context.Background(), Input{
		BaseURL:     "http://127.0.0.1:1", // never contacted
		PreAuthHTML: "<title>ARRIS SB8200 Login</title>",
	})
	require.NoError(t, err)
	assert.Equal(t, "arris_sb8200", desc.Name)
}

func TestDetectPostAuthviaPageHint(t *testing.T) {
	d := testDetector(t)
	fetched := map[string]int{}
	fetch := func(ctx context.Context, path string) (string, error) {
		fetched[path]++
		if path == "/cmconnectionstatus.html" {
			return "<html>ARRIS Downstream Bonded Channels</html>", nil
		}
		return "", fmt.Errorf("not found")
	}

	desc, err := d.Detect(context.Background(), Input{
		BaseURL: "http://127.0.0.1:1",
		Fetch:   fetch,
	})
	require.NoError(t, err)
	assert.Equal(t, "arris_sb8200", desc.Name)
	assert.Equal(t, 1, fetched["/cmconnectionstatus.html"])
}

func TestDetectIntersectionConflictFails(t *testing.T) {
	d := testDetector(t)
	// Pre-auth says NETGEAR and Sagemcom; page hints only ever confirm
	// ARRIS, so the intersection is empty.
	fetch := func(ctx context.Context, path string) (string, error) {
		return "<html>ARRIS Downstream Bonded Channels</html>", nil
	}
	_, err := d.Detect(context.Background(), Input{
		BaseURL:     "http://127.0.0.1:1",
		PreAuthHTML: "<html>netgear sagemcom</html>",
		Fetch:       fetch,
	})
	require.Error(t, err)

	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, auth.KindParserNotFound, derr.Kind)
}

func TestDetectFallbackOnTotalMiss(t *testing.T) {
	d := testDetector(t)
	fetch := func(ctx context.Context, path string) (string, error) {
		return "", fmt.Errorf("not found")
	}
	desc, err := d.Detect(context.Background(), Input{
		BaseURL: "http://127.0.0.1:1",
		Fetch:   fetch,
	})
	require.NoError(t, err)
	assert.Equal(t, "broadcom_generic", desc.Name)
	assert.True(t, desc.Fallback)
}

func TestDetectURLProbeMatch(t *testing.T) {
	d := testDetector(t)
	// No heuristic content anywhere, but the NETGEAR status URL answers
	// with plausible channel data.
	fetch := func(ctx context.Context, path string) (string, error) {
		if path == "/DocsisStatus.htm" {
			return "<html><table><tr><td>Downstream</td><td>Channel ID</td><td>Frequency</td></tr></table>first plausible data page body</html>", nil
		}
		return "", fmt.Errorf("not found")
	}
	desc, err := d.Detect(context.Background(), Input{
		BaseURL: "http://127.0.0.1:1",
		Fetch:   fetch,
	})
	require.NoError(t, err)
	assert.Equal(t, "netgear_cm", desc.Name)
}

func TestDetectDeterministic(t *testing.T) {
	in := Input{
		BaseURL:     "http://127.0.0.1:1",
		PreAuthHTML: "<title>ARRIS SB8200</title>",
	}
	for i := 0; i < 5; i++ {
		d := testDetector(t)
		desc, err := d.Detect(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, "arris_sb8200", desc.Name)
	}
}

func TestDetectBudgetExhaustion(t *testing.T) {
	sess, err := httpclient.NewSession(httpclient.DefaultConfig())
	require.NoError(t, err)
	breaker := NewCircuitBreaker(1, time.Minute, 0)
	d := New(parsers.NewRegistry(), sess, testLogger(t), breaker)

	fetch := func(ctx context.Context, path string) (string, error) {
		return "", fmt.Errorf("unreachable")
	}
	_, err = d.Detect(context.Background(), Input{
		BaseURL: "http://127.0.0.1:1",
		Fetch:   fetch,
	})
	require.Error(t, err)

	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, auth.KindCircuitBroken, derr.Kind)
}

func TestDetectAmbiguousPreAuthResolvedByProbing(t *testing.T) {
	d := testDetector(t)

	// Channel data with no brand markers, so page hints stay inconclusive
	// and only the URL probe can break the tie.
	channelBody := `<table><tr><th>Channel ID</th><th>Frequency</th></tr>
<tr><td>1</td><td>549000000 Hz</td></tr><tr><td>2</td><td>555000000 Hz</td></tr></table>`

	fetched := map[string]int{}
	fetch := func(ctx context.Context, path string) (string, error) {
		fetched[path]++
		if path == "/DocsisStatus.htm" {
			return channelBody, nil
		}
		return "", fmt.Errorf("not found")
	}

	desc, err := d.Detect(context.Background(), Input{
		BaseURL:     "http://127.0.0.1:1",
		PreAuthHTML: "<title>Cable Modem</title><p>ARRIS and NETGEAR hardware inside</p>",
		Fetch:       fetch,
	})
	require.NoError(t, err)
	assert.Equal(t, "netgear_cm", desc.Name)

	// Probing stays inside the pre-auth candidate set.
	candidates := map[string]bool{
		"/cmconnectionstatus.html": true,
		"/cgi-bin/status":          true,
		"/DocsisStatus.htm":        true,
		"/RouterStatus.htm":        true,
	}
	for path := range fetched {
		assert.True(t, candidates[path], "fetched non-candidate path %s", path)
	}
}

func TestDetectAmbiguousPreAuthFallsBackToFirst(t *testing.T) {
	d := testDetector(t)
	fetch := func(ctx context.Context, path string) (string, error) {
		return "", fmt.Errorf("not found")
	}
	desc, err := d.Detect(context.Background(), Input{
		BaseURL:     "http://127.0.0.1:1",
		PreAuthHTML: "<p>ARRIS and NETGEAR hardware inside</p>",
		Fetch:       fetch,
	})
	require.NoError(t, err)
	assert.Equal(t, "arris_sb8200", desc.Name)
}
