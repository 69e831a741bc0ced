package orchestrator

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coaxwatch/coaxwatch/internal/config"
	"github.com/coaxwatch/coaxwatch/internal/logger"
	"github.com/coaxwatch/coaxwatch/pkg/auth"
	"github.com/coaxwatch/coaxwatch/pkg/docsis"
	"github.com/coaxwatch/coaxwatch/pkg/hnap"
	"github.com/coaxwatch/coaxwatch/pkg/parsers"
	"github.com/coaxwatch/coaxwatch/pkg/parsers/detect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const arrisLandingPage = `<html><head><title>ARRIS SB8200</title></head>
<body><p>Broadband device status</p></body></html>`

const arrisStatusPage = `<html><body>
<h3>Downstream Bonded Channels</h3>
<table>
<tr><th>Channel ID</th><th>Lock Status</th><th>Modulation</th><th>Frequency</th><th>Power</th><th>SNR/MER</th><th>Corrected</th><th>Uncorrectables</th></tr>
<tr><td>1</td><td>Locked</td><td>QAM256</td><td>549000000 Hz</td><td>7.5 dBmV</td><td>38.9 dB</td><td>123</td><td>4</td></tr>
<tr><td>2</td><td>Locked</td><td>QAM256</td><td>555000000 Hz</td><td>6.9 dBmV</td><td>39.1 dB</td><td>88</td><td>0</td></tr>
</table>
<h3>Upstream Bonded Channels</h3>
<table>
<tr><th>Channel</th><th>Channel ID</th><th>Lock Status</th><th>US Channel Type</th><th>Frequency</th><th>Width</th><th>Power</th></tr>
<tr><td>1</td><td>5</td><td>Locked</td><td>SC-QAM Upstream</td><td>36500000 Hz</td><td>6400000 Hz</td><td>44.0 dBmV</td></tr>
</table>
</body></html>`

const arrisSwinfoPage = `<html><body><table>
<tr><td>Software Version</td><td>AB01.02.053.05_051921_193.0A.NSH</td></tr>
<tr><td>Hardware Version</td><td>6</td></tr>
<tr><td>Serial Number</td><td>123456789</td></tr>
<tr><td>Up Time</td><td>12 days 03:04:05</td></tr>
</table></body></html>`

const expiredLoginPage = `<html><body><form action="/login" method="post">
<input type="password" name="pw"></form></body></html>`

func testLog(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(config.LoggerConfig{Level: "error", Format: "console"})
	require.NoError(t, err)
	return log
}

func newOrchestrator(t *testing.T, opts Options) *Orchestrator {
	t.Helper()
	o, err := New(testLog(t), parsers.NewRegistry(), opts)
	require.NoError(t, err)
	return o
}

// arrisModem emulates an SB8200: every page behind HTTP Basic auth,
// discovery and detection both exercised from scratch.
func arrisModem(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			w.Header().Set("WWW-Authenticate", `Basic realm="modem"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, arrisLandingPage)
		case "/cmconnectionstatus.html":
			fmt.Fprint(w, arrisStatusPage)
		case "/cmswinfo.html":
			fmt.Fprint(w, arrisSwinfoPage)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPollCycleBasicAuthEndToEnd(t *testing.T) {
	srv := arrisModem(t)

	o := newOrchestrator(t, Options{
		Host:        srv.URL,
		Credentials: auth.Credentials{Username: "admin", Password: "secret"},
	})

	result, err := o.GetModemData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "arris_sb8200", result.ParserName)
	assert.Equal(t, docsis.StatusOK, result.Status)
	require.Len(t, result.Downstream, 2)
	assert.Equal(t, uint64(549000000), result.Downstream[0].FrequencyHz)
	require.Len(t, result.Upstream, 1)
	require.NotNil(t, result.System)
	assert.Equal(t, "AB01.02.053.05_051921_193.0A.NSH", result.System.SoftwareVersion)

	info := o.DetectionInfo()
	assert.Equal(t, "arris_sb8200", info["parser"])
	assert.Equal(t, string(auth.StrategyBasic), info["auth_kind"])
	assert.Equal(t, "http", info["protocol"])
}

func TestPollCycleReusesCachedState(t *testing.T) {
	srv := arrisModem(t)

	o := newOrchestrator(t, Options{
		Host:        srv.URL,
		Credentials: auth.Credentials{Username: "admin", Password: "secret"},
	})

	_, err := o.GetModemData(context.Background())
	require.NoError(t, err)

	// Second poll reuses protocol, strategy, and parser without
	// re-discovery.
	result, err := o.GetModemData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "arris_sb8200", result.ParserName)
}

func TestPollCycleMissingCredentials(t *testing.T) {
	srv := arrisModem(t)

	o := newOrchestrator(t, Options{Host: srv.URL})

	_, err := o.GetModemData(context.Background())
	require.Error(t, err)
	var ce *CycleError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, auth.KindMissingCredentials, ce.Kind)
	assert.NotEmpty(t, ce.Diagnosis().Steps)
}

func TestPollCycleInvalidCredentials(t *testing.T) {
	srv := arrisModem(t)

	o := newOrchestrator(t, Options{
		Host:        srv.URL,
		Credentials: auth.Credentials{Username: "admin", Password: "wrong"},
	})

	_, err := o.GetModemData(context.Background())
	require.Error(t, err)
	var ce *CycleError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, auth.KindInvalidCredentials, ce.Kind)
}

func TestSessionExpiryReauthsExactlyOnce(t *testing.T) {
	var logins atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			if r.Method == http.MethodPost && r.FormValue("pw") == "secret" {
				logins.Add(1)
				fmt.Fprint(w, `<html><body>Welcome</body></html>`)
				return
			}
			fmt.Fprint(w, expiredLoginPage)
		case "/cmconnectionstatus.html":
			// The first data fetch lands on an expired session; only
			// after the second login does real data come back.
			if logins.Load() < 2 {
				fmt.Fprint(w, expiredLoginPage)
				return
			}
			fmt.Fprint(w, arrisStatusPage)
		case "/cmswinfo.html":
			fmt.Fprint(w, arrisSwinfoPage)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	o := newOrchestrator(t, Options{
		Host:        srv.URL,
		Credentials: auth.Credentials{Username: "admin", Password: "secret"},
		ParserName:  "arris_sb8200",
		Strategy: &auth.StrategyDescriptor{
			Kind: auth.StrategyFormPlain,
			Form: &auth.FormSpec{Action: "/login", PasswordField: "pw"},
		},
	})

	result, err := o.GetModemData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, docsis.StatusOK, result.Status)
	require.Len(t, result.Downstream, 2)
	assert.Equal(t, int32(2), logins.Load())
}

func TestRetryableLoginFailureRetriesOnce(t *testing.T) {
	var authedGets atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		// The first authenticated request hits a transient firmware
		// error; everything after behaves.
		if authedGets.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		switch r.URL.Path {
		case "/cmconnectionstatus.html":
			fmt.Fprint(w, arrisStatusPage)
		case "/cmswinfo.html":
			fmt.Fprint(w, arrisSwinfoPage)
		default:
			fmt.Fprint(w, arrisLandingPage)
		}
	}))
	defer srv.Close()

	o := newOrchestrator(t, Options{
		Host:        srv.URL,
		Credentials: auth.Credentials{Username: "admin", Password: "secret"},
		ParserName:  "arris_sb8200",
	})

	result, err := o.GetModemData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, docsis.StatusOK, result.Status)
}

func TestGradeResultDegradedOnMissingSystem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cmconnectionstatus.html":
			fmt.Fprint(w, arrisStatusPage)
		default:
			// No software info page on this firmware build.
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	o := newOrchestrator(t, Options{
		Host:       srv.URL,
		ParserName: "arris_sb8200",
		Strategy:   &auth.StrategyDescriptor{Kind: auth.StrategyNone},
	})

	result, err := o.GetModemData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, docsis.StatusDegraded, result.Status)
	assert.Nil(t, result.System)
}

const motoLandingPage = `<html><head><title>Motorola Cable Modem</title>
<script src="/js/SOAP/SOAPAction.js"></script>
<script>var endpoint = "/HNAP1/";</script>
</head><body>Loading</body></html>`

const motoStatusPayload = `{
  "GetMultipleHNAPsResponse": {
    "GetMotoStatusDownstreamChannelInfoResponse": {
      "MotoConnDownstreamChannel": "1^Locked^QAM256^13^549.0^ 3.5^39.0^345^0^"
    },
    "GetMotoStatusUpstreamChannelInfoResponse": {
      "MotoConnUpstreamChannel": "1^Locked^SC-QAM^3^5120^36.6^45.5^"
    },
    "GetMotoStatusSoftwareResponse": {
      "StatusSoftwareSfVer": "8611-19.2.18",
      "StatusSoftwareHdVer": "V1.0",
      "StatusSoftwareSerialNum": "ABCD1234"
    },
    "GetMotoStatusConnectionInfoResponse": {
      "MotoConnSystemUpTime": "7 days 01h:02m:03s"
    },
    "GetMultipleHNAPsResult": "OK"
  }
}`

// TestPollCycleHNAPEndToEnd exercises the full stack against an emulated
// Motorola: discovery classifies HNAP from the landing page, the two-phase
// challenge-response login runs, and the parser pulls channel data over
// authenticated HNAP calls.
func TestPollCycleHNAPEndToEnd(t *testing.T) {
	const challenge = "ABCD"
	const publicKey = "1234"
	const password = "motorola"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/HNAP1/" {
			fmt.Fprint(w, motoLandingPage)
			return
		}
		body, _ := io.ReadAll(r.Body)
		action := strings.Trim(r.Header.Get("SOAPAction"), `"`)
		switch {
		case strings.HasSuffix(action, "/Login") && strings.Contains(string(body), `"Action":"request"`):
			fmt.Fprintf(w, `{"LoginResponse":{"Challenge":%q,"PublicKey":%q,"Cookie":"xyz","LoginResult":"OK"}}`,
				challenge, publicKey)
		case strings.HasSuffix(action, "/Login"):
			expected := hnap.LoginPassword(hnap.MD5, hnap.PrivateKey(hnap.MD5, publicKey, password, challenge), challenge)
			if strings.Contains(string(body), expected) {
				fmt.Fprint(w, `{"LoginResponse":{"LoginResult":"OK"}}`)
			} else {
				fmt.Fprint(w, `{"LoginResponse":{"LoginResult":"FAILED"}}`)
			}
		default:
			if r.Header.Get("HNAP_AUTH") == "" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			fmt.Fprint(w, motoStatusPayload)
		}
	}))
	defer srv.Close()

	o := newOrchestrator(t, Options{
		Host:        srv.URL,
		Credentials: auth.Credentials{Username: "admin", Password: password},
	})

	result, err := o.GetModemData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "motorola_mb", result.ParserName)
	assert.Equal(t, docsis.StatusOK, result.Status)
	require.Len(t, result.Downstream, 1)
	assert.Equal(t, 13, result.Downstream[0].ChannelID)
	assert.Equal(t, uint64(549000000), result.Downstream[0].FrequencyHz)
	require.Len(t, result.Upstream, 1)
	require.NotNil(t, result.System)
	assert.Equal(t, "8611-19.2.18", result.System.SoftwareVersion)

	info := o.DetectionInfo()
	assert.Equal(t, string(auth.StrategyHNAP), info["auth_kind"])
}

func TestRestartFailsClosedWithoutCapability(t *testing.T) {
	srv := arrisModem(t)

	o := newOrchestrator(t, Options{
		Host:       srv.URL,
		ParserName: "arris_sb8200",
		Strategy:   &auth.StrategyDescriptor{Kind: auth.StrategyNone},
	})

	ok, err := o.RestartModem(context.Background(), auth.Credentials{})
	assert.False(t, ok)
	require.Error(t, err)
	var ce *CycleError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, auth.KindRestartUnsupported, ce.Kind)
}

func TestHostUnreachable(t *testing.T) {
	o := newOrchestrator(t, Options{Host: "127.0.0.1:1"})

	_, err := o.GetModemData(context.Background())
	require.Error(t, err)
	var ce *CycleError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, auth.KindConnectionFailed, ce.Kind)
}

func TestDiagnosticsCaptureRedacted(t *testing.T) {
	srv := arrisModem(t)

	o := newOrchestrator(t, Options{
		Host:        srv.URL,
		Credentials: auth.Credentials{Username: "admin", Password: "secret"},
		Diagnostics: true,
	})

	_, err := o.GetModemData(context.Background())
	require.NoError(t, err)

	responses, _ := o.Diagnostics().Snapshot()
	assert.NotEmpty(t, responses)
	for _, c := range responses {
		assert.NotContains(t, c.Body, "secret")
	}
}

const compalConnectionPayload = `{
  "downstream": [
    {"channelid": "1", "freq": "602000000", "pow": "5.1", "snr": "38.6",
     "mod": "256qam", "locked": "Locked", "correcteds": "12", "uncorrectables": "0"},
    {"channelid": "2", "freq": "610000000", "pow": "4.8", "snr": "38.9",
     "mod": "256qam", "locked": "Locked", "correcteds": "3", "uncorrectables": "0"}
  ],
  "upstream": [
    {"channelid": "4", "freq": "36000000", "pow": "43.5", "channeltype": "atdma",
     "srate": "5120", "locked": "Locked"}
  ]
}`

const compalSystemPayload = `{
  "swversion": "CH7465LG-NCIP-6.12.18.26",
  "hwversion": "5.01",
  "serialnumber": "DDAP71234567",
  "uptime": "3day(s)12h:30m:09s"
}`

// Some Compal firmwares reject data requests that omit the credential token
// from the Authorization header even when the session cookie is valid.
func TestPollCycleURLTokenAuthHeaderEndToEnd(t *testing.T) {
	expected := base64.StdEncoding.EncodeToString([]byte("admin:secret"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/php/index_login.php":
			if r.URL.Query().Get("token") != expected {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "sessionToken", Value: "tok42", Path: "/"})
			fmt.Fprint(w, "OK")
		case "/php/ajaxGet_connection_data.php":
			if r.Header.Get("Authorization") != "Basic "+expected {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if r.URL.Query().Get("token") != "tok42" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			fmt.Fprint(w, compalConnectionPayload)
		case "/php/ajaxGet_system_info.php":
			if r.Header.Get("Authorization") != "Basic "+expected {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			fmt.Fprint(w, compalSystemPayload)
		case "/php/logout.php":
			fmt.Fprint(w, "OK")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	o := newOrchestrator(t, Options{
		Host:        srv.URL,
		Credentials: auth.Credentials{Username: "admin", Password: "secret"},
		ParserName:  "compal_ch7465",
		Strategy: &auth.StrategyDescriptor{
			Kind: auth.StrategyURLToken,
			URLToken: &auth.URLTokenSpec{
				LoginPath:      "/php/index_login.php",
				CookieName:     "sessionToken",
				SendAuthHeader: true,
				SendAjaxHeader: true,
			},
		},
	})

	result, err := o.GetModemData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "compal_ch7465", result.ParserName)
	require.Len(t, result.Downstream, 2)
	assert.Equal(t, uint64(602000000), result.Downstream[0].FrequencyHz)
	require.Len(t, result.Upstream, 1)
	assert.Equal(t, "ATDMA", result.Upstream[0].ChannelType)
	require.NotNil(t, result.System)
	assert.Equal(t, "CH7465LG-NCIP-6.12.18.26", result.System.SoftwareVersion)
	assert.Equal(t, 3*24*time.Hour+12*time.Hour+30*time.Minute+9*time.Second, result.System.Uptime)
}

const netgearDocsisPage = `<html><body>
<table>
<tr><th>Channel</th><th>Lock Status</th><th>Modulation</th><th>Channel ID</th><th>Frequency</th><th>Power</th><th>SNR</th><th>Correctables</th><th>Uncorrectables</th></tr>
<tr><td>1</td><td>Locked</td><td>QAM256</td><td>25</td><td>603000000 Hz</td><td>1.9 dBmV</td><td>40.3 dB</td><td>1523</td><td>0</td></tr>
<tr><td>2</td><td>Locked</td><td>QAM256</td><td>26</td><td>609000000 Hz</td><td>2.1 dBmV</td><td>40.1 dB</td><td>87</td><td>0</td></tr>
</table>
<table>
<tr><th>Channel</th><th>Lock Status</th><th>US Channel Type</th><th>Channel ID</th><th>Symbol Rate</th><th>Frequency</th><th>Power</th></tr>
<tr><td>1</td><td>Locked</td><td>ATDMA</td><td>7</td><td>5120</td><td>30400000 Hz</td><td>45.8 dBmV</td></tr>
</table>
<span id="SystemUpTime">4 days 01:02:03</span>
</body></html>`

const netgearRouterPage = `<html><body><table>
<tr><td>Software Version</td><td>V2.02.03</td></tr>
<tr><td>Hardware Version</td><td>CM600</td></tr>
<tr><td>Serial Number</td><td>SER123</td></tr>
</table></body></html>`

const netgearLoginPage = `<html><body><form action="/goform/GenieLogin" method="post">
<input type="text" name="loginUsername"><input type="password" name="loginPassword">
</form></body></html>`

func TestPollCycleFormBase64EndToEnd(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("secret"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authed := false
		if c, err := r.Cookie("GENIE_SESSION"); err == nil && c.Value == "ok" {
			authed = true
		}
		switch r.URL.Path {
		case "/goform/GenieLogin":
			if r.Method != http.MethodPost ||
				r.FormValue("loginUsername") != "admin" ||
				r.FormValue("loginPassword") != encoded ||
				r.FormValue("login") != "1" {
				fmt.Fprint(w, netgearLoginPage)
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "GENIE_SESSION", Value: "ok", Path: "/"})
			http.Redirect(w, r, "/DocsisStatus.htm", http.StatusFound)
		case "/DocsisStatus.htm":
			if !authed {
				fmt.Fprint(w, netgearLoginPage)
				return
			}
			fmt.Fprint(w, netgearDocsisPage)
		case "/RouterStatus.htm":
			if !authed {
				fmt.Fprint(w, netgearLoginPage)
				return
			}
			fmt.Fprint(w, netgearRouterPage)
		case "/Logout.htm":
			fmt.Fprint(w, "OK")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	o := newOrchestrator(t, Options{
		Host:        srv.URL,
		Credentials: auth.Credentials{Username: "admin", Password: "secret"},
		ParserName:  "netgear_cm",
	})

	result, err := o.GetModemData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "netgear_cm", result.ParserName)
	assert.Equal(t, docsis.StatusOK, result.Status)
	require.Len(t, result.Downstream, 2)
	assert.Equal(t, 25, result.Downstream[0].ChannelID)
	require.Len(t, result.Upstream, 1)
	assert.Equal(t, "ATDMA", result.Upstream[0].ChannelType)
	require.NotNil(t, result.System)
	assert.Equal(t, "V2.02.03", result.System.SoftwareVersion)
	assert.Equal(t, 4*24*time.Hour+time.Hour+2*time.Minute+3*time.Second, result.System.Uptime)

	info := o.DetectionInfo()
	assert.Equal(t, string(auth.StrategyFormBase64), info["auth_kind"])
}

// A restart right after a poll that burned the whole detection budget must
// start with a fresh budget, the same way GetModemData does.
func TestRestartResetsDetectionBudget(t *testing.T) {
	srv := arrisModem(t)

	o := newOrchestrator(t, Options{
		Host:       srv.URL,
		ParserName: "arris_sb8200",
		Strategy:   &auth.StrategyDescriptor{Kind: auth.StrategyNone},
	})
	o.breaker = detect.NewCircuitBreaker(2, time.Minute, 0)
	o.breaker.Attempt(context.Background())
	o.breaker.Attempt(context.Background())
	require.Equal(t, 0, o.breaker.Remaining())

	_, err := o.RestartModem(context.Background(), auth.Credentials{})
	require.Error(t, err) // the SB8200 descriptor declares no restart
	assert.Equal(t, 2, o.breaker.Remaining())
}
