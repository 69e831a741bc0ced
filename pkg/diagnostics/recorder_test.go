package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderOrderAndIdempotence(t *testing.T) {
	rec := NewRecorder(nil, true)

	rec.RecordResponse("http://modem/a", 200, nil, "body a")
	rec.RecordResponse("http://modem/b", 200, nil, "body b")
	rec.RecordResponse("http://modem/a", 200, nil, "changed")
	rec.RecordFailure("http://modem/c", 500, "boom")
	rec.RecordFailure("http://modem/c", 404, "again")

	responses, failures := rec.Snapshot()
	require.Len(t, responses, 2)
	require.Len(t, failures, 1)

	assert.Equal(t, "http://modem/a", responses[0].URL)
	assert.Equal(t, "http://modem/b", responses[1].URL)
	// First capture per URL wins.
	assert.Equal(t, "body a", responses[0].Body)
	assert.Equal(t, 500, failures[0].Status)

	assert.NotEmpty(t, rec.CycleID())
	assert.Equal(t, rec.CycleID(), responses[0].ID)
}

func TestRecorderDisabled(t *testing.T) {
	rec := NewRecorder(nil, false)
	rec.RecordResponse("http://modem/a", 200, nil, "body")
	rec.RecordFailure("http://modem/b", 500, "boom")

	responses, failures := rec.Snapshot()
	assert.Empty(t, responses)
	assert.Empty(t, failures)
	assert.False(t, rec.Enabled())
}

func TestRecorderUniqueCycleIDs(t *testing.T) {
	a := NewRecorder(nil, true)
	b := NewRecorder(nil, true)
	assert.NotEqual(t, a.CycleID(), b.CycleID())
}

func TestRedactorMasksCredentials(t *testing.T) {
	rd := NewRedactor()

	tests := []struct {
		name string
		in   string
		leak string
	}{
		{name: "json password", in: `{"loginPassword":"hunter2","user":"admin"}`, leak: "hunter2"},
		{name: "query token", in: `token=YWRtaW46aHVudGVyMg==&page=1`, leak: "YWRtaW46aHVudGVyMg"},
		{name: "basic header", in: `Authorization: Basic YWRtaW46cHc=`, leak: "YWRtaW46cHc"},
		{name: "hnap key", in: `"PrivateKey": "E098B77B28748700"`, leak: "E098B77B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := rd.Sanitize(tt.in)
			assert.NotContains(t, out, tt.leak)
			assert.Contains(t, out, "REDACTED")
		})
	}

	// Channel data passes through untouched.
	body := `{"frequency":"549000000","snr":"38.9"}`
	assert.Equal(t, body, rd.Sanitize(body))
}

func TestRecorderSanitizesBeforeStoring(t *testing.T) {
	rec := NewRecorder(NewRedactor(), true)
	rec.RecordResponse("http://modem/login", 200, nil, `{"password":"hunter2"}`)

	responses, _ := rec.Snapshot()
	require.Len(t, responses, 1)
	assert.NotContains(t, responses[0].Body, "hunter2")
}
