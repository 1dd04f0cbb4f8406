package timestamp

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testTime   = time.Date(2023, 1, 15, 12, 30, 45, 123000000, time.UTC)
	testTimeMs = int64(1673785845123)
)

func TestParseDomain(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    Domain
		wantErr bool
	}{
		{name: "hardware tag", input: "hardware-clock", want: DomainHardware},
		{name: "system tag", input: "system-time", want: DomainSystem},
		{name: "global tag", input: "global-time", want: DomainGlobal},
		{name: "numeric code", input: 2, want: DomainGlobal},
		{name: "json number code", input: float64(1), want: DomainSystem},
		{name: "unknown tag", input: "wall-clock", wantErr: true},
		{name: "unknown code", input: 7, wantErr: true},
		{name: "wrong type", input: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDomain(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDomain_WireRoundTrip(t *testing.T) {
	data, err := json.Marshal(DomainGlobal)
	require.NoError(t, err)
	assert.Equal(t, `"global-time"`, string(data))

	var d Domain
	require.NoError(t, json.Unmarshal([]byte(`"system-time"`), &d))
	assert.Equal(t, DomainSystem, d)

	// Numeric codes decode too.
	require.NoError(t, json.Unmarshal([]byte(`2`), &d))
	assert.Equal(t, DomainGlobal, d)

	assert.Error(t, json.Unmarshal([]byte(`"sundial"`), &d))
}

func TestDomain_EpochBased(t *testing.T) {
	assert.False(t, DomainHardware.EpochBased())
	assert.True(t, DomainSystem.EpochBased())
	assert.True(t, DomainGlobal.EpochBased())
}

func TestDomain_StringUnknown(t *testing.T) {
	assert.Equal(t, "domain(9)", Domain(9).String())
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  int64
	}{
		{name: "milliseconds", input: testTimeMs, want: testTimeMs},
		{name: "seconds", input: int64(1673785845), want: 1673785845000},
		{name: "int seconds", input: 1673785845, want: 1673785845000},
		{name: "float milliseconds", input: float64(1673785845123), want: testTimeMs},
		{name: "float seconds", input: 1673785845.0, want: 1673785845000},
		{name: "rfc3339", input: "2023-01-15T12:30:45Z", want: 1673785845000},
		{name: "numeric string", input: "1673785845", want: 1673785845000},
		{name: "float string", input: "1673785845.5", want: 1673785845500},
		{name: "time value", input: testTime, want: testTimeMs},
		{name: "nil", input: nil, want: 0},
		{name: "zero", input: int64(0), want: 0},
		{name: "empty string", input: "", want: 0},
		{name: "garbage string", input: "noon-ish", want: 0},
		{name: "wrong type", input: []int{1}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.input))
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "2023-01-15T12:30:45.123Z", Format(testTimeMs))
	assert.Empty(t, Format(0))
}

func TestConversions_ZeroContract(t *testing.T) {
	assert.True(t, FromUnixMs(0).IsZero())
	assert.Zero(t, ToUnixMs(time.Time{}))

	// The epoch itself lands on ms 0 and reads back as unset.
	assert.Zero(t, ToUnixMs(time.Unix(0, 0)))

	assert.Equal(t, testTimeMs, ToUnixMs(FromUnixMs(testTimeMs)))
	assert.True(t, IsZero(0))
	assert.False(t, IsZero(testTimeMs))
}

func TestBetween(t *testing.T) {
	start := testTimeMs
	assert.Equal(t, 1500*time.Millisecond, Between(start, start+1500))
	assert.Equal(t, -time.Second, Between(start, start-1000))
	assert.Zero(t, Between(0, start))
	assert.Zero(t, Between(start, 0))
}

func TestSince(t *testing.T) {
	assert.Zero(t, Since(0))

	elapsed := Since(Now())
	assert.GreaterOrEqual(t, elapsed, time.Duration(0))
	assert.Less(t, elapsed, time.Minute)
}
