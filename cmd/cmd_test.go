package cmd

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/etnz/treasury"
	"github.com/etnz/treasury/date"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstant(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	cal := treasury.CutoffCalendar{Location: kolkata}

	testCases := []struct {
		name string
		demo bool
		at   string
		want time.Time
	}{
		{name: "wall clock", at: "2025-09-02T09:30", want: time.Date(2025, 9, 2, 9, 30, 0, 0, kolkata)},
		{name: "rfc3339", at: "2025-09-02T04:00:00Z", want: time.Date(2025, 9, 2, 9, 30, 0, 0, kolkata)},
		{name: "demo", demo: true, want: time.Date(2025, 8, 30, 10, 0, 0, 0, kolkata)},
		{name: "at wins over demo", demo: true, at: "2025-09-03T16:00", want: time.Date(2025, 9, 3, 16, 0, 0, 0, kolkata)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := instant(cal, tc.demo, tc.at)
			require.NoError(t, err)
			assert.True(t, got.Equal(tc.want), "instant() = %v, want %v", got, tc.want)
			assert.Equal(t, kolkata, got.Location())
		})
	}

	_, err = instant(cal, false, "tomorrow")
	assert.Error(t, err)

	got, err := instant(treasury.CutoffCalendar{}, true, "")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, got.Location())
}

func TestSelectJSON(t *testing.T) {
	doc := []byte(`{"order":{"status":"filled","amount":{"currency":"INR","amount":1500000.00}},"defects":[{"line":3}]}`)
	testCases := []struct {
		query string
		want  string
	}{
		{"$.order.status", `"filled"`},
		{"$.order.amount.amount", `1500000`},
		{"$.defects[*].line", `3`},
	}
	for _, tc := range testCases {
		got, err := selectJSON(doc, tc.query)
		require.NoError(t, err, tc.query)
		assert.JSONEq(t, tc.want, string(got), tc.query)
	}
	_, err := selectJSON(doc, "$.order.missing")
	assert.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	v := struct {
		Zeta  treasury.Money `json:"zeta"`
		Alpha treasury.Money `json:"alpha"`
	}{treasury.Minor(160000000, "INR"), treasury.Minor(1234567890123456789, "INR")}

	var b bytes.Buffer
	require.NoError(t, writeJSON(&b, v, ""))
	out := b.String()
	assert.Contains(t, out, `"amount": 1600000.00`)
	assert.Contains(t, out, `"amount": 12345678901234567.89`)
	assert.Less(t, strings.Index(out, "zeta"), strings.Index(out, "alpha"), "keys are reordered:\n%s", out)

	b.Reset()
	require.NoError(t, writeJSON(&b, v, "$.alpha.amount"))
	assert.Equal(t, "12345678901234567.89\n", b.String())
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger("", false)
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())

	log, err = NewLogger("debug", true)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	_, err = NewLogger("chatty", false)
	assert.Error(t, err)
}

func TestParseRange(t *testing.T) {
	parse := func(args ...string) (date.Range, error) {
		f := flag.NewFlagSet("test", flag.ContinueOnError)
		require.NoError(t, f.Parse(args))
		return parseRange(f)
	}
	r, err := parse("2025-09-01", "2025-09-03")
	require.NoError(t, err)
	assert.Equal(t, 3, r.Days())

	for _, args := range [][]string{{"2025-09-01"}, {"2025-09-03", "2025-09-01"}, {"2025-09-01", "soon"}} {
		_, err := parse(args...)
		assert.Error(t, err, args)
	}
}

func TestWhitelistRate(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(func() { *dataDir = "" })
	*dataDir = dir

	rate, err := whitelistRate("Liquid Fund A", "AMC One")
	require.NoError(t, err)
	assert.Equal(t, 0, rate, "without a policy")

	policy := `{"whitelist": [{"instrument": "Liquid Fund A", "issuer": "AMC One", "rate_bps": 630}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "policy.json"), []byte(policy), 0644))

	rate, err = whitelistRate("Liquid Fund A", "AMC One")
	require.NoError(t, err)
	assert.Equal(t, 630, rate)

	rate, err = whitelistRate("Liquid Fund A", "AMC Two")
	require.NoError(t, err)
	assert.Equal(t, 0, rate, "issuer mismatch")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "policy.json"), []byte(`{"min_operating_cash": }`), 0644))
	_, err = whitelistRate("Liquid Fund A", "AMC One")
	assert.Error(t, err)
}

func TestOpenStoreCurrency(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(func() { *dataDir, *dbPath = "", "" })
	*dataDir, *dbPath = dir, filepath.Join(dir, "holdings.db")

	s, ok := openStore()
	require.True(t, ok)
	assert.Equal(t, "INR", s.Currency(), "without a policy")
	require.NoError(t, s.Close())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "policy.json"), []byte(`{"currency": "USD"}`), 0644))
	s, ok = openStore()
	require.True(t, ok)
	defer s.Close()
	assert.Equal(t, "USD", s.Currency())
}

func TestIsSet(t *testing.T) {
	f := flag.NewFlagSet("test", flag.ContinueOnError)
	f.Int("rate", 0, "")
	f.Int("basis", 365, "")
	require.NoError(t, f.Parse([]string{"-rate", "0"}))
	assert.True(t, isSet(f, "rate"))
	assert.False(t, isSet(f, "basis"))
}
