package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordTones(tones ...string) ContentStats {
	var stats ContentStats
	for _, tone := range tones {
		stats.Record(ContentTypeBlog, tone)
	}
	return stats
}

func TestContentStats_Record(t *testing.T) {
	var stats ContentStats
	stats.Record(ContentTypeTweet, "witty")

	assert.Equal(t, 1, stats.TotalGenerated)
	assert.Equal(t, "tweet", stats.LastUsedType)
	assert.Equal(t, "witty", stats.MostUsedTone)
	assert.Equal(t, 1, stats.ToneCounts.Get("witty"))

	stats.Record(ContentTypeLinkedIn, "formal")
	assert.Equal(t, 2, stats.TotalGenerated)
	assert.Equal(t, "linkedin", stats.LastUsedType)
}

func TestContentStats_MostUsedTone(t *testing.T) {
	tests := []struct {
		name  string
		tones []string
		want  string
	}{
		{name: "majority wins", tones: []string{"a", "a", "b"}, want: "a"},
		{name: "tie goes to first seen", tones: []string{"a", "b"}, want: "a"},
		{name: "later tone overtakes", tones: []string{"a", "b", "b"}, want: "b"},
		{name: "tie after overtaking stays in scan order", tones: []string{"a", "b", "b", "a"}, want: "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := recordTones(tt.tones...)
			assert.Equal(t, tt.want, stats.MostUsedTone)
			assert.Equal(t, len(tt.tones), stats.TotalGenerated)
		})
	}
}

func TestToneCounts_JSONKeepsInsertionOrder(t *testing.T) {
	stats := recordTones("zesty", "calm", "zesty", "bold")

	data, err := json.Marshal(stats.ToneCounts)
	require.NoError(t, err)
	assert.Equal(t, `{"zesty":2,"calm":1,"bold":1}`, string(data))

	var decoded ToneCounts
	require.NoError(t, json.Unmarshal([]byte(`{"b":3,"a":1}`), &decoded))
	assert.Equal(t, ToneCounts{{Tone: "b", Count: 3}, {Tone: "a", Count: 1}}, decoded)

	var empty ToneCounts
	data, err = json.Marshal(empty)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}

func TestContentStats_ValueScan(t *testing.T) {
	stats := recordTones("calm", "bold", "bold")

	value, err := stats.Value()
	require.NoError(t, err)
	assert.Contains(t, string(value.([]byte)), `"toneCounts":[{"tone":"calm","count":1},{"tone":"bold","count":2}]`)

	var scanned ContentStats
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, stats, scanned)

	require.NoError(t, scanned.Scan(nil))
	assert.Equal(t, ContentStats{}, scanned)
	assert.Error(t, scanned.Scan(42))
}
