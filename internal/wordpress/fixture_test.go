package wordpress

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixtureFieldsUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected FixtureFields
		location *MapLocation
	}{
		{
			name:  "populated fields",
			input: `{"information":"Bring spikes","start_date":"20250301","start_time":"18:30:00","location":{"name":"Track","address":"1 Road","lat":"51.3","lng":-0.27,"zoom":17},"show_external_button":true,"external_link_text":"Spond","external_link":"https://spond.com/client/sponds/ABC"}`,
			expected: FixtureFields{
				Information:        "Bring spikes",
				ShowExternalButton: true,
				ExternalLinkText:   "Spond",
				ExternalLink:       "https://spond.com/client/sponds/ABC",
			},
			location: &MapLocation{Name: "Track", Address: "1 Road", Lat: "51.3", Lng: -0.27, Zoom: float64(17)},
		},
		{
			name:  "empty map as string",
			input: `{"location":"","show_external_button":"1"}`,
			expected: FixtureFields{
				ShowExternalButton: true,
			},
		},
		{
			name:     "empty map as false",
			input:    `{"location":false,"show_external_button":false}`,
			expected: FixtureFields{},
		},
		{
			name:     "empty field group as array",
			input:    `[]`,
			expected: FixtureFields{},
		},
		{
			name:     "null field group",
			input:    `null`,
			expected: FixtureFields{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got FixtureFields
			require.NoError(t, json.Unmarshal([]byte(tt.input), &got))

			assert.Equal(t, tt.location, got.Location)
			got.Location = nil
			got.StartDate, got.StartTime = nil, nil
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFixtureUnmarshalDates(t *testing.T) {
	var f Fixture
	require.NoError(t, json.Unmarshal([]byte(`{"id":5,"status":"publish","title":{"rendered":"Relay &amp; BBQ"},"fixture-age":[41,99],"acf":{"start_date":"20250301","start_time":null,"end_date":""}}`), &f))

	assert.Equal(t, 5, f.ID)
	assert.Equal(t, "Relay &amp; BBQ", f.Title.Rendered)
	assert.Equal(t, "Relay & BBQ", f.Title.Text())
	assert.Equal(t, []int{41, 99}, f.Ages)
	require.NotNil(t, f.ACF.StartDate)
	assert.Equal(t, "20250301", *f.ACF.StartDate)
	assert.Nil(t, f.ACF.StartTime)
	require.NotNil(t, f.ACF.EndDate)
	assert.Equal(t, "", *f.ACF.EndDate)
}

func TestRenderedText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"raw wins over texturized", `{"raw":"Runners' social","rendered":"Runners&#8217; social"}`, "Runners' social"},
		{"rendered only", `{"rendered":"Relay &amp; BBQ"}`, "Relay & BBQ"},
		{"empty", `{"raw":"","rendered":""}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Rendered
			require.NoError(t, json.Unmarshal([]byte(tt.input), &r))
			assert.Equal(t, tt.expected, r.Text())
		})
	}
}
