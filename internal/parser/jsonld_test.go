package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONLDEventsSingleEvent(t *testing.T) {
	t.Parallel()

	html := `<html><head><script type="application/ld+json">
	{
		"@context": "https://schema.org",
		"@type": "Event",
		"name": "Hickstead Derby Meeting",
		"startDate": "2025-06-19",
		"endDate": "2025-06-22",
		"url": "https://www.hickstead.co.uk/derby",
		"location": {
			"@type": "Place",
			"name": "The All England Jumping Course",
			"address": {"postalCode": "RH17 5NX"},
			"geo": {"latitude": 50.996, "longitude": -0.176}
		}
	}
	</script></head><body></body></html>`

	events, err := ExtractJSONLDEvents([]byte(html))
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "Hickstead Derby Meeting", ev.Name)
	assert.Equal(t, "2025-06-19", ev.DateStart)
	assert.Equal(t, "2025-06-22", ev.DateEnd)
	assert.Equal(t, "The All England Jumping Course", ev.VenueName)
	assert.Equal(t, "RH17 5NX", ev.VenuePostcode)
	require.NotNil(t, ev.Latitude)
	assert.InDelta(t, 50.996, *ev.Latitude, 0.0001)
}

func TestExtractJSONLDEventsGraph(t *testing.T) {
	t.Parallel()

	html := `<html><body><script type="application/ld+json">
	{
		"@context": "https://schema.org",
		"@graph": [
			{"@type": "WebSite", "name": "ignored"},
			{"@type": "Event", "name": "Evening Dressage", "startDate": "2025-07-01T18:00:00Z",
			 "location": {"name": "Manor Farm"}},
			{"@type": "EventSeries", "name": "Summer League", "startDate": "2025-07-05",
			 "location": "Manor Farm Arena"}
		]
	}
	</script></body></html>`

	events, err := ExtractJSONLDEvents([]byte(html))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Evening Dressage", events[0].Name)
	assert.Equal(t, "2025-07-01", events[0].DateStart)
	assert.Equal(t, "Manor Farm", events[0].VenueName)
	// Location given as a bare string.
	assert.Equal(t, "Manor Farm Arena", events[1].VenueName)
}

func TestExtractJSONLDEventsItemList(t *testing.T) {
	t.Parallel()

	html := `<script type="application/ld+json">
	{
		"@type": "ItemList",
		"itemListElement": [
			{"@type": "ListItem", "position": 1,
			 "item": {"@type": "Event", "name": "Area Show", "startDate": "2025-08-10"}},
			{"@type": "ListItem", "position": 2}
		]
	}
	</script>`

	events, err := ExtractJSONLDEvents([]byte(html))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Area Show", events[0].Name)
}

func TestExtractJSONLDEventsMalformedBlockSkipped(t *testing.T) {
	t.Parallel()

	html := `<script type="application/ld+json">{not json</script>
	<script type="application/ld+json">
	{"@type": "https://schema.org/Event", "name": "Working Hunter Show", "startDate": "2025-09-01"}
	</script>`

	events, err := ExtractJSONLDEvents([]byte(html))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Working Hunter Show", events[0].Name)
}

func TestExtractJSONLDEventsDropsUnusable(t *testing.T) {
	t.Parallel()

	// No start date on the first, no name on the second.
	html := `<script type="application/ld+json">
	[
		{"@type": "Event", "name": "Dateless Show"},
		{"@type": "Event", "startDate": "2025-09-01"}
	]
	</script>`

	events, err := ExtractJSONLDEvents([]byte(html))
	require.NoError(t, err)
	assert.Empty(t, events)
}
