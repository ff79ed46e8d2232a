package standings

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/qualprob/internal/models"
)

const uefaFixture = `{
	"name": "FIFA World Cup Qualifying - UEFA",
	"seasons": [{
		"displayName": "2025",
		"types": [
			{"name": "Preliminary Round", "hasStandings": false},
			{"name": "Qualifying Group Stage", "hasStandings": true}
		]
	}],
	"children": [
		{
			"name": "Group A",
			"standings": {"entries": [
				{
					"team": {"id": "164", "abbreviation": "ESP", "displayName": "Spain"},
					"note": {"description": "Qualifies for FIFA World Cup"},
					"stats": [
						{"name": "rank", "value": 1},
						{"name": "gamesPlayed", "value": 8},
						{"name": "wins", "value": 6},
						{"name": "ties", "value": 2},
						{"name": "losses", "value": 0},
						{"name": "pointsFor", "value": 21},
						{"name": "pointsAgainst", "value": 5},
						{"name": "pointDifferential", "value": 16},
						{"name": "points", "value": 20}
					]
				},
				{
					"team": {"id": "4764", "abbreviation": "GEO", "displayName": "Georgia"},
					"stats": [
						{"name": "rank", "value": 2},
						{"name": "gamesPlayed", "value": 8},
						{"name": "wins", "value": 3},
						{"name": "ties", "value": 2},
						{"name": "losses", "value": 3},
						{"name": "pointsFor", "value": 10},
						{"name": "pointsAgainst", "value": 9},
						{"name": "pointDifferential", "value": 1},
						{"name": "points", "value": 11}
					]
				}
			]}
		},
		{
			"name": "Group B",
			"standings": {"entries": [
				{
					"team": {"id": "478", "abbreviation": "FRA", "displayName": "France"},
					"stats": [
						{"name": "rank", "displayValue": "1"},
						{"name": "gamesPlayed", "displayValue": "6"},
						{"name": "points", "displayValue": "14"}
					]
				}
			]}
		}
	]
}`

const conmebolFixture = `{
	"name": "CONMEBOL World Cup Qualifying",
	"seasons": [{
		"displayName": "2025",
		"types": [{"name": "League Stage", "hasStandings": true}]
	}],
	"standings": {"entries": [
		{
			"team": {"id": "202", "displayName": "Argentina"},
			"note": {"description": "Qualified for FIFA World Cup"},
			"stats": [
				{"name": "rank", "value": 1},
				{"name": "gamesPlayed", "value": 14},
				{"name": "points", "value": 31}
			]
		}
	]}
}`

const nestedFixture = `{
	"name": "FIFA World Cup Qualifying - AFC",
	"seasons": [{
		"displayName": "2025",
		"types": [{"name": "World Cup Qualifying", "hasStandings": true}]
	}],
	"children": [
		{
			"name": "Third Round",
			"children": [
				{
					"name": "Group A",
					"standings": {"entries": [
						{
							"team": {"id": "219", "displayName": "Japan"},
							"note": {"description": "Qualifies for World Cup"},
							"stats": [
								{"name": "rank", "value": 1},
								{"name": "gamesPlayed", "value": 9},
								{"name": "points", "value": 20}
							]
						}
					]}
				}
			]
		}
	]
}`

func testHTTPClient(t *testing.T) *RateLimitedHTTPClient {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := HTTPClientConfig{
		Timeout:           5 * time.Second,
		MaxRetries:        0,
		RetryWaitMin:      time.Millisecond,
		RetryWaitMax:      2 * time.Millisecond,
		RateLimit:         1000,
		CircuitBreakerMax: 5,
	}
	return NewRateLimitedHTTPClient(cfg, logger)
}

func fixtureServer(t *testing.T, fixtures map[string]string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for league, body := range fixtures {
			if r.URL.Path == "/"+league+"/standings" {
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, body)
				return
			}
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchStandingsGroupedLeague(t *testing.T) {
	server := fixtureServer(t, map[string]string{"fifa.worldq.uefa": uefaFixture})
	client := NewESPNClient(testHTTPClient(t), server.URL, "qualprob-test", nil, nil)

	result, err := client.FetchStandings(context.Background(), models.ConfederationUEFA)
	require.NoError(t, err)

	require.Len(t, result.Rows, 3)
	assert.Equal(t, models.ConfederationUEFA, result.Confederation)
	assert.NotEmpty(t, result.Checksum)

	spain := result.Rows[0]
	assert.Equal(t, "Spain", spain.Team)
	assert.Equal(t, "Qualifying Group Stage", spain.Stage)
	assert.Equal(t, "Group A", spain.Group)
	require.NotNil(t, spain.Rank)
	assert.Equal(t, 1, *spain.Rank)
	assert.Equal(t, 8, spain.GamesPlayed)
	assert.Equal(t, 2, spain.Draws)
	assert.Equal(t, 21, spain.GoalsFor)
	assert.Equal(t, 16, spain.GoalDifference)
	assert.Equal(t, 20, spain.Points)
	assert.Equal(t, models.StatusQualified, spain.Status)

	georgia := result.Rows[1]
	assert.Equal(t, "Georgia", georgia.Team)
	assert.Equal(t, models.StatusInProgress, georgia.Status)
	assert.Empty(t, georgia.Note)
}

func TestFetchStandingsDisplayValueStats(t *testing.T) {
	server := fixtureServer(t, map[string]string{"fifa.worldq.uefa": uefaFixture})
	client := NewESPNClient(testHTTPClient(t), server.URL, "qualprob-test", nil, nil)

	result, err := client.FetchStandings(context.Background(), models.ConfederationUEFA)
	require.NoError(t, err)

	// France's stats only carry display values
	france := result.Rows[2]
	assert.Equal(t, "France", france.Team)
	assert.Equal(t, "Group B", france.Group)
	require.NotNil(t, france.Rank)
	assert.Equal(t, 1, *france.Rank)
	assert.Equal(t, 6, france.GamesPlayed)
	assert.Equal(t, 14, france.Points)
	assert.Equal(t, 0, france.Wins)
}

func TestFetchStandingsSingleTableLeague(t *testing.T) {
	server := fixtureServer(t, map[string]string{"fifa.worldq.conmebol": conmebolFixture})
	client := NewESPNClient(testHTTPClient(t), server.URL, "qualprob-test", nil, nil)

	result, err := client.FetchStandings(context.Background(), models.ConfederationCONMEBOL)
	require.NoError(t, err)

	require.Len(t, result.Rows, 1)
	argentina := result.Rows[0]
	assert.Equal(t, "Argentina", argentina.Team)
	assert.Equal(t, "League Stage", argentina.Stage)
	assert.Equal(t, "CONMEBOL World Cup Qualifying", argentina.Group)
	assert.Equal(t, models.StatusQualified, argentina.Status)
	assert.Equal(t, 31, argentina.Points)
}

func TestFetchStandingsNestedRounds(t *testing.T) {
	server := fixtureServer(t, map[string]string{"fifa.worldq.afc": nestedFixture})
	client := NewESPNClient(testHTTPClient(t), server.URL, "qualprob-test", nil, nil)

	result, err := client.FetchStandings(context.Background(), models.ConfederationAFC)
	require.NoError(t, err)

	require.Len(t, result.Rows, 1)
	japan := result.Rows[0]
	assert.Equal(t, "Japan", japan.Team)
	assert.Equal(t, "World Cup Qualifying - Third Round", japan.Stage)
	assert.Equal(t, "Group A", japan.Group)
	assert.Equal(t, models.StatusQualified, japan.Status)
}

func TestFetchStandingsChecksumStable(t *testing.T) {
	server := fixtureServer(t, map[string]string{"fifa.worldq.uefa": uefaFixture})
	client := NewESPNClient(testHTTPClient(t), server.URL, "qualprob-test", nil, nil)

	first, err := client.FetchStandings(context.Background(), models.ConfederationUEFA)
	require.NoError(t, err)
	second, err := client.FetchStandings(context.Background(), models.ConfederationUEFA)
	require.NoError(t, err)

	assert.Equal(t, first.Checksum, second.Checksum)
}

func TestFetchStandingsEmptyPayload(t *testing.T) {
	server := fixtureServer(t, map[string]string{"fifa.worldq.ofc": `{"name": "OFC"}`})
	client := NewESPNClient(testHTTPClient(t), server.URL, "qualprob-test", nil, nil)

	_, err := client.FetchStandings(context.Background(), models.ConfederationOFC)
	require.Error(t, err)

	var srcErr SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, ErrCodeInvalidData, srcErr.Code)
}

func TestFetchStandingsServerError(t *testing.T) {
	server := fixtureServer(t, map[string]string{})
	client := NewESPNClient(testHTTPClient(t), server.URL, "qualprob-test", nil, nil)

	_, err := client.FetchStandings(context.Background(), models.ConfederationCAF)
	require.Error(t, err)

	var srcErr SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, ErrCodeServerError, srcErr.Code)
}

func TestFetchSeasonAddsSeasonParam(t *testing.T) {
	var gotSeason string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSeason = r.URL.Query().Get("season")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, conmebolFixture)
	}))
	t.Cleanup(server.Close)

	client := NewESPNClient(testHTTPClient(t), server.URL, "qualprob-test", nil, nil)

	_, err := client.FetchSeason(context.Background(), models.ConfederationCONMEBOL, 2018)
	require.NoError(t, err)
	assert.Equal(t, "2018", gotSeason)

	_, err = client.FetchStandings(context.Background(), models.ConfederationCONMEBOL)
	require.NoError(t, err)
	assert.Empty(t, gotSeason, "current standings fetch must not pin a season")
}

func TestConfederationsDefaultsToAll(t *testing.T) {
	client := NewESPNClient(testHTTPClient(t), "http://example.invalid", "qualprob-test", nil, nil)
	assert.Len(t, client.Confederations(), 6)

	subset := []models.Confederation{models.ConfederationUEFA, models.ConfederationCONMEBOL}
	client = NewESPNClient(testHTTPClient(t), "http://example.invalid", "qualprob-test", subset, nil)
	assert.Equal(t, subset, client.Confederations())
}

func TestNoteMarksQualified(t *testing.T) {
	tests := []struct {
		note string
		want bool
	}{
		{"Qualifies for FIFA World Cup", true},
		{"Qualified for FIFA World Cup", true},
		{"qualifies for inter-confederation play-off", true},
		{"Advances to Third Round", false},
		{"Cannot qualify", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, noteMarksQualified(tt.note), "note %q", tt.note)
	}
}
