package standings

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/qualprob/internal/logger"
	"github.com/yourusername/qualprob/internal/models"
)

// espnLeagueCodes maps each confederation to its ESPN qualifying
// league slug.
var espnLeagueCodes = map[models.Confederation]string{
	models.ConfederationAFC:      "fifa.worldq.afc",
	models.ConfederationCAF:      "fifa.worldq.caf",
	models.ConfederationCONCACAF: "fifa.worldq.concacaf",
	models.ConfederationCONMEBOL: "fifa.worldq.conmebol",
	models.ConfederationUEFA:     "fifa.worldq.uefa",
	models.ConfederationOFC:      "fifa.worldq.ofc",
}

// ESPNClient implements Source against ESPN's public standings JSON
// endpoints: one lightweight GET per confederation.
type ESPNClient struct {
	httpClient     *RateLimitedHTTPClient
	baseURL        string
	userAgent      string
	confederations []models.Confederation
	fetchLogger    *logger.FetchLogger
}

// espnStandingsResponse is the top-level payload. Most leagues nest
// group tables under children; some come back as a single table.
type espnStandingsResponse struct {
	Name      string         `json:"name"`
	Seasons   []espnSeason   `json:"seasons"`
	Children  []espnChild    `json:"children"`
	Standings *espnStandings `json:"standings"`
}

type espnSeason struct {
	DisplayName string           `json:"displayName"`
	Types       []espnSeasonType `json:"types"`
}

type espnSeasonType struct {
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"`
	HasStandings bool   `json:"hasStandings"`
}

// espnChild is either a group table (standings set) or a round holding
// nested group children.
type espnChild struct {
	Name         string         `json:"name"`
	Abbreviation string         `json:"abbreviation"`
	Standings    *espnStandings `json:"standings"`
	Children     []espnChild    `json:"children"`
}

type espnStandings struct {
	Entries []espnEntry `json:"entries"`
}

type espnEntry struct {
	Team  espnTeam   `json:"team"`
	Note  *espnNote  `json:"note"`
	Stats []espnStat `json:"stats"`
}

type espnTeam struct {
	ID           string `json:"id"`
	Abbreviation string `json:"abbreviation"`
	DisplayName  string `json:"displayName"`
	Name         string `json:"name"`
}

type espnNote struct {
	Description string `json:"description"`
}

type espnStat struct {
	Name         string   `json:"name"`
	Value        *float64 `json:"value"`
	DisplayValue string   `json:"displayValue"`
}

// NewESPNClient creates a standings source for the given
// confederations. An empty confederation list means all six.
func NewESPNClient(httpClient *RateLimitedHTTPClient, baseURL, userAgent string, confederations []models.Confederation, fetchLogger *logger.FetchLogger) *ESPNClient {
	if len(confederations) == 0 {
		confederations = models.AllConfederations()
	}
	return &ESPNClient{
		httpClient:     httpClient,
		baseURL:        strings.TrimRight(baseURL, "/"),
		userAgent:      userAgent,
		confederations: confederations,
		fetchLogger:    fetchLogger,
	}
}

// Name returns the source name.
func (c *ESPNClient) Name() string {
	return "espn"
}

// Confederations returns the confederations this client covers.
func (c *ESPNClient) Confederations() []models.Confederation {
	return c.confederations
}

// FetchStandings retrieves the current qualifying tables for one
// confederation.
func (c *ESPNClient) FetchStandings(ctx context.Context, confederation models.Confederation) (*ConfederationStandings, error) {
	return c.fetch(ctx, confederation, 0)
}

// FetchSeason retrieves a past season's final qualifying tables,
// feeding the historical archive.
func (c *ESPNClient) FetchSeason(ctx context.Context, confederation models.Confederation, season int) (*ConfederationStandings, error) {
	return c.fetch(ctx, confederation, season)
}

func (c *ESPNClient) fetch(ctx context.Context, confederation models.Confederation, season int) (*ConfederationStandings, error) {
	league, ok := espnLeagueCodes[confederation]
	if !ok {
		return nil, NewSourceError(c.Name(), ErrCodeNotCovered, fmt.Sprintf("no league code for %s", confederation), nil)
	}

	requestURL := c.standingsURL(league, season)
	if c.fetchLogger != nil {
		c.fetchLogger.LogFetchStarted(confederation.String(), requestURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, NewSourceError(c.Name(), ErrCodeNetworkError, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, NewSourceError(c.Name(), ErrCodeNetworkError, fmt.Sprintf("failed to fetch %s standings", confederation), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, NewSourceError(c.Name(), ErrCodeServerError,
			fmt.Sprintf("unexpected status %d for %s: %s", resp.StatusCode, confederation, string(excerpt)), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewSourceError(c.Name(), ErrCodeNetworkError, "failed to read response body", err)
	}

	var payload espnStandingsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, NewSourceError(c.Name(), ErrCodeInvalidData, "failed to parse response", err)
	}

	rows, err := c.parse(confederation, &payload)
	if err != nil {
		return nil, err
	}

	return &ConfederationStandings{
		Confederation: confederation,
		Rows:          rows,
		Checksum:      payloadChecksum(body),
		SourceURL:     requestURL,
		FetchedAt:     time.Now().UTC(),
	}, nil
}

// standingsURL builds the request URL. A zero season lets ESPN serve
// the latest cycle.
func (c *ESPNClient) standingsURL(league string, season int) string {
	params := url.Values{}
	params.Set("region", "us")
	params.Set("lang", "en")
	params.Set("contentorigin", "espn")
	params.Set("level", "2")
	if season > 0 {
		params.Set("season", strconv.Itoa(season))
	}
	return fmt.Sprintf("%s/%s/standings?%s", c.baseURL, league, params.Encode())
}

// parse flattens the payload's group tables into standing rows.
func (c *ESPNClient) parse(confederation models.Confederation, payload *espnStandingsResponse) ([]models.StandingRow, error) {
	baseStage := stageFromSeasons(payload.Seasons)
	fetchedAt := time.Now().UTC()
	var rows []models.StandingRow

	addGroup := func(stage, group string, entries []espnEntry) {
		if stage == "" {
			if hasStageKeyword(group) {
				stage = group
			} else {
				stage = "Qualifying"
			}
		}
		for _, entry := range entries {
			rows = append(rows, convertEntry(confederation, stage, group, entry, fetchedAt))
		}
	}

	var walk func(child espnChild, stage string)
	walk = func(child espnChild, stage string) {
		name := child.Name
		if name == "" {
			name = child.Abbreviation
		}
		if name == "" {
			name = "Group"
		}

		if child.Standings != nil && len(child.Standings.Entries) > 0 {
			addGroup(stage, name, child.Standings.Entries)
			return
		}

		// A named round above the group tables extends the stage
		childStage := stage
		if childStage != "" {
			childStage = childStage + " - " + name
		} else {
			childStage = name
		}
		for _, nested := range child.Children {
			walk(nested, childStage)
		}
	}

	switch {
	case len(payload.Children) > 0:
		for _, child := range payload.Children {
			walk(child, baseStage)
		}
	case payload.Standings != nil && len(payload.Standings.Entries) > 0:
		// Single-table leagues come back without children
		name := payload.Name
		if name == "" {
			name = "League"
		}
		addGroup(baseStage, name, payload.Standings.Entries)
	default:
		return nil, NewSourceError(c.Name(), ErrCodeInvalidData,
			fmt.Sprintf("no standings found in payload for %s", confederation), nil)
	}

	return rows, nil
}

// stageFromSeasons picks the active stage name from the season type
// metadata, empty when none is flagged.
func stageFromSeasons(seasons []espnSeason) string {
	if len(seasons) == 0 {
		return ""
	}
	for _, t := range seasons[0].Types {
		if t.HasStandings {
			if t.Name != "" {
				return t.Name
			}
			return t.DisplayName
		}
	}
	return seasons[0].DisplayName
}

// stageKeywords mark child names that are stages rather than groups.
var stageKeywords = []string{"round", "stage", "play-off", "playoff", "final", "league"}

func hasStageKeyword(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range stageKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// convertEntry normalizes one ESPN table entry into a standing row.
func convertEntry(confederation models.Confederation, stage, group string, entry espnEntry, fetchedAt time.Time) models.StandingRow {
	stats := statMap(entry.Stats)

	row := models.StandingRow{
		Team:           teamName(entry.Team),
		Confederation:  confederation,
		Stage:          stage,
		Group:          group,
		GamesPlayed:    stats.value("gamesPlayed"),
		Wins:           stats.value("wins"),
		Draws:          stats.value("ties"),
		Losses:         stats.value("losses"),
		GoalsFor:       stats.value("pointsFor"),
		GoalsAgainst:   stats.value("pointsAgainst"),
		GoalDifference: stats.value("pointDifferential"),
		Points:         stats.value("points"),
		Status:         models.StatusInProgress,
		FetchedAt:      fetchedAt,
	}

	if rank := stats.value("rank"); rank > 0 {
		row.Rank = &rank
	}

	if entry.Note != nil {
		row.Note = entry.Note.Description
		if noteMarksQualified(entry.Note.Description) {
			row.Status = models.StatusQualified
		}
	}

	return row
}

// noteMarksQualified reports whether a standings note says the team has
// secured its slot ("Qualifies for ..." / "Qualified for ...").
func noteMarksQualified(note string) bool {
	lower := strings.ToLower(note)
	return strings.Contains(lower, "qualifies") || strings.Contains(lower, "qualified")
}

func teamName(team espnTeam) string {
	if team.DisplayName != "" {
		return team.DisplayName
	}
	return team.Name
}

type espnStatMap map[string]espnStat

func statMap(stats []espnStat) espnStatMap {
	m := make(espnStatMap, len(stats))
	for _, s := range stats {
		m[s.Name] = s
	}
	return m
}

// value resolves a stat to an int: the numeric value when present, the
// parsed display value otherwise, zero as a last resort.
func (m espnStatMap) value(name string) int {
	stat, ok := m[name]
	if !ok {
		return 0
	}
	if stat.Value != nil {
		return int(*stat.Value)
	}
	if stat.DisplayValue == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(stat.DisplayValue, 64)
	if err != nil {
		return 0
	}
	return int(parsed)
}

// payloadChecksum digests the raw payload with stable key order, so the
// same standings always produce the same checksum.
func payloadChecksum(body []byte) string {
	var generic any
	if err := json.Unmarshal(body, &generic); err != nil {
		sum := sha1.Sum(body)
		return hex.EncodeToString(sum[:])
	}
	canonical, err := json.Marshal(generic)
	if err != nil {
		sum := sha1.Sum(body)
		return hex.EncodeToString(sum[:])
	}
	sum := sha1.Sum(canonical)
	return hex.EncodeToString(sum[:])
}
