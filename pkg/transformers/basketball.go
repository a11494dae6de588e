package transformers

import (
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/ize202/slipshark/pkg/models"
)

// BasketballTransformer normalizes basketball feed documents.
type BasketballTransformer struct {
	logger *zap.Logger
}

// NewBasketballTransformer builds a BasketballTransformer.
func NewBasketballTransformer(logger *zap.Logger) *BasketballTransformer {
	return &BasketballTransformer{logger: logger}
}

// statNames maps feed statistics fields to the normalized season-stat keys.
var statNames = map[string]string{
	"points":  "points_per_game",
	"wins":    "wins",
	"losses":  "losses",
	"fgp":     "field_goal_percentage",
	"tpp":     "three_point_percentage",
	"ftp":     "free_throw_percentage",
	"totReb":  "rebounds_per_game",
	"assists": "assists_per_game",
	"steals":  "steals_per_game",
	"blocks":  "blocks_per_game",
}

// TransformTeam normalizes one team document. Malformed input yields an
// error-shaped record, never a panic.
func (t *BasketballTransformer) TransformTeam(raw json.RawMessage) models.NormalizedTeam {
	doc, err := decodeObject(raw)
	if err != nil {
		t.logger.Warn("team data did not decode", zap.Error(err))
		return models.NormalizedTeam{Error: fmt.Sprintf("decode team data: %v", err)}
	}
	if len(doc) == 0 {
		return models.NormalizedTeam{Error: "no team data provided"}
	}

	team := models.NormalizedTeam{
		BasicInfo: map[string]any{
			"id":   doc["id"],
			"name": doc["name"],
		},
		LeagueInfo:  asObject(doc["team_info"]),
		SeasonStats: asObject(doc["season_stats"]),
	}
	if ctx := asObject(doc["season_context"]); len(ctx) > 0 {
		if team.LeagueInfo == nil {
			team.LeagueInfo = make(map[string]any)
		}
		for k, v := range ctx {
			team.LeagueInfo[k] = v
		}
	}

	// Derive per-game stats from raw statistics when the feed has no
	// precomputed season_stats block.
	if len(team.SeasonStats) == 0 {
		if stats := asObject(doc["statistics"]); len(stats) > 0 {
			team.SeasonStats = make(map[string]any, len(statNames))
			for feedKey, name := range statNames {
				if v, ok := stats[feedKey]; ok {
					team.SeasonStats[name] = v
				}
			}
		}
	}

	return team
}

// TransformGame normalizes one game document.
func (t *BasketballTransformer) TransformGame(raw json.RawMessage) models.NormalizedGame {
	doc, err := decodeObject(raw)
	if err != nil {
		t.logger.Warn("game data did not decode", zap.Error(err))
		return models.NormalizedGame{Error: fmt.Sprintf("decode game data: %v", err)}
	}
	if len(doc) == 0 {
		return models.NormalizedGame{Error: "no game data provided"}
	}

	for _, field := range []string{"id", "date", "teams", "scores"} {
		if _, ok := doc[field]; !ok {
			return models.NormalizedGame{Error: fmt.Sprintf("missing required game field: %s", field)}
		}
	}

	teams := asObject(doc["teams"])
	home := asObject(teams["home"])
	away := asObject(teams["away"])
	if len(home) == 0 || len(away) == 0 {
		return models.NormalizedGame{Error: "missing team information in game data"}
	}

	scores := asObject(doc["scores"])
	status := asObject(doc["status"])

	game := models.NormalizedGame{
		ID:       asString(doc["id"]),
		Date:     asString(doc["date"]),
		HomeTeam: teamRef(home),
		AwayTeam: teamRef(away),
		Score: models.GameScore{
			Home: asInt(asObject(scores["home"])["total"]),
			Away: asInt(asObject(scores["away"])["total"]),
		},
		Status: asString(status["long"]),
	}

	homeQuarters := asObject(asObject(scores["home"])["quarter"])
	awayQuarters := asObject(asObject(scores["away"])["quarter"])
	for i := 1; i <= 4; i++ {
		k := fmt.Sprintf("%d", i)
		game.Score.Quarters = append(game.Score.Quarters, models.QuarterScore{
			Home: asInt(homeQuarters[k]),
			Away: asInt(awayQuarters[k]),
		})
	}

	return game
}

// TransformPlayer normalizes one player document. Recent games are included
// only when requested, capped at five; games that fail to transform are
// skipped.
func (t *BasketballTransformer) TransformPlayer(raw json.RawMessage, requiredData []string) models.NormalizedPlayer {
	doc, err := decodeObject(raw)
	if err != nil {
		t.logger.Warn("player data did not decode", zap.Error(err))
		return models.NormalizedPlayer{Error: fmt.Sprintf("decode player data: %v", err)}
	}
	if msg := asString(doc["error"]); msg != "" {
		return models.NormalizedPlayer{Error: msg}
	}

	info := asObject(doc["player_info"])
	if len(info) == 0 {
		return models.NormalizedPlayer{Error: "no player information found"}
	}
	if asString(info["id"]) == "" || playerName(info) == "" {
		return models.NormalizedPlayer{Error: "invalid player data: missing required fields"}
	}

	stats := asObject(doc["statistics"])

	player := models.NormalizedPlayer{
		BasicInfo: map[string]any{
			"id":       info["id"],
			"name":     playerName(info),
			"jersey":   info["jersey"],
			"position": info["position"],
			"height":   asObject(info["height"])["meters"],
			"weight":   asObject(info["weight"])["kilograms"],
			"birth":    asObject(info["birth"]),
			"college":  info["college"],
			"draft":    asObject(info["draft"]),
		},
		SeasonStats: map[string]any{
			"games_played":           stats["games_played"],
			"minutes_per_game":       stats["minutes_per_game"],
			"points_per_game":        stats["points_per_game"],
			"rebounds_per_game":      stats["rebounds_per_game"],
			"assists_per_game":       stats["assists_per_game"],
			"steals_per_game":        stats["steals_per_game"],
			"blocks_per_game":        stats["blocks_per_game"],
			"field_goal_percentage":  stats["field_goal_percentage"],
			"three_point_percentage": stats["three_point_percentage"],
			"free_throw_percentage":  stats["free_throw_percentage"],
		},
	}

	if contains(requiredData, models.CategoryRecentGames) {
		games, _ := doc["games"].([]any)
		for _, g := range games {
			if len(player.RecentGames) == 5 {
				break
			}
			gameRaw, err := json.Marshal(g)
			if err != nil {
				continue
			}
			game := t.TransformGame(gameRaw)
			if game.Error != "" {
				t.logger.Warn("skipping recent game", zap.String("reason", game.Error))
				continue
			}
			player.RecentGames = append(player.RecentGames, game)
		}
	}

	return player
}

// Validate reports whether transformed data has the structure the synthesis
// step relies on. Error-shaped records are tolerated per record; data that
// is nothing but errors is invalid.
func (t *BasketballTransformer) Validate(data models.TransformedSportData) bool {
	sound := 0

	for name, team := range data.Teams {
		if team.Error != "" {
			continue
		}
		if len(team.LeagueInfo) == 0 || len(team.SeasonStats) == 0 {
			t.logger.Warn("invalid team structure", zap.String("team", name))
			return false
		}
		sound++
	}

	for _, game := range data.Games {
		if game.Error != "" {
			continue
		}
		if game.HomeTeam.Name == "" || game.AwayTeam.Name == "" {
			t.logger.Warn("invalid game structure", zap.String("game", game.ID))
			return false
		}
		sound++
	}

	for name, player := range data.Players {
		if player.Error != "" {
			continue
		}
		if len(player.SeasonStats) == 0 {
			t.logger.Warn("invalid player structure", zap.String("player", name))
			return false
		}
		sound++
	}

	total := len(data.Teams) + len(data.Games) + len(data.Players)
	if total > 0 && sound == 0 {
		t.logger.Warn("all transformed records carry errors")
		return false
	}
	return true
}

func decodeObject(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func asObject(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// asString tolerates numeric feed IDs alongside string ones.
func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return ""
}

func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}

func teamRef(doc map[string]any) models.TeamRef {
	return models.TeamRef{
		ID:   asString(doc["id"]),
		Name: asString(doc["name"]),
		Code: asString(doc["code"]),
		Logo: asString(doc["logo"]),
	}
}

func playerName(info map[string]any) string {
	if name := asString(info["name"]); name != "" {
		return name
	}
	first, last := asString(info["firstname"]), asString(info["lastname"])
	if first == "" && last == "" {
		return ""
	}
	if first == "" {
		return last
	}
	if last == "" {
		return first
	}
	return first + " " + last
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
