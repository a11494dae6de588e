package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ize202/slipshark/pkg/models"
)

func queryReq(query string, ctx *models.QueryContext) QueryRequest {
	return QueryRequest{NS: "research", Op: "analyze", Query: query, Context: ctx}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	ctx := &models.QueryContext{
		Teams:   []string{"Los Angeles Lakers", "Golden State Warriors"},
		Sport:   models.SportBasketball,
		BetType: "spread",
	}
	k1 := DeriveKey(queryReq("Should I bet the Lakers -5.5 tonight?", ctx))
	k2 := DeriveKey(queryReq("Should I bet the Lakers -5.5 tonight?", ctx))
	assert.Equal(t, k1, k2)
}

func TestDeriveKeyNormalizesQuery(t *testing.T) {
	k1 := DeriveKey(queryReq("Should I bet the Lakers -5.5 tonight?", nil))
	k2 := DeriveKey(queryReq("  should i BET the   lakers -5.5 tonight?  ", nil))
	assert.Equal(t, k1, k2, "case and whitespace must not affect the key")
}

func TestDeriveKeyQuerySensitivity(t *testing.T) {
	k1 := DeriveKey(queryReq("Should I bet the Lakers -5.5 tonight?", nil))
	k2 := DeriveKey(queryReq("Should I bet the Lakers -6.5 tonight?", nil))
	assert.NotEqual(t, k1, k2)
}

func TestDeriveKeyContextSensitivity(t *testing.T) {
	base := models.QueryContext{
		Teams:    []string{"Lakers", "Warriors"},
		Sport:    models.SportBasketball,
		GameDate: "2026-03-01",
		BetType:  "spread",
	}
	baseKey := DeriveKey(queryReq("lakers spread", &base))

	tests := []struct {
		name   string
		mutate func(c *models.QueryContext)
	}{
		{"teams", func(c *models.QueryContext) { c.Teams = []string{"Lakers", "Celtics"} }},
		{"players", func(c *models.QueryContext) { c.Players = []string{"LeBron James"} }},
		{"sport", func(c *models.QueryContext) { c.Sport = models.SportFootball }},
		{"game_date", func(c *models.QueryContext) { c.GameDate = "2026-03-02" }},
		{"bet_type", func(c *models.QueryContext) { c.BetType = "moneyline" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed := base
			tt.mutate(&changed)
			assert.NotEqual(t, baseKey, DeriveKey(queryReq("lakers spread", &changed)),
				"changing %s must change the key", tt.name)
		})
	}
}

func TestDeriveKeyIgnoresIrrelevantContext(t *testing.T) {
	ctx1 := &models.QueryContext{Teams: []string{"Lakers"}, LastQuery: "who won last night"}
	ctx2 := &models.QueryContext{Teams: []string{"Lakers"}, LastQuery: "injuries?", RequiredData: []string{"odds"}}
	assert.Equal(t,
		DeriveKey(queryReq("lakers spread", ctx1)),
		DeriveKey(queryReq("lakers spread", ctx2)),
		"conversation bookkeeping must not affect the key")
}

func TestDeriveKeyTeamOrderInsensitive(t *testing.T) {
	ctx1 := &models.QueryContext{Teams: []string{"Lakers", "Warriors"}}
	ctx2 := &models.QueryContext{Teams: []string{"Warriors", "Lakers"}}
	assert.Equal(t,
		DeriveKey(queryReq("lakers spread", ctx1)),
		DeriveKey(queryReq("lakers spread", ctx2)))
}

func TestDeriveKeyAbsentVsEmptyContext(t *testing.T) {
	assert.NotEqual(t,
		DeriveKey(queryReq("lakers spread", nil)),
		DeriveKey(queryReq("lakers spread", &models.QueryContext{})),
		"missing context must be distinct from present-but-empty context")
}

func TestDeriveKeyNamespaceAndOperation(t *testing.T) {
	k1 := DeriveKey(ArgsRequest{NS: "stats_api", Op: "team_stats", Args: []any{"Lakers"}})
	k2 := DeriveKey(ArgsRequest{NS: "stats_api", Op: "player_stats", Args: []any{"Lakers"}})
	k3 := DeriveKey(ArgsRequest{NS: "search", Op: "team_stats", Args: []any{"Lakers"}})
	assert.NotEqual(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}

func TestDeriveKeyArgsMapOrderStable(t *testing.T) {
	// encoding/json sorts map keys, so insertion order must not matter.
	k1 := DeriveKey(ArgsRequest{NS: "stats_api", Op: "fetch", Args: []any{
		map[string]string{"team": "Lakers", "season": "2026"},
	}})
	k2 := DeriveKey(ArgsRequest{NS: "stats_api", Op: "fetch", Args: []any{
		map[string]string{"season": "2026", "team": "Lakers"},
	}})
	assert.Equal(t, k1, k2)
}
