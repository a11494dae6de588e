package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ize202/slipshark/pkg/models"
)

// keyPrefix namespaces every Slipshark key in the shared remote store.
const keyPrefix = "slipshark"

// Request describes a cacheable call. Implementations provide the parts of
// the call that affect its result; two calls with equal parts share a key.
type Request interface {
	// Namespace groups related operations (e.g. "research", "stats_api").
	Namespace() string
	// Operation names the wrapped call (e.g. "team_stats").
	Operation() string
	// KeyParts returns a stable string form of every argument that affects
	// the result. Must be deterministic across process restarts.
	KeyParts() []string
}

// DeriveKey builds the cache key for a request: the namespace joined with a
// 128-bit hash of the assembled parts. Stable across restarts.
func DeriveKey(req Request) string {
	parts := append([]string{req.Namespace(), req.Operation()}, req.KeyParts()...)
	sum := md5.Sum([]byte(strings.Join(parts, "\x1f")))
	return keyPrefix + ":" + req.Namespace() + ":" + hex.EncodeToString(sum[:])
}

// QueryRequest is the "query research" call shape: a free-text query plus an
// optional conversation context. The query is case- and whitespace-normalized
// and the context is reduced to the fields that affect research output, so
// irrelevant context differences don't cause spurious misses.
type QueryRequest struct {
	NS      string
	Op      string
	Query   string
	Context *models.QueryContext
}

func (r QueryRequest) Namespace() string { return r.NS }
func (r QueryRequest) Operation() string { return r.Op }

func (r QueryRequest) KeyParts() []string {
	parts := []string{normalizeQuery(r.Query)}
	if r.Context == nil {
		// Absent context is distinct from present-but-empty context.
		parts = append(parts, "ctx:absent")
	} else {
		parts = append(parts, "ctx:"+canonicalContext(r.Context))
	}
	return parts
}

// normalizeQuery lowercases and collapses all whitespace runs to one space.
func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// canonicalContext encodes the relevant context subset as JSON with sorted
// keys and sorted list values.
func canonicalContext(ctx *models.QueryContext) string {
	teams := append([]string(nil), ctx.Teams...)
	sort.Strings(teams)
	players := append([]string(nil), ctx.Players...)
	sort.Strings(players)

	// encoding/json sorts map keys, which gives the canonical ordering.
	canonical := map[string]any{
		"bet_type":  ctx.BetType,
		"game_date": ctx.GameDate,
		"players":   players,
		"sport":     string(ctx.Sport),
		"teams":     teams,
	}
	data, err := json.Marshal(canonical)
	if err != nil {
		// Only string fields and slices above; cannot fail in practice.
		return fmt.Sprintf("%v", canonical)
	}
	return string(data)
}

// ArgsRequest covers every other call shape: the key is built from a stable
// string form of each argument in order.
type ArgsRequest struct {
	NS   string
	Op   string
	Args []any
}

func (r ArgsRequest) Namespace() string { return r.NS }
func (r ArgsRequest) Operation() string { return r.Op }

func (r ArgsRequest) KeyParts() []string {
	parts := make([]string, 0, len(r.Args))
	for _, arg := range r.Args {
		parts = append(parts, stableString(arg))
	}
	return parts
}

// stableString renders an argument deterministically. JSON encoding sorts
// map keys and walks struct fields in declaration order, so equal values
// always render identically regardless of memory layout.
func stableString(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
