// Package transformers normalizes raw sports statistics feeds into the
// common shapes the synthesis step consumes. One transformer per sport;
// unknown sports pass through as raw data points.
package transformers

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/ize202/slipshark/pkg/models"
)

// Transformer converts one sport's raw feed documents into the normalized
// shapes. Implementations never panic: malformed input produces a record
// with its Error field set so a single bad document cannot abort a batch.
type Transformer interface {
	TransformTeam(raw json.RawMessage) models.NormalizedTeam
	TransformGame(raw json.RawMessage) models.NormalizedGame
	TransformPlayer(raw json.RawMessage, requiredData []string) models.NormalizedPlayer
	Validate(data models.TransformedSportData) bool
}

// Registry maps sport tags to their transformers.
type Registry struct {
	transformers map[models.SportType]Transformer
}

// NewRegistry builds a registry with the built-in transformers installed.
func NewRegistry(logger *zap.Logger) *Registry {
	r := &Registry{transformers: make(map[models.SportType]Transformer)}
	r.Register(models.SportBasketball, NewBasketballTransformer(logger))
	return r
}

// Register installs a transformer for a sport, replacing any existing one.
func (r *Registry) Register(sport models.SportType, t Transformer) {
	r.transformers[sport] = t
}

// Get returns the transformer for a sport, or nil when none is registered.
func (r *Registry) Get(sport models.SportType) Transformer {
	return r.transformers[sport]
}
