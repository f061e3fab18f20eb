// Package engine is the rule-based reply engine: it matches user text
// against configured intents, extracts entities, and renders a templated
// response. The engine holds no mutable state after construction and is safe
// for concurrent use; per-session memory belongs to the caller.
package engine

import (
	"math/rand"
	"strings"
	"time"

	"github.com/wispbot/wisp/internal/entity"
	"github.com/wispbot/wisp/internal/intent"
)

// timeIntent is the intent that gets the current clock time injected as an
// entity before rendering.
const timeIntent = "time"

type Engine struct {
	catalog         *intent.Catalog
	matcher         *intent.Matcher
	extractor       *entity.Extractor
	defaultResponse string

	// pick and now are injectable so tests can pin the random response
	// choice and the clock.
	pick func(n int) int
	now  func() time.Time
}

// Option customizes an Engine at construction.
type Option func(*Engine)

// WithRand replaces the response-selection randomness source.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.pick = rng.Intn }
}

// WithClock replaces the clock used for dynamic time entities.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithExtractor replaces the default entity extractor.
func WithExtractor(x *entity.Extractor) Option {
	return func(e *Engine) { e.extractor = x }
}

// New compiles the catalog's patterns and builds an engine. An intents file
// with an invalid pattern fails here; there is no partially built engine.
func New(catalog *intent.Catalog, defaultResponse string, opts ...Option) (*Engine, error) {
	matcher, err := intent.NewMatcher(catalog)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		catalog:         catalog,
		matcher:         matcher,
		extractor:       entity.NewExtractor(),
		defaultResponse: defaultResponse,
		pick:            rand.Intn,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// DefaultResponse returns the reply used for unknown or empty intents.
func (e *Engine) DefaultResponse() string {
	return e.defaultResponse
}

// PredictIntent returns the matched intent name and any entities extracted
// from text. Entity extraction runs on the raw input independently of which
// intent wins. Callers that keep session memory merge it with the returned
// entities before rendering (fresh values win on key collision).
func (e *Engine) PredictIntent(text string) (string, map[string]string) {
	text = strings.TrimSpace(text)
	return e.matcher.Match(text), e.extractor.Extract(text)
}

// Respond is the single-shot path: predict and render with no external
// memory.
func (e *Engine) Respond(text string) string {
	name, entities := e.PredictIntent(text)
	return e.RenderResponse(name, entities)
}

// RenderResponse renders a reply for an intent using the given entities.
// An unknown intent name, or one with no response templates, yields the
// default response verbatim. Otherwise one template is chosen uniformly at
// random and its placeholders are substituted from the entities, with
// dynamic fields injected first.
func (e *Engine) RenderResponse(intentName string, entities map[string]string) string {
	def, ok := e.catalog.Lookup(intentName)
	if !ok || len(def.Responses) == 0 {
		return e.defaultResponse
	}

	template := def.Responses[e.pick(len(def.Responses))]
	return fillTemplate(template, e.dynamicEntities(intentName, entities))
}

// dynamicEntities injects computed fields for certain intents. The time
// intent gets the current clock time as "2:05 PM" (no leading zero on the
// hour). Caller-supplied entities are never overwritten, except that the
// time value is always fresh.
func (e *Engine) dynamicEntities(intentName string, entities map[string]string) map[string]string {
	if intentName != timeIntent {
		return entities
	}
	out := make(map[string]string, len(entities)+1)
	for k, v := range entities {
		out[k] = v
	}
	out["time"] = e.now().Format("3:04 PM")
	return out
}
