package share

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
)

// Tier is one strategy for turning a Location into a payload.
type Tier interface {
	Resolve(ctx context.Context, loc Location) (*Payload, bool)
}

// TierFunc adapts a function to Tier.
type TierFunc func(ctx context.Context, loc Location) (*Payload, bool)

func (f TierFunc) Resolve(ctx context.Context, loc Location) (*Payload, bool) { return f(ctx, loc) }

// Resolver runs its tiers in order and returns the first hit. Results from
// different tiers are never combined.
type Resolver struct {
	tiers []Tier
}

// NewResolver creates a resolver over tiers in priority order.
func NewResolver(tiers ...Tier) *Resolver {
	return &Resolver{tiers: tiers}
}

// DefaultResolver is the standard order: short link, fragment, legacy query.
// A nil lookup skips the short-link tier.
func DefaultResolver(lookup Lookup, log *slog.Logger) *Resolver {
	var tiers []Tier
	if lookup != nil {
		tiers = append(tiers, &ShortLinkTier{Lookup: lookup, Log: log})
	}
	return NewResolver(append(tiers, FragmentTier{}, LegacyQueryTier{})...)
}

// Resolve reports false when no tier produced a valid payload.
func (r *Resolver) Resolve(ctx context.Context, loc Location) (*Payload, bool) {
	for _, t := range r.tiers {
		if p, ok := t.Resolve(ctx, loc); ok {
			return p, true
		}
	}
	return nil, false
}

// Lookup fetches the raw store response for a short-link id.
type Lookup interface {
	Get(ctx context.Context, id string) (json.RawMessage, error)
}

// ShortLinkTier resolves "/n/<id>" paths against the share store. Store
// errors and unrecognised responses are misses.
type ShortLinkTier struct {
	Lookup Lookup
	Log    *slog.Logger
}

func (t *ShortLinkTier) Resolve(ctx context.Context, loc Location) (*Payload, bool) {
	id, ok := loc.ShortID()
	if !ok {
		return nil, false
	}
	body, err := t.Lookup.Get(ctx, id)
	if err != nil {
		t.logger().Warn("short link lookup failed", slog.String("id", id), slog.String("error", err.Error()))
		return nil, false
	}
	p, ok := fromStoreResponse(body)
	if !ok {
		t.logger().Warn("short link response not recognised", slog.String("id", id))
	}
	return p, ok
}

func (t *ShortLinkTier) logger() *slog.Logger {
	if t.Log != nil {
		return t.Log
	}
	return slog.Default()
}

// fromStoreResponse accepts the four response shapes the store has used, in
// order: payload, data.payload, blob, data.blob.
func fromStoreResponse(body []byte) (*Payload, bool) {
	type shape struct {
		Payload json.RawMessage `json:"payload"`
		Blob    json.RawMessage `json:"blob"`
	}
	var top struct {
		shape
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, false
	}
	var data shape
	if bytes.HasPrefix(bytes.TrimSpace(top.Data), []byte("{")) {
		_ = json.Unmarshal(top.Data, &data)
	}

	for _, raw := range []json.RawMessage{top.Payload, data.Payload} {
		if p, ok := parsePayload(raw); ok {
			return p, true
		}
	}
	for _, raw := range []json.RawMessage{top.Blob, data.Blob} {
		var blob string
		if json.Unmarshal(raw, &blob) != nil {
			continue
		}
		if p, ok := Decode(blob); ok {
			return p, true
		}
	}
	return nil, false
}

// FragmentTier decodes a non-empty fragment as a codec blob.
type FragmentTier struct{}

func (FragmentTier) Resolve(_ context.Context, loc Location) (*Payload, bool) {
	if loc.Fragment == "" {
		return nil, false
	}
	return Decode(loc.Fragment)
}

// LegacyQueryTier decodes the "shared" or "s" query parameter, in that order.
type LegacyQueryTier struct{}

func (LegacyQueryTier) Resolve(_ context.Context, loc Location) (*Payload, bool) {
	for _, key := range []string{"shared", "s"} {
		if v := loc.Query.Get(key); v != "" {
			if p, ok := DecodeLegacy(v); ok {
				return p, true
			}
		}
	}
	return nil, false
}
