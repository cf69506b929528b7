package internal

import (
	"context"
)

// matchIDChecker is the slice of the store the resolver needs.
type matchIDChecker interface {
	ExistingMatchIDs(ctx context.Context, ids []string) ([]string, error)
}

// DeduplicationResolver computes which remote match ids are not yet stored
// locally. This check is what keeps incremental sync cheap: every id it
// filters out is a full-record fetch the pipeline never has to spend rate
// tokens on.
type DeduplicationResolver struct {
	store  matchIDChecker
	logger *Logger
}

func NewDeduplicationResolver(store matchIDChecker, logger *Logger) *DeduplicationResolver {
	return &DeduplicationResolver{store: store, logger: logger}
}

// ResolveMissing returns the candidates with no local row, input order
// preserved. Candidate lists may repeat ids across pages in flight, so the
// input is collapsed before it reaches the store. An empty input never
// touches the store.
func (r *DeduplicationResolver) ResolveMissing(ctx context.Context, candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(candidates))
	unique := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return nil, nil
	}

	existing, err := r.store.ExistingMatchIDs(ctx, unique)
	if err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		known[id] = struct{}{}
	}

	missing := make([]string, 0, len(unique)-len(existing))
	for _, id := range unique {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}

	r.logger.Debug("dedup_resolved").
		Component("dedup").
		Operation("resolve_missing").
		Meta("candidates", len(candidates)).
		Meta("unique", len(unique)).
		Meta("missing", len(missing)).
		Log()

	return missing, nil
}
