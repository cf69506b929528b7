package internal

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type mockIDChecker struct {
	existing map[string]bool
	queries  [][]string
	err      error
}

func (m *mockIDChecker) ExistingMatchIDs(ctx context.Context, ids []string) ([]string, error) {
	m.queries = append(m.queries, append([]string(nil), ids...))
	if m.err != nil {
		return nil, m.err
	}
	var found []string
	for _, id := range ids {
		if m.existing[id] {
			found = append(found, id)
		}
	}
	return found, nil
}

func TestDeduplicationResolver_SetDifference(t *testing.T) {
	store := &mockIDChecker{existing: map[string]bool{"A": true, "B": true}}
	resolver := NewDeduplicationResolver(store, createTestLogger())

	missing, err := resolver.ResolveMissing(context.Background(), []string{"A", "B", "C", "D"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !reflect.DeepEqual(missing, []string{"C", "D"}) {
		t.Errorf("expected [C D], got %v", missing)
	}
}

func TestDeduplicationResolver_EmptyInputSkipsStore(t *testing.T) {
	store := &mockIDChecker{}
	resolver := NewDeduplicationResolver(store, createTestLogger())

	missing, err := resolver.ResolveMissing(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("expected empty result, got %v", missing)
	}
	if len(store.queries) != 0 {
		t.Errorf("expected no store queries for empty input, got %d", len(store.queries))
	}
}

func TestDeduplicationResolver_CollapsesDuplicates(t *testing.T) {
	store := &mockIDChecker{existing: map[string]bool{"A": true}}
	resolver := NewDeduplicationResolver(store, createTestLogger())

	missing, err := resolver.ResolveMissing(context.Background(), []string{"A", "B", "B", "A", "B"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !reflect.DeepEqual(missing, []string{"B"}) {
		t.Errorf("expected [B], got %v", missing)
	}

	if len(store.queries) != 1 {
		t.Fatalf("expected 1 store query, got %d", len(store.queries))
	}
	if !reflect.DeepEqual(store.queries[0], []string{"A", "B"}) {
		t.Errorf("expected deduplicated query [A B], got %v", store.queries[0])
	}
}

func TestDeduplicationResolver_EmptyStoreBootstrap(t *testing.T) {
	store := &mockIDChecker{}
	resolver := NewDeduplicationResolver(store, createTestLogger())

	candidates := []string{"A", "B", "C"}
	missing, err := resolver.ResolveMissing(context.Background(), candidates)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !reflect.DeepEqual(missing, candidates) {
		t.Errorf("expected all candidates missing on empty store, got %v", missing)
	}
}

func TestDeduplicationResolver_BlankIDsDropped(t *testing.T) {
	store := &mockIDChecker{}
	resolver := NewDeduplicationResolver(store, createTestLogger())

	missing, err := resolver.ResolveMissing(context.Background(), []string{"", "", ""})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("expected no missing ids, got %v", missing)
	}
	if len(store.queries) != 0 {
		t.Errorf("expected no store queries, got %d", len(store.queries))
	}
}

func TestDeduplicationResolver_StoreErrorPropagates(t *testing.T) {
	storeErr := &StoreError{Op: "existing_match_ids", Err: errors.New("connection refused")}
	store := &mockIDChecker{err: storeErr}
	resolver := NewDeduplicationResolver(store, createTestLogger())

	_, err := resolver.ResolveMissing(context.Background(), []string{"A"})
	var se *StoreError
	if !errors.As(err, &se) {
		t.Errorf("expected StoreError, got %v", err)
	}
}
