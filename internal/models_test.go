package internal

import "testing"

func TestMatchParticipant_IsBot(t *testing.T) {
	tests := []struct {
		puuid string
		isBot bool
	}{
		{"", true},
		{"BOT", true},
		{"real-puuid-value", false},
	}

	for _, tt := range tests {
		p := MatchParticipant{PUUID: tt.puuid}
		if p.IsBot() != tt.isBot {
			t.Errorf("IsBot(%q): expected %v", tt.puuid, tt.isBot)
		}
	}
}

func TestIngestionReport_Merge(t *testing.T) {
	total := IngestionReport{}
	total.Merge(IngestionReport{Processed: 3, Inserted: 2, Failed: 1, Pages: 1})
	total.Merge(IngestionReport{Processed: 5, Inserted: 5, Pages: 2})

	if total.Processed != 8 {
		t.Errorf("expected 8 processed, got %d", total.Processed)
	}
	if total.Inserted != 7 {
		t.Errorf("expected 7 inserted, got %d", total.Inserted)
	}
	if total.Failed != 1 {
		t.Errorf("expected 1 failed, got %d", total.Failed)
	}
	if total.Pages != 3 {
		t.Errorf("expected 3 pages, got %d", total.Pages)
	}
}
