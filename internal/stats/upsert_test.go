package stats

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
)

func TestUpsertStats_Counters(t *testing.T) {
	s := NewUpsertStats()
	if s.Inserted() != 0 || s.Updated() != 0 || s.Total() != 0 {
		t.Fatal("fresh stats not zeroed")
	}

	s.RecordInsert()
	s.RecordInsert()
	s.RecordUpdate()

	if s.Inserted() != 2 {
		t.Errorf("Inserted() = %d, want 2", s.Inserted())
	}
	if s.Updated() != 1 {
		t.Errorf("Updated() = %d, want 1", s.Updated())
	}
	if s.Total() != 3 {
		t.Errorf("Total() = %d, want 3", s.Total())
	}

	s.Reset()
	if s.Total() != 0 {
		t.Errorf("Total() after Reset = %d", s.Total())
	}
}

func TestUpsertStats_String(t *testing.T) {
	s := NewUpsertStats()
	s.RecordInsert()
	s.RecordUpdate()
	s.RecordUpdate()

	if got := s.String(); got != "inserted=1 updated=2 total=3" {
		t.Errorf("String() = %q", got)
	}
}

func TestUpsertStats_Concurrent(t *testing.T) {
	s := NewUpsertStats()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.RecordInsert()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.RecordUpdate()
			}
		}()
	}
	wg.Wait()

	if s.Inserted() != 5000 || s.Updated() != 5000 {
		t.Errorf("counters = %d/%d, want 5000/5000", s.Inserted(), s.Updated())
	}
}

func TestUpsertStats_LogSummary(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, nil))

	s := NewUpsertStats()
	s.RecordInsert()
	s.RecordUpdate()
	s.LogSummary(logger, "feedback")

	var entry struct {
		Entity   string `json:"entity"`
		Inserted int64  `json:"inserted"`
		Updated  int64  `json:"updated"`
		Total    int64  `json:"total"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log entry: %v", err)
	}
	if entry.Entity != "feedback" || entry.Inserted != 1 || entry.Updated != 1 || entry.Total != 2 {
		t.Errorf("logged %+v", entry)
	}
}
