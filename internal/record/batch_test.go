package record_test

import (
	"testing"

	"db-migrate/internal/record"
)

func makeRows(n int) []record.Row {
	rows := make([]record.Row, n)
	for i := range rows {
		rows[i] = record.Row{"id": int64(i + 1)}
	}
	return rows
}

func TestBatches_CoverEveryRowOnce(t *testing.T) {
	tests := []struct {
		name string
		n    int
		size int
	}{
		{"empty", 0, 10},
		{"single partial", 3, 10},
		{"exact multiple", 20, 10},
		{"trailing partial", 25, 10},
		{"size one", 4, 1},
		{"default size", 2500, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := makeRows(tt.n)
			size := tt.size
			if size <= 0 {
				size = record.DefaultBatchSize
			}

			var seen []int64
			batches := 0
			var last int
			for i, batch := range record.Batches(rows, tt.size) {
				if i != batches {
					t.Fatalf("batch index %d, expected %d", i, batches)
				}
				if len(batch) == 0 || len(batch) > size {
					t.Fatalf("batch %d has %d rows (size %d)", i, len(batch), size)
				}
				for _, r := range batch {
					seen = append(seen, r["id"].(int64))
				}
				last = len(batch)
				batches++
			}

			if want := record.BatchCount(tt.n, tt.size); batches != want {
				t.Errorf("expected %d batches, got %d", want, batches)
			}
			if tt.n > 0 {
				wantLast := tt.n - size*((tt.n-1)/size)
				if last != wantLast {
					t.Errorf("expected last batch of %d rows, got %d", wantLast, last)
				}
			}
			if len(seen) != tt.n {
				t.Fatalf("expected %d rows, got %d", tt.n, len(seen))
			}
			for i, id := range seen {
				if id != int64(i+1) {
					t.Fatalf("row %d out of order: id %d", i, id)
				}
			}
		})
	}
}

func TestBatches_StopsWhenConsumerBreaks(t *testing.T) {
	count := 0
	for range record.Batches(makeRows(50), 10) {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Errorf("expected iteration to stop after 2 batches, got %d", count)
	}
}

func TestRow_ValuesFollowColumnOrder(t *testing.T) {
	row := record.Row{"name": "Acme", "id": int64(7)}
	got := row.Values([]string{"id", "name", "missing"})

	if got[0] != int64(7) || got[1] != "Acme" || got[2] != nil {
		t.Errorf("unexpected values: %v", got)
	}
}

func TestRow_CloneIsIndependent(t *testing.T) {
	row := record.Row{"id": int64(1), "parent_id": int64(5)}
	c := row.Clone()
	c["parent_id"] = nil

	if row["parent_id"] != int64(5) {
		t.Error("clone mutation leaked into original row")
	}
}
