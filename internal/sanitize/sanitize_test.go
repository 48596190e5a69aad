package sanitize_test

import (
	"errors"
	"testing"

	"db-migrate/internal/record"
	"db-migrate/internal/sanitize"
)

func TestDefault_Row(t *testing.T) {
	tests := []struct {
		name  string
		table string
		cols  []string
		in    record.Row
		want  record.Row
	}{
		{
			name:  "audit actors are nulled",
			table: "res_users",
			cols:  []string{"id", "create_uid", "write_uid"},
			in:    record.Row{"id": int64(9), "create_uid": int64(2), "write_uid": int64(3)},
			want:  record.Row{"id": int64(9), "create_uid": nil, "write_uid": nil},
		},
		{
			name:  "zero company becomes default",
			table: "res_users",
			cols:  []string{"id", "company_id"},
			in:    record.Row{"id": int64(9), "company_id": int64(0)},
			want:  record.Row{"id": int64(9), "company_id": int64(1)},
		},
		{
			name:  "null company becomes default",
			table: "res_partner",
			cols:  []string{"id", "company_id"},
			in:    record.Row{"id": int64(9), "company_id": nil},
			want:  record.Row{"id": int64(9), "company_id": int64(1)},
		},
		{
			name:  "real company is kept",
			table: "res_partner",
			cols:  []string{"company_id"},
			in:    record.Row{"company_id": int64(3)},
			want:  record.Row{"company_id": int64(3)},
		},
		{
			name:  "structured group name becomes json text",
			table: "res_groups",
			cols:  []string{"name", "comment"},
			in:    record.Row{"name": map[string]any{"en_US": "Settings"}, "comment": "plain"},
			want:  record.Row{"name": `{"en_US":"Settings"}`, "comment": "plain"},
		},
		{
			name:  "structured value on other tables is untouched",
			table: "res_users",
			cols:  []string{"name"},
			in:    record.Row{"name": map[string]any{"en_US": "x"}},
			want:  record.Row{"name": map[string]any{"en_US": "x"}},
		},
	}

	s := sanitize.Default(1)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := tt.in.Clone()
			if err := s.Row(tt.table, tt.cols, row); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for k, want := range tt.want {
				got := row[k]
				if m, ok := want.(map[string]any); ok {
					gm, ok := got.(map[string]any)
					if !ok || gm["en_US"] != m["en_US"] {
						t.Errorf("%s: expected %v, got %v", k, want, got)
					}
					continue
				}
				if got != want {
					t.Errorf("%s: expected %v (%T), got %v (%T)", k, want, want, got, got)
				}
			}
		})
	}
}

func TestSanitizer_FirstMatchWins(t *testing.T) {
	s := sanitize.New(
		sanitize.Rule{Name: "first", Columns: []string{"color"}, When: sanitize.Always, Apply: sanitize.Set("first")},
		sanitize.Rule{Name: "second", Columns: []string{"color"}, When: sanitize.Always, Apply: sanitize.Set("second")},
	)
	row := record.Row{"color": int64(4)}
	if err := s.Row("res_partner", []string{"color"}, row); err != nil {
		t.Fatal(err)
	}
	if row["color"] != "first" {
		t.Errorf("expected first rule to win, got %v", row["color"])
	}
}

func TestSanitizer_ColumnsOutsideSpecAreIgnored(t *testing.T) {
	s := sanitize.Default(1)
	row := record.Row{"write_uid": int64(5)}
	if err := s.Row("res_users", []string{"id"}, row); err != nil {
		t.Fatal(err)
	}
	if row["write_uid"] != int64(5) {
		t.Errorf("column outside the table columns was rewritten: %v", row["write_uid"])
	}
}

func TestSanitizer_TransformErrorNamesRule(t *testing.T) {
	boom := errors.New("boom")
	s := sanitize.New(sanitize.Rule{
		Name:    "explode",
		Columns: []string{"name"},
		When:    sanitize.Always,
		Apply:   func(any) (any, error) { return nil, boom },
	})
	err := s.Row("res_groups", []string{"name"}, record.Row{"name": "x"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom error, got %v", err)
	}
}

func TestSanitizer_RowsLeavesInputUntouched(t *testing.T) {
	s := sanitize.Default(1)
	in := []record.Row{{"create_uid": int64(2)}}
	out, err := s.Rows("res_users", []string{"create_uid"}, in)
	if err != nil {
		t.Fatal(err)
	}
	if in[0]["create_uid"] != int64(2) {
		t.Error("input row was modified")
	}
	if out[0]["create_uid"] != nil {
		t.Error("output row was not sanitized")
	}
}

func TestNullOrZero(t *testing.T) {
	tests := []struct {
		v    any
		want bool
	}{
		{nil, true},
		{int64(0), true},
		{0, true},
		{"0", true},
		{float64(0), true},
		{int64(1), false},
		{"1", false},
		{true, false},
	}
	for _, tt := range tests {
		if got := sanitize.NullOrZero(tt.v); got != tt.want {
			t.Errorf("NullOrZero(%#v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}
