package model

import (
	"encoding/json"
	"testing"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in      string
		want    Severity
		wantErr bool
	}{
		{"low", SeverityLow, false},
		{"MEDIUM", SeverityMedium, false},
		{" high ", SeverityHigh, false},
		{"critical", SeverityCritical, false},
		{"severe", SeverityLow, true},
		{"", SeverityLow, true},
	}
	for _, tt := range tests {
		got, err := ParseSeverity(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSeverity(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSeverity(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSeverityOrderAndWeight(t *testing.T) {
	want := []int{1, 3, 7, 15}
	for i, s := range Severities {
		if s.Weight() != want[i] {
			t.Errorf("%s: expected weight %d, got %d", s, want[i], s.Weight())
		}
		if i > 0 && !(Severities[i-1] < s) {
			t.Errorf("expected %s < %s", Severities[i-1], s)
		}
	}
	if Severity(7).Valid() || Severity(7).Weight() != 0 {
		t.Error("expected out-of-range severity to be invalid with zero weight")
	}
}

func TestSeverityHistogramJSON(t *testing.T) {
	var h SeverityHistogram
	h.Add(SeverityHigh)
	h.Add(SeverityHigh)
	h.Add(SeverityCritical)
	h.Add(Severity(9))

	b, err := json.Marshal(h)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"critical":1,"high":2}` {
		t.Errorf("unexpected encoding %s", b)
	}

	var back SeverityHistogram
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back != h || back.Total() != 3 {
		t.Errorf("expected %v, got %v", h, back)
	}
	if err := json.Unmarshal([]byte(`{"urgent":1}`), &back); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestFieldsOrder(t *testing.T) {
	var fb FieldsBuilder
	fb.Set("zeta", "1")
	fb.Set("alpha", "2")
	fb.Set("zeta", "3")
	f := fb.Fields()

	b, err := json.Marshal(f)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"zeta":"3","alpha":"2"}` {
		t.Errorf("expected insertion order, got %s", b)
	}
	if v, ok := f.Get("zeta"); !ok || v != "3" {
		t.Errorf("expected zeta=3, got %q %v", v, ok)
	}
}

func TestFieldsDetachedFromBuilder(t *testing.T) {
	var fb FieldsBuilder
	fb.Set("user", "alice")
	rec := LogRecord{Fields: fb.Fields()}
	copied := rec

	fb.Set("user", "mallory")
	fb.Set("extra", "1")

	for _, r := range []LogRecord{rec, copied} {
		if v, _ := r.Fields.Get("user"); v != "alice" {
			t.Errorf("expected user=alice, got %q", v)
		}
		if r.Fields.Len() != 1 {
			t.Errorf("expected 1 field, got %d", r.Fields.Len())
		}
	}
	if v, ok := fb.Get("user"); !ok || v != "mallory" {
		t.Errorf("builder should start fresh after Fields, got %q %v", v, ok)
	}
}

func TestStructured(t *testing.T) {
	if (LogRecord{Format: FormatGeneric}).Structured() {
		t.Error("generic records are not structured")
	}
	if !(LogRecord{Format: "json"}).Structured() {
		t.Error("json records are structured")
	}
}
