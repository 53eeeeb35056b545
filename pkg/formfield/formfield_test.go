package formfield

import (
	"encoding/json"
	"testing"
)

func TestNumber_Int(t *testing.T) {
	tests := []struct {
		in   string
		want *int
	}{
		{"72", intp(72)},
		{" 72 ", intp(72)},
		{"72.9", intp(72)},
		{"72 bpm", intp(72)},
		{"-4", intp(-4)},
		{"0", intp(0)},
		{"", nil},
		{"abc", nil},
		{"-", nil},
	}
	for _, tt := range tests {
		got := Number(tt.in).Int()
		if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
			t.Errorf("Number(%q).Int() = %v, want %v", tt.in, deref(got), deref(tt.want))
		}
	}
}

func TestNumber_Float(t *testing.T) {
	if v := Number("37.5").Float(); v == nil || *v != 37.5 {
		t.Errorf("expected 37.5, got %v", v)
	}
	if v := Number("36.6C").Float(); v == nil || *v != 36.6 {
		t.Errorf("expected 36.6, got %v", v)
	}
	if v := Number("1.2.3").Float(); v == nil || *v != 1.2 {
		t.Errorf("expected 1.2, got %v", v)
	}
	if v := Number("n/a").Float(); v != nil {
		t.Errorf("expected nil, got %v", *v)
	}
}

func TestNumber_UnmarshalJSON(t *testing.T) {
	var body struct {
		A Number `json:"a"`
		B Number `json:"b"`
		C Number `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":98,"b":"36.6","c":null}`), &body); err != nil {
		t.Fatal(err)
	}
	if body.A != "98" || body.B != "36.6" || body.C != "" {
		t.Errorf("unexpected decode %+v", body)
	}
}

func TestFlag(t *testing.T) {
	var body struct {
		A Flag `json:"a"`
		B Flag `json:"b"`
		C Flag `json:"c"`
		D Flag `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"a":true,"b":"on","c":"false","d":1}`), &body); err != nil {
		t.Fatal(err)
	}
	if !body.A || !body.B || body.C || !body.D {
		t.Errorf("unexpected decode %+v", body)
	}

	var f Flag
	_ = f.UnmarshalParam("on")
	if !f {
		t.Error("expected checkbox value on to be true")
	}
	_ = f.UnmarshalParam("")
	if f {
		t.Error("expected empty value to be false")
	}
}

func intp(v int) *int { return &v }

func deref(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func TestOptionalFlag(t *testing.T) {
	var body struct {
		Active OptionalFlag `json:"active"`
		Absent OptionalFlag `json:"absent"`
	}
	if err := json.Unmarshal([]byte(`{"active":false}`), &body); err != nil {
		t.Fatal(err)
	}
	if !body.Active.Set || body.Active.Value {
		t.Errorf("expected explicit false, got %+v", body.Active)
	}
	if body.Absent.Or(true) != true {
		t.Error("absent field should fall back to the default")
	}

	var o OptionalFlag
	_ = o.UnmarshalParam("on")
	if !o.Or(false) {
		t.Error("expected form value on to be true")
	}
}
