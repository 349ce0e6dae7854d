package spaceapi

import (
	"math"
	"testing"
)

func TestToNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		fallback float64
		want     float64
	}{
		{"float", 42.5, 0, 42.5},
		{"int", 7, 0, 7},
		{"numeric string", "123.4", 0, 123.4},
		{"localized string", "1.234,56", 0, 1234.56},
		{"currency with MI suffix", "1.234,56 MI", 0, 1234560},
		{"currency prefix", "R$ 1.500,00", 0, 1500},
		{"nil", nil, 0, 0},
		{"garbage string", "abc", 0, 0},
		{"empty string", "", 0, 0},
		{"nan", math.NaN(), 0, 0},
		{"positive inf", math.Inf(1), 0, 0},
		{"negative inf", math.Inf(-1), 0, 0},
		{"bool", true, 0, 0},
		{"fallback used", "abc", 9, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToNumber(tt.input, tt.fallback)
			if got != tt.want {
				t.Errorf("ToNumber(%v) = %v, want %v", tt.input, got, tt.want)
			}
			if math.IsNaN(got) || math.IsInf(got, 0) {
				t.Errorf("ToNumber(%v) returned non-finite %v", tt.input, got)
			}
		})
	}
}

func TestToPercent(t *testing.T) {
	tests := []struct {
		name        string
		numerator   float64
		denominator float64
		want        float64
	}{
		{"half", 1, 2, 50},
		{"rounded to one decimal", 1, 3, 33.3},
		{"zero denominator", 10, 0, 0},
		{"negative denominator", 10, -5, 0},
		{"zero numerator", 0, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToPercent(tt.numerator, tt.denominator); got != tt.want {
				t.Errorf("ToPercent(%v, %v) = %v, want %v", tt.numerator, tt.denominator, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	raw := map[string]interface{}{
		"muni":               "São Paulo",
		"people":             float64(40000),
		"income":             "3.500,00",
		"cons_a_total":       float64(9000000),
		"cons_b_current":     float64(7000000),
		"cons_c_expenditure": "abc", // coerces to 0
		"cons_1_food":        float64(2000000),
		"cons_2_housing":     float64(0), // dropped: zero is absence
		"cons_3_clothing":    float64(-5), // dropped: negative
		"class_a1":           float64(100),
		"class_c":            float64(300),
		"age_20_24":          float64(5000),
	}
	q := Query{Lat: -23.55052, Lng: -46.633308, RadiusM: 2000}

	snap := Normalize(raw, q)

	if snap.Head.Muni != "São Paulo" {
		t.Errorf("Muni = %q, want São Paulo", snap.Head.Muni)
	}
	if snap.Head.People != 40000 {
		t.Errorf("People = %v, want 40000", snap.Head.People)
	}
	if snap.Head.Income != 3500 {
		t.Errorf("Income = %v, want 3500", snap.Head.Income)
	}
	// consumer falls back to cons_a_total when absent
	if snap.Head.Consumer != 9000000 {
		t.Errorf("Consumer = %v, want 9000000", snap.Head.Consumer)
	}
	// 40000 people in a 2km-radius square: 40000 / 4 = 10000
	if snap.Head.Density != 10000 {
		t.Errorf("Density = %v, want 10000", snap.Head.Density)
	}
	if snap.Totals.Expenditure != 0 {
		t.Errorf("Expenditure = %v, want 0", snap.Totals.Expenditure)
	}

	if len(snap.Categories) != 1 || snap.Categories[0].Key != "cons_1_food" {
		t.Errorf("Categories = %+v, want only cons_1_food", snap.Categories)
	}

	if len(snap.Classes) != 2 {
		t.Fatalf("Classes = %+v, want A1 and C", snap.Classes)
	}
	if snap.Classes[0].Class != "A1" || snap.Classes[0].Pct != 25 {
		t.Errorf("Class A1 = %+v, want pct 25", snap.Classes[0])
	}
	if snap.Classes[1].Class != "C" || snap.Classes[1].Pct != 75 {
		t.Errorf("Class C = %+v, want pct 75", snap.Classes[1])
	}

	if len(snap.AgeBands) != 1 || snap.AgeBands[0].Key != "age_20_24" {
		t.Errorf("AgeBands = %+v, want only age_20_24", snap.AgeBands)
	}

	if snap.Synthetic {
		t.Error("Synthetic should be false for real payloads")
	}
	if snap.Meta.RadiusM != 2000 {
		t.Errorf("Meta.RadiusM = %d, want 2000", snap.Meta.RadiusM)
	}
}

func TestNormalizeEmptyPayload(t *testing.T) {
	snap := Normalize(nil, Query{Lat: 0, Lng: 0, RadiusM: 1000})

	if snap.Head.Muni != "Localização desconhecida" {
		t.Errorf("Muni = %q, want default", snap.Head.Muni)
	}
	if snap.Head.People != 0 || snap.Head.Density != 0 {
		t.Errorf("empty payload should normalize to zeros, got %+v", snap.Head)
	}
	if len(snap.Categories) != 0 || len(snap.Classes) != 0 || len(snap.AgeBands) != 0 {
		t.Error("empty payload should produce no categorical entries")
	}
}

func TestNormalizeSyntheticMarker(t *testing.T) {
	raw := SyntheticPayload(Query{Lat: -23.5, Lng: -46.6, RadiusM: 1500})
	snap := Normalize(raw, Query{Lat: -23.5, Lng: -46.6, RadiusM: 1500})

	if !snap.Synthetic {
		t.Error("synthetic payload should keep the synthetic flag through normalization")
	}
	if snap.Head.People <= 0 {
		t.Errorf("synthetic payload should carry population, got %v", snap.Head.People)
	}
	if len(snap.Classes) == 0 || len(snap.Categories) == 0 {
		t.Error("synthetic payload should produce categorical breakdowns")
	}
}
