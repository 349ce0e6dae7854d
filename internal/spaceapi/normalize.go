package spaceapi

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Snapshot is a normalized, point-in-time demographic/consumption dataset for
// a location. Value object: never mutated after creation. Every numeric field
// is guaranteed finite.
type Snapshot struct {
	Head       Head            `json:"head"`
	Totals     Totals          `json:"totals"`
	Categories []CategoryValue `json:"categorias"`
	Classes    []ClassShare    `json:"classes"`
	AgeBands   []AgeBandValue  `json:"faixas,omitempty"`
	Meta       Meta            `json:"meta"`
	Synthetic  bool            `json:"synthetic,omitempty"`
}

type Head struct {
	Muni     string  `json:"muni"`
	People   float64 `json:"people"`
	Income   float64 `json:"income"`
	Consumer float64 `json:"consumer"`
	Density  float64 `json:"density,omitempty"`
}

type Totals struct {
	ConsumptionTotal   float64 `json:"consumo_total"`
	ConsumptionCurrent float64 `json:"consumo_corrente"`
	Expenditure        float64 `json:"despesas"`
}

type CategoryValue struct {
	Key   string  `json:"chave"`
	Label string  `json:"rotulo"`
	Order int     `json:"ordem"`
	Value float64 `json:"valor"`
}

type ClassShare struct {
	Class      string  `json:"sigla"`
	Households float64 `json:"domicilios"`
	Pct        float64 `json:"pct"`
}

type AgeBandValue struct {
	Key   string  `json:"chave"`
	Label string  `json:"rotulo"`
	Value float64 `json:"valor"`
}

type Meta struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	RadiusM    int       `json:"radius_m"`
	ReceivedAt time.Time `json:"recebido_em"`
}

// FieldLabel maps an upstream field key to its display label. The upstream
// payload is stringly typed; these fixed ordered tables are the only place
// field keys appear.
type FieldLabel struct {
	Key   string
	Label string
	Order int
}

var ConsumptionCategories = []FieldLabel{
	{"cons_1_food", "Alimentação", 1},
	{"cons_2_housing", "Habitação", 2},
	{"cons_3_clothing", "Vestuário", 3},
	{"cons_4_transport", "Transporte", 4},
	{"cons_5_hygiene_care", "Higiene & Cuidados", 5},
	{"cons_6_health", "Saúde", 6},
	{"cons_7_education", "Educação", 7},
	{"cons_8_recreation", "Lazer/Recreação", 8},
	{"cons_9_tobacco", "Fumo", 9},
	{"cons_10_personal_services", "Serviços Pessoais", 10},
	{"cons_12_others", "Outros", 12},
	{"cons_13_asset_increase", "Aumento de Ativos", 13},
	{"cons_14_liability_reduction", "Redução de Passivos", 14},
}

var SocialClasses = []struct {
	Sigla string
	Key   string
}{
	{"A1", "class_a1"},
	{"A2", "class_a2"},
	{"B1", "class_b1"},
	{"B2", "class_b2"},
	{"C", "class_c"},
	{"D", "class_d"},
	{"E", "class_e"},
}

var AgeBands = []FieldLabel{
	{"age_0_4", "0-4 anos", 1},
	{"age_5_9", "5-9 anos", 2},
	{"age_10_14", "10-14 anos", 3},
	{"age_15_19", "15-19 anos", 4},
	{"age_20_24", "20-24 anos", 5},
	{"age_25_29", "25-29 anos", 6},
	{"age_30_34", "30-34 anos", 7},
	{"age_35_39", "35-39 anos", 8},
	{"age_40_44", "40-44 anos", 9},
	{"age_45_49", "45-49 anos", 10},
	{"age_50_54", "50-54 anos", 11},
	{"age_55_59", "55-59 anos", 12},
	{"age_60_64", "60-64 anos", 13},
	{"age_65_plus", "65+ anos", 14},
}

// ToNumber coerces an upstream value to a finite float64. Anything that does
// not parse, or parses to NaN/Inf, maps to the fallback.
func ToNumber(val interface{}, fallback float64) float64 {
	var num float64
	switch v := val.(type) {
	case nil:
		return fallback
	case float64:
		num = v
	case float32:
		num = float64(v)
	case int:
		num = float64(v)
	case int64:
		num = float64(v)
	case uint:
		num = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return fallback
		}
		num = parsed
	case string:
		parsed, ok := parseLocalizedNumber(v)
		if !ok {
			return fallback
		}
		num = parsed
	default:
		return fallback
	}

	if math.IsNaN(num) || math.IsInf(num, 0) {
		return fallback
	}
	return num
}

// parseLocalizedNumber decodes pt-BR formatted numeric strings such as
// "1.234,56" and currency-like values with a " MI" suffix. The suffix scale
// is 1e3 so that "1.234,56 MI" decodes to 1234560, matching the upstream
// documentation's worked example.
func parseLocalizedNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	scale := 1.0
	if upper := strings.ToUpper(s); strings.HasSuffix(upper, " MI") {
		s = strings.TrimSpace(s[:len(s)-3])
		scale = 1000
	}

	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))

	// Decimal comma implies dots are thousands separators
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}

	num, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(num) || math.IsInf(num, 0) {
		return 0, false
	}
	return num * scale, true
}

// ToPercent computes round(numerator/denominator*100, 1 decimal), guarding
// divide-by-zero: denominator <= 0 yields 0.
func ToPercent(numerator, denominator float64) float64 {
	if denominator <= 0 {
		return 0
	}
	pct := (numerator / denominator) * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return 0
	}
	return math.Round(pct*10) / 10
}

// Normalize converts the heterogeneous raw payload into a strictly-typed
// Snapshot. Categorical entries with non-positive values are dropped: absence
// means "no data".
func Normalize(raw map[string]interface{}, q Query) Snapshot {
	if raw == nil {
		raw = map[string]interface{}{}
	}

	people := ToNumber(raw["people"], 0)
	income := ToNumber(raw["income"], 0)
	consumer := ToNumber(raw["consumer"], 0)
	if consumer == 0 {
		consumer = ToNumber(raw["cons_a_total"], 0)
	}

	head := Head{
		Muni:     "Localização desconhecida",
		People:   people,
		Income:   income,
		Consumer: consumer,
	}
	if muni, ok := raw["muni"].(string); ok && muni != "" {
		head.Muni = muni
	}
	if people > 0 && q.RadiusM > 0 {
		radiusKm := float64(q.RadiusM) / 1000
		head.Density = math.Round(people / (radiusKm * radiusKm))
	}

	totals := Totals{
		ConsumptionTotal:   ToNumber(raw["cons_a_total"], 0),
		ConsumptionCurrent: ToNumber(raw["cons_b_current"], 0),
		Expenditure:        ToNumber(raw["cons_c_expenditure"], 0),
	}

	categories := make([]CategoryValue, 0, len(ConsumptionCategories))
	for _, cat := range ConsumptionCategories {
		value := ToNumber(raw[cat.Key], 0)
		if value <= 0 {
			continue
		}
		categories = append(categories, CategoryValue{
			Key:   cat.Key,
			Label: cat.Label,
			Order: cat.Order,
			Value: value,
		})
	}

	households := make([]float64, len(SocialClasses))
	var totalHouseholds float64
	for i, cls := range SocialClasses {
		households[i] = ToNumber(raw[cls.Key], 0)
		totalHouseholds += households[i]
	}
	classes := make([]ClassShare, 0, len(SocialClasses))
	for i, cls := range SocialClasses {
		if households[i] <= 0 {
			continue
		}
		classes = append(classes, ClassShare{
			Class:      cls.Sigla,
			Households: households[i],
			Pct:        ToPercent(households[i], totalHouseholds),
		})
	}

	var ageBands []AgeBandValue
	for _, band := range AgeBands {
		value := ToNumber(raw[band.Key], 0)
		if value <= 0 {
			continue
		}
		ageBands = append(ageBands, AgeBandValue{
			Key:   band.Key,
			Label: band.Label,
			Value: value,
		})
	}

	synthetic, _ := raw[syntheticMarker].(bool)

	return Snapshot{
		Head:       head,
		Totals:     totals,
		Categories: categories,
		Classes:    classes,
		AgeBands:   ageBands,
		Meta: Meta{
			Lat:        q.Lat,
			Lng:        q.Lng,
			RadiusM:    q.RadiusM,
			ReceivedAt: time.Now().UTC(),
		},
		Synthetic: synthetic,
	}
}
