package places

import "strings"

// segmentTypes maps a normalized business segment to the Google Places types
// queried for it. Keys are lowercase, trimmed. Unmapped segments are passed
// through verbatim as a single keyword type.
var segmentTypes = map[string][]string{
	"academia":     {"gym", "fitness_center"},
	"academias":    {"gym", "fitness_center"},
	"gym":          {"gym", "fitness_center"},
	"crossfit":     {"gym", "fitness_center"},
	"farmacia":     {"pharmacy", "drugstore"},
	"farmacias":    {"pharmacy", "drugstore"},
	"petshop":      {"pet_store", "veterinary_care"},
	"pet":          {"pet_store", "veterinary_care"},
	"restaurante":  {"restaurant"},
	"restaurantes": {"restaurant"},
	"padaria":      {"bakery"},
	"padarias":     {"bakery"},
	"mercado":      {"supermarket", "grocery_or_supermarket"},
	"supermercado": {"supermarket", "grocery_or_supermarket"},
	"cafeteria":    {"cafe"},
	"cafe":         {"cafe"},
	"café":         {"cafe"},
	"bar":          {"bar"},
	"bares":        {"bar"},
	"lanchonete":   {"meal_takeaway", "restaurant"},
	"pizzaria":     {"meal_delivery", "restaurant"},
	"salao":        {"beauty_salon", "hair_care"},
	"salão":        {"beauty_salon", "hair_care"},
	"barbearia":    {"hair_care", "beauty_salon"},
	"escola":       {"school"},
	"clinica":      {"doctor", "health"},
	"clínica":      {"doctor", "health"},
	"odontologia":  {"dentist"},
	"lavanderia":   {"laundry"},
	"oficina":      {"car_repair"},
}

// MapSegmentToTypes resolves a free-text segment to Google Places types.
// Matching is case-insensitive and ignores surrounding whitespace. An empty
// segment yields no types.
func MapSegmentToTypes(segment string) []string {
	normalized := strings.ToLower(strings.TrimSpace(segment))
	if normalized == "" {
		return nil
	}
	if types, ok := segmentTypes[normalized]; ok {
		out := make([]string, len(types))
		copy(out, types)
		return out
	}
	return []string{normalized}
}
