// Package score computes lead qualification scores and priority labels.
package score

import "github.com/botmesh/bot-engine/internal/model"

// Industries lists the selectable industries, in menu order. The last entry
// is the catch-all.
var Industries = []string{
	"Salud y Bienestar",
	"Retail y Comercio",
	"Servicios Profesionales",
	"Tecnologia",
	"Educacion",
	"Gastronomia",
	"Otro",
}

// CompanySizes lists the selectable company size tiers, in menu order.
var CompanySizes = []string{
	"1-10 empleados",
	"11-50 empleados",
	"51-200 empleados",
	"Mas de 200 empleados",
}

// Budgets lists the selectable monthly budget ranges, in menu order.
var Budgets = []string{
	"Menos de $100/mes",
	"$100 - $500/mes",
	"$500 - $2000/mes",
	"Mas de $2000/mes",
}

var industryWeights = map[string]int{
	"Salud y Bienestar":       25,
	"Servicios Profesionales": 25,
	"Tecnologia":              20,
	"Retail y Comercio":       15,
	"Educacion":               15,
	"Gastronomia":             10,
	"Otro":                    5,
}

var sizeWeights = map[string]int{
	"1-10 empleados":       10,
	"11-50 empleados":      20,
	"51-200 empleados":     25,
	"Mas de 200 empleados": 30,
}

var budgetWeights = map[string]int{
	"Menos de $100/mes":  5,
	"$100 - $500/mes":    15,
	"$500 - $2000/mes":   25,
	"Mas de $2000/mes":   35,
}

// Lead computes the additive 0-100 qualification score for a completed
// draft: fixed weights per industry, size tier and budget tier, plus 5 for
// each of a present email and phone, capped at 100.
func Lead(d *model.LeadDraft) int {
	s := weight(industryWeights, d.Industry, 5)
	s += weight(sizeWeights, d.CompanySize, 10)
	s += weight(budgetWeights, d.Budget, 5)
	if d.Email != "" {
		s += 5
	}
	if d.Phone != "" {
		s += 5
	}
	if s > 100 {
		s = 100
	}
	return s
}

// Priority labels a score: >=75 HOT, >=50 WARM, else COLD.
func Priority(score int) string {
	switch {
	case score >= 75:
		return "HOT"
	case score >= 50:
		return "WARM"
	default:
		return "COLD"
	}
}

func weight(table map[string]int, key string, def int) int {
	if w, ok := table[key]; ok {
		return w
	}
	return def
}
