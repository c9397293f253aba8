package directory

import (
	"sort"
	"strings"
)

// Filter keeps the clinics whose name, description or address contains
// term (case-insensitive) and, when specialization is set, whose
// specializations include it exactly. Blank filters match everything.
func Filter(clinics []ClinicProfile, term, specialization string) []ClinicProfile {
	term = strings.ToLower(strings.TrimSpace(term))

	out := make([]ClinicProfile, 0, len(clinics))
	for _, c := range clinics {
		if term != "" && !matchesTerm(c, term) {
			continue
		}
		if specialization != "" && !hasSpecialization(c, specialization) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func matchesTerm(c ClinicProfile, term string) bool {
	if strings.Contains(strings.ToLower(c.Name), term) {
		return true
	}
	if c.Description != nil && strings.Contains(strings.ToLower(*c.Description), term) {
		return true
	}
	return strings.Contains(strings.ToLower(c.Address), term)
}

func hasSpecialization(c ClinicProfile, s string) bool {
	for _, v := range c.Specializations {
		if v == s {
			return true
		}
	}
	return false
}

// Specializations returns the sorted distinct specializations offered
// across clinics.
func Specializations(clinics []ClinicProfile) []string {
	seen := make(map[string]struct{})
	for _, c := range clinics {
		for _, s := range c.Specializations {
			seen[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
