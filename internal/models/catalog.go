package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Role distinguishes the two kinds of portal users.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Term bounds.
const (
	MinTerm = 1
	MaxTerm = 6
)

// CatalogEntry pairs a stable code with its display name.
type CatalogEntry struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Catalog groups every fixed lookup table exposed to clients.
type Catalog struct {
	Roles        []CatalogEntry `json:"roles"`
	Institutions []CatalogEntry `json:"institutions"`
	Departments  []CatalogEntry `json:"departments"`
	Terms        []CatalogEntry `json:"terms"`
	Categories   []CatalogEntry `json:"categories"`
}

var institutions = []CatalogEntry{
	{Code: "meip", Name: "MEIP College"},
	{Code: "pvp", Name: "PVP College"},
	{Code: "sjp", Name: "SJP College"},
	{Code: "rrp", Name: "RRP College"},
}

var departments = []CatalogEntry{
	{Code: "cse", Name: "Computer Science & Engineering"},
	{Code: "civil", Name: "Civil Engineering"},
	{Code: "auto", Name: "Automobile Engineering"},
	{Code: "eee", Name: "Electrical & Electronics Engineering"},
	{Code: "ece", Name: "Electronics & Communication Engineering"},
	{Code: "ist", Name: "Information Science & Technology"},
	{Code: "ice", Name: "Instrumentation & Control Engineering"},
	{Code: "mech", Name: "Mechanical Engineering"},
}

var categories = []CatalogEntry{
	{Code: "notes", Name: "Notes"},
	{Code: "syllabus", Name: "Syllabus"},
	{Code: "midterm", Name: "Midterm Papers"},
	{Code: "model", Name: "Model Papers"},
}

// DefaultCatalog returns a fresh copy of the lookup tables.
func DefaultCatalog() Catalog {
	terms := make([]CatalogEntry, 0, MaxTerm)
	for t := MinTerm; t <= MaxTerm; t++ {
		terms = append(terms, CatalogEntry{Code: strconv.Itoa(t), Name: TermName(t)})
	}
	return Catalog{
		Roles: []CatalogEntry{
			{Code: string(RoleStudent), Name: "Student"},
			{Code: string(RoleTeacher), Name: "Teacher"},
		},
		Institutions: append([]CatalogEntry(nil), institutions...),
		Departments:  append([]CatalogEntry(nil), departments...),
		Terms:        terms,
		Categories:   append([]CatalogEntry(nil), categories...),
	}
}

// InstitutionName resolves an institution code.
func InstitutionName(code string) (string, bool) { return lookup(institutions, code) }

// DepartmentName resolves a department code.
func DepartmentName(code string) (string, bool) { return lookup(departments, code) }

// CategoryName resolves a document category code.
func CategoryName(code string) (string, bool) { return lookup(categories, code) }

// ShortInstitutionName drops the trailing " College" for inline prose.
func ShortInstitutionName(code string) string {
	name, ok := InstitutionName(code)
	if !ok {
		return strings.ToUpper(code)
	}
	return strings.TrimSuffix(name, " College")
}

// ValidTerm reports whether t is a known term.
func ValidTerm(t int) bool { return t >= MinTerm && t <= MaxTerm }

// ParseTerm converts a path segment into a validated term number.
func ParseTerm(raw string) (int, error) {
	t, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || !ValidTerm(t) {
		return 0, fmt.Errorf("term must be between %d and %d", MinTerm, MaxTerm)
	}
	return t, nil
}

// TermName renders "1st Semester", "2nd Semester" and so on.
func TermName(t int) string {
	suffix := "th"
	switch t % 10 {
	case 1:
		suffix = "st"
	case 2:
		suffix = "nd"
	case 3:
		suffix = "rd"
	}
	if t%100 >= 11 && t%100 <= 13 {
		suffix = "th"
	}
	return fmt.Sprintf("%d%s Semester", t, suffix)
}

func lookup(entries []CatalogEntry, code string) (string, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, e := range entries {
		if e.Code == code {
			return e.Name, true
		}
	}
	return "", false
}
