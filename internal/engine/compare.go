package engine

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ezanapp/minaret/internal/model"
)

// PlaceRef is the comparator's view of a place: an id (empty or "0" for
// synthetic entries) plus a primary name with a city fallback. Manual
// hierarchy ids and provider location ids share one stringified key space.
type PlaceRef struct {
	ID   string
	Name string
	City string
}

func RefFromSelected(sel model.SelectedLocation) PlaceRef {
	ref := PlaceRef{}
	if sel.District != nil {
		ref.ID = strconv.Itoa(sel.District.ID)
		ref.Name = sel.District.Name
	}
	if sel.City != nil {
		ref.City = sel.City.Name
	}
	return ref
}

func RefFromGPS(info model.GPSCityInfo) PlaceRef {
	return PlaceRef{ID: info.ID, Name: info.Name, City: info.City}
}

// SameLocation decides whether two places are the same.
//
// Non-zero ids are the highest-confidence key: when both sides carry one
// the verdict depends only on id equality. Otherwise normalized names are
// compared, district first, city as fallback; empty names never match so
// that ambiguous synthetic entries default to "different".
func SameLocation(a, b PlaceRef) bool {
	if hasID(a) && hasID(b) {
		return a.ID == b.ID
	}
	an := normalizeName(a.Name)
	if an == "" {
		an = normalizeName(a.City)
	}
	bn := normalizeName(b.Name)
	if bn == "" {
		bn = normalizeName(b.City)
	}
	return an != "" && an == bn
}

func hasID(r PlaceRef) bool {
	return r.ID != "" && r.ID != "0"
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeName lowercases, folds the Turkish dotted/dotless I pair,
// strips diacritics and trims, so "Kadıköy" and "kadikoy" compare equal.
func normalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	s = strings.ReplaceAll(s, "ı", "i")
	return s
}
