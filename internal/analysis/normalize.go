package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Hard caps on sequence lengths, applied regardless of what the model returns.
const (
	MaxCast        = 5
	MaxFilmography = 10
)

// Limits bounds the list fields of a normalized document.
type Limits struct {
	Cast        int
	Filmography int
}

// DefaultLimits returns the hard caps.
func DefaultLimits() Limits {
	return Limits{Cast: MaxCast, Filmography: MaxFilmography}
}

// doc is a decoded JSON object with lenient accessors. Numbers are kept as
// json.Number so integers survive decoding exactly.
type doc map[string]any

// parseObject decodes text as exactly one JSON object. Trailing content after
// the object is an error.
func parseObject(text string) (doc, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing content after JSON value")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("top-level value is %s, not an object", jsonType(v))
	}
	return doc(obj), nil
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "an array"
	case string:
		return "a string"
	case json.Number:
		return "a number"
	case bool:
		return "a boolean"
	}
	return fmt.Sprintf("%T", v)
}

// hasAny reports whether at least one of keys is present.
func (d doc) hasAny(keys []string) bool {
	for _, k := range keys {
		if _, ok := d.lookup(k); ok {
			return true
		}
	}
	return false
}

// missing lists the keys that are absent or null.
func (d doc) missing(keys []string) []string {
	var out []string
	for _, k := range keys {
		if v, ok := d.lookup(k); !ok || v == nil {
			out = append(out, k)
		}
	}
	return out
}

// lookup finds key exactly, falling back to a case-insensitive match.
func (d doc) lookup(key string) (any, bool) {
	if v, ok := d[key]; ok {
		return v, true
	}
	for k, v := range d {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func (d doc) get(key string) any {
	v, _ := d.lookup(key)
	return v
}

// obj returns the nested object at key, or an empty doc.
func (d doc) obj(key string) doc {
	if m, ok := d.get(key).(map[string]any); ok {
		return doc(m)
	}
	return doc{}
}

func (d doc) str(key string) string { return toString(d.get(key)) }

func (d doc) strs(key string, limit int) []string { return toStrings(d.get(key), limit) }

func (d doc) integer(key string) int { return toInt(d.get(key)) }

// toString renders any JSON value as display text.
func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case []any:
		return strings.Join(toStrings(t, 0), ", ")
	case map[string]any:
		if label := labelOf(t); label != "" {
			return label
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if s := toString(t[k]); s != "" {
				parts = append(parts, k+": "+s)
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

// labelOf returns the title or name an object carries, if any.
func labelOf(m map[string]any) string {
	for _, k := range []string{"title", "name"} {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// toStrings coerces v into a list of non-empty strings, keeping at most limit
// entries when limit > 0. The result is never nil.
func toStrings(v any, limit int) []string {
	out := make([]string, 0)
	add := func(s string) bool {
		if s == "" {
			return true
		}
		out = append(out, s)
		return limit <= 0 || len(out) < limit
	}

	switch t := v.(type) {
	case nil:
	case []any:
		for _, item := range t {
			if !add(toString(item)) {
				break
			}
		}
	case map[string]any:
		if label := labelOf(t); label != "" {
			add(label)
			break
		}
		// Award objects of the shape {"wins": 1, "categories": [...]}.
		if cats, ok := t["categories"].([]any); ok {
			return toStrings(cats, limit)
		}
		// Groupings such as {"oscars": {...}, "otherAwards": [...]} flatten
		// in key order.
		keys := make([]string, 0, len(t))
		for k, item := range t {
			switch item.(type) {
			case []any, map[string]any:
				keys = append(keys, k)
			}
		}
		if len(keys) == 0 {
			add(toString(t))
			break
		}
		sort.Strings(keys)
	flatten:
		for _, k := range keys {
			for _, s := range toStrings(t[k], 0) {
				if !add(s) {
					break flatten
				}
			}
		}
	default:
		add(toString(t))
	}
	return out
}

// toInt reads a count. Numeric strings contribute their leading digits, so
// "5 temporadas" yields 5. Anything else, including negatives, yields 0.
func toInt(v any) int {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return clampCount(n)
		}
		if f, err := t.Float64(); err == nil {
			return clampCount(int64(f))
		}
	case string:
		s := strings.TrimSpace(t)
		end := 0
		for end < len(s) && s[end] >= '0' && s[end] <= '9' {
			end++
		}
		if n, err := strconv.ParseInt(s[:end], 10, 64); err == nil {
			return clampCount(n)
		}
	}
	return 0
}

func clampCount(n int64) int {
	if n < 0 {
		return 0
	}
	if n > 1<<31-1 {
		return 1<<31 - 1
	}
	return int(n)
}

func toCast(v any, l Limits) []CastMember {
	out := make([]CastMember, 0)
	items, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		if len(out) == l.Cast {
			break
		}
		var m CastMember
		switch t := item.(type) {
		case string:
			m = CastMember{Name: strings.TrimSpace(t), Filmography: make([]string, 0)}
		case map[string]any:
			d := doc(t)
			m = CastMember{
				Name:        d.str("name"),
				Character:   d.str("character"),
				Biography:   d.str("biography"),
				Filmography: d.strs("filmography", l.Filmography),
			}
		}
		if m.Name != "" {
			out = append(out, m)
		}
	}
	return out
}

func criticalReception(d doc) CriticalReception {
	return CriticalReception{
		RottenTomatoes:   d.str("rottenTomatoes"),
		IMDb:             d.str("imdb"),
		Metacritic:       d.str("metacritic"),
		CriticsConsensus: d.str("criticsConsensus"),
	}
}

func culturalImpact(d doc) CulturalImpact {
	return CulturalImpact{
		Legacy:    d.str("legacy"),
		Influence: d.str("influence"),
		Trivia:    d.strs("trivia", 0),
	}
}

func technicalAspects(d doc) TechnicalAspects {
	return TechnicalAspects{
		Cinematography: d.str("cinematography"),
		Soundtrack:     d.str("soundtrack"),
		VisualEffects:  d.str("visualEffects"),
		Editing:        d.str("editing"),
	}
}

func normalizeMovie(d doc, l Limits) *MovieAnalysis {
	box, prod, awards := d.obj("boxOffice"), d.obj("production"), d.obj("awards")
	return &MovieAnalysis{
		Cast: toCast(d.get("cast"), l),
		BoxOffice: BoxOffice{
			Budget:        box.str("budget"),
			Worldwide:     box.str("worldwide"),
			Domestic:      box.str("domestic"),
			International: box.str("international"),
			Profitability: box.str("profitability"),
		},
		Production: Production{
			Studio:          prod.str("studio"),
			Producers:       prod.strs("producers", 0),
			Director:        prod.str("director"),
			Writers:         prod.strs("writers", 0),
			Cinematographer: prod.str("cinematographer"),
			Composer:        prod.str("composer"),
		},
		Awards: MovieAwards{
			Oscars:       awards.strs("oscars", 0),
			GoldenGlobes: awards.strs("goldenGlobes", 0),
			OtherAwards:  awards.strs("otherAwards", 0),
		},
		CriticalReception: criticalReception(d.obj("criticalReception")),
		CulturalImpact:    culturalImpact(d.obj("culturalImpact")),
		TechnicalAspects:  technicalAspects(d.obj("technicalAspects")),
	}
}

func normalizeSeries(d doc, l Limits) *SeriesAnalysis {
	prod, info, awards := d.obj("production"), d.obj("seriesInfo"), d.obj("awards")
	return &SeriesAnalysis{
		Cast: toCast(d.get("cast"), l),
		Production: SeriesProduction{
			Network:         prod.str("network"),
			Creators:        prod.strs("creators", 0),
			Producers:       prod.strs("producers", 0),
			Showrunners:     prod.strs("showrunners", 0),
			Writers:         prod.strs("writers", 0),
			Cinematographer: prod.str("cinematographer"),
			Composer:        prod.str("composer"),
		},
		SeriesInfo: SeriesInfo{
			Seasons:     info.integer("seasons"),
			Episodes:    info.integer("episodes"),
			Runtime:     info.str("runtime"),
			Status:      info.str("status"),
			OriginalRun: info.str("originalRun"),
		},
		Awards: SeriesAwards{
			Emmys:        awards.strs("emmys", 0),
			GoldenGlobes: awards.strs("goldenGlobes", 0),
			OtherAwards:  awards.strs("otherAwards", 0),
		},
		CriticalReception: criticalReception(d.obj("criticalReception")),
		CulturalImpact:    culturalImpact(d.obj("culturalImpact")),
		TechnicalAspects:  technicalAspects(d.obj("technicalAspects")),
	}
}

func normalizeActor(d doc, l Limits) *ActorDetails {
	return &ActorDetails{
		Biography:    d.str("biography"),
		Filmography:  d.strs("filmography", l.Filmography),
		Awards:       d.strs("awards", 0),
		PersonalLife: d.str("personalLife"),
	}
}
