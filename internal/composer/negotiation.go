package composer

import (
	"strconv"
	"strings"
)

type Format int

const (
	FormatGeoJSON Format = iota
	FormatShapefile
)

const (
	ContentTypeGeoJSON = "application/geo+json"
	ContentTypeZip     = "application/zip"
)

type NegotiationInput struct {
	AcceptHeader  string
	OutputFormat  string
	DefaultFormat Format
}

type Negotiation struct {
	Format      Format
	ContentType string
}

func (f Format) String() string {
	switch f {
	case FormatShapefile:
		return "shapefile"
	default:
		return "geojson"
	}
}

func negotiationFor(f Format) Negotiation {
	if f == FormatShapefile {
		return Negotiation{Format: FormatShapefile, ContentType: ContentTypeZip}
	}
	return Negotiation{Format: FormatGeoJSON, ContentType: ContentTypeGeoJSON}
}

// NegotiateFormat picks the export format. An explicit format parameter wins,
// then the highest-q Accept entry, then the default.
func NegotiateFormat(in NegotiationInput) Negotiation {
	of := strings.ToLower(strings.TrimSpace(in.OutputFormat))
	switch of {
	case "geojson", "json", ContentTypeGeoJSON, "application/json":
		return negotiationFor(FormatGeoJSON)
	case "shapefile", "shp", "zip", ContentTypeZip:
		return negotiationFor(FormatShapefile)
	}

	bestQ := -1.0
	best := Negotiation{}
	for part := range strings.SplitSeq(strings.ToLower(in.AcceptHeader), ",") {
		token := strings.TrimSpace(part)
		if token == "" {
			continue
		}
		mt := token
		params := ""
		if i := strings.Index(token, ";"); i >= 0 {
			mt = strings.TrimSpace(token[:i])
			params = token[i+1:]
		}
		q := 1.0
		for p := range strings.SplitSeq(params, ";") {
			p = strings.TrimSpace(p)
			if after, ok := strings.CutPrefix(p, "q="); ok {
				if v, err := strconv.ParseFloat(after, 64); err == nil {
					q = v
				}
			}
		}
		var cand *Negotiation
		switch {
		case mt == "*/*":
			tmp := negotiationFor(in.DefaultFormat)
			cand = &tmp
		case mt == ContentTypeGeoJSON || mt == "application/json":
			tmp := negotiationFor(FormatGeoJSON)
			cand = &tmp
		case mt == ContentTypeZip || mt == "application/x-zip-compressed" || strings.Contains(mt, "shapefile"):
			tmp := negotiationFor(FormatShapefile)
			cand = &tmp
		}
		if cand != nil && q > bestQ {
			bestQ = q
			best = *cand
		}
	}
	if bestQ >= 0 {
		return best
	}
	return negotiationFor(in.DefaultFormat)
}
