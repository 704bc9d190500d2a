// Package keys derives cache keys for rendered exports.
package keys

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/geobuffer/internal/core/model"
)

const prefix = "geobuffer:export"

// ExportKey fingerprints every input an export depends on: the format, the
// buffer configuration and the ordered points. Two sessions holding the same
// points under the same configuration share a key.
func ExportKey(format string, points []model.Point, cfg model.BufferConfig) string {
	d := xxhash.New()
	var num [8]byte

	writeFloat := func(f float64) {
		binary.LittleEndian.PutUint64(num[:], math.Float64bits(f))
		_, _ = d.Write(num[:])
	}
	writeString := func(s string) {
		binary.LittleEndian.PutUint64(num[:], uint64(len(s)))
		_, _ = d.Write(num[:])
		_, _ = d.WriteString(s)
	}

	writeString(string(cfg.Shape))
	writeFloat(cfg.Distance)
	binary.LittleEndian.PutUint64(num[:], uint64(len(points)))
	_, _ = d.Write(num[:])
	for _, p := range points {
		writeString(p.Name)
		writeFloat(p.Lat)
		writeFloat(p.Lng)
	}

	return fmt.Sprintf("%s:%s:%016x", prefix, sanitize(format), d.Sum64())
}

func sanitize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}
