package traindef

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// DomainTrain is the domain prefix for train identity hashes.
// Version suffix enables future algorithm migration.
const DomainTrain = "gearbox/train/v1"

// Hash computes the content-addressed identity of a train definition.
// Format: SHA256(domain + 0x00 + canonical)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
//
// The hash covers the declared spec, not the engine's normalized view:
// an omitted step and an explicit step 1 behave identically at runtime
// but are distinct declarations and hash differently.
func Hash(spec *TrainSpec) (string, error) {
	canonical, err := MarshalCanonical(spec)
	if err != nil {
		return "", fmt.Errorf("traindef: hash %q: %w", spec.Name, err)
	}

	h := sha256.New()
	h.Write([]byte(DomainTrain))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MustHash is like Hash but panics on error.
// Use only in tests or when the spec is known to be valid.
func MustHash(spec *TrainSpec) string {
	hash, err := Hash(spec)
	if err != nil {
		panic(err)
	}
	return hash
}

// MarshalCanonical produces the canonical JSON form used for hashing.
//
// Properties:
//  1. Object keys emitted in sorted order
//  2. Strings are NFC normalized
//  3. No HTML escaping (< > & are NOT escaped)
//  4. Every field explicit, so a declared zero and an omitted field
//     canonicalize the same
//
// Train specs hold only strings and ints, so the full generality of an
// RFC 8785 marshaler is not needed here.
func MarshalCanonical(spec *TrainSpec) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	buf.WriteString(`"drive":`)
	if err := writeCanonicalGear(&buf, &spec.Drive); err != nil {
		return nil, err
	}
	buf.WriteString(`,"name":`)
	if err := writeCanonicalString(&buf, spec.Name); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeCanonicalGear(buf *bytes.Buffer, g *GearSpec) error {
	buf.WriteByte('{')
	buf.WriteString(`"gears":[`)
	for i := range g.Gears {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalGear(buf, &g.Gears[i]); err != nil {
			return fmt.Errorf("gears[%d]: %w", i, err)
		}
	}
	buf.WriteString(`],"name":`)
	if err := writeCanonicalString(buf, g.Name); err != nil {
		return err
	}
	buf.WriteString(`,"phase":`)
	buf.WriteString(strconv.Itoa(g.Phase))
	buf.WriteString(`,"priority":`)
	buf.WriteString(strconv.Itoa(g.Priority))
	buf.WriteString(`,"ratio":`)
	buf.WriteString(strconv.Itoa(g.Ratio))
	buf.WriteString(`,"step":`)
	buf.WriteString(strconv.Itoa(g.Step))
	buf.WriteByte('}')
	return nil
}

// writeCanonicalString emits a JSON string with NFC normalization and
// HTML escaping disabled.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	normalized := norm.NFC.String(s)

	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return err
	}

	// json.Encoder adds a trailing newline, remove it
	out := b.Bytes()
	if n := len(out); n > 0 && out[n-1] == '\n' {
		out = out[:n-1]
	}
	buf.Write(out)
	return nil
}
