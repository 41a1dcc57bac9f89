package reco

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	logx "recobot/pkg/logx"
)

// DefaultWeight applies when a locator carries no usable weight.
const DefaultWeight = 1.0

var (
	sourceIDPattern = regexp.MustCompile(`/playlist/(\d{5,})|disstid=(\d{5,})|id=(\d{5,})`)
	bareIDPattern   = regexp.MustCompile(`^\d{5,}$`)
)

// LocatorSpec is a validated source reference.
//
// Reference keeps the text the operator wrote (URL, query fragment or bare id).
// SourceID is the canonical pool identifier extracted from it; a LocatorSpec
// with an empty SourceID never leaves this package.
type LocatorSpec struct {
	Reference string
	SourceID  string
	Weight    float64
}

// ExtractSourceID returns the canonical pool identifier embedded in ref.
func ExtractSourceID(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	if bareIDPattern.MatchString(ref) {
		return ref, true
	}
	m := sourceIDPattern.FindStringSubmatch(ref)
	if m == nil {
		return "", false
	}
	for _, g := range m[1:] {
		if g != "" {
			return g, true
		}
	}
	return "", false
}

// NewLocator validates ref and binds it to weight.
func NewLocator(ref string, weight float64) (LocatorSpec, error) {
	ref = strings.TrimSpace(ref)
	id, ok := ExtractSourceID(ref)
	if !ok {
		return LocatorSpec{}, fmt.Errorf("%w: %q", ErrInvalidLocator, ref)
	}
	return LocatorSpec{Reference: ref, SourceID: id, Weight: sanitizeWeight(weight)}, nil
}

// ParseLocator parses the compact "reference|weight" form. The weight part is
// optional; anything unparsable falls back to DefaultWeight.
func ParseLocator(raw string) (LocatorSpec, error) {
	ref, weight := splitWeight(raw)
	return NewLocator(ref, weight)
}

// ParseLocatorList parses a comma-separated list and keeps the valid entries.
// The second return value lists the entries that did not resolve.
func ParseLocatorList(raw string) ([]LocatorSpec, []string) {
	var (
		out     []LocatorSpec
		invalid []string
	)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		l, err := ParseLocator(part)
		if err != nil {
			invalid = append(invalid, part)
			continue
		}
		out = append(out, l)
	}
	return out, invalid
}

// Compact renders the locator back to "reference|weight".
func (l LocatorSpec) Compact() string {
	return l.Reference + "|" + strconv.FormatFloat(l.Weight, 'g', -1, 64)
}

func (l LocatorSpec) String() string { return l.Compact() }

func splitWeight(raw string) (string, float64) {
	raw = strings.TrimSpace(raw)
	i := strings.LastIndexByte(raw, '|')
	if i < 0 {
		return raw, DefaultWeight
	}
	w, err := strconv.ParseFloat(strings.TrimSpace(raw[i+1:]), 64)
	if err != nil {
		w = DefaultWeight
	}
	return strings.TrimSpace(raw[:i]), w
}

func sanitizeWeight(w float64) float64 {
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return DefaultWeight
	}
	if w < 0 {
		return 0
	}
	return w
}

// locatorRecord is the structured document form.
type locatorRecord struct {
	Reference string   `json:"reference,omitempty"`
	ID        string   `json:"id,omitempty"`
	URL       string   `json:"url,omitempty"`
	Weight    *float64 `json:"weight,omitempty"`
}

// MarshalJSON writes the compact string form so documents stay hand-editable.
func (l LocatorSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Compact())
}

// UnmarshalJSON accepts either "reference|weight" or
// {"reference"|"id"|"url": ..., "weight": ...}.
// The result may be invalid (empty SourceID); callers filter with Valid.
func (l *LocatorSpec) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		ref, w := splitWeight(s)
		*l = LocatorSpec{Reference: ref, Weight: sanitizeWeight(w)}
		l.SourceID, _ = ExtractSourceID(ref)
		return nil
	}
	var rec locatorRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return err
	}
	ref := rec.Reference
	if ref == "" {
		ref = rec.ID
	}
	if ref == "" {
		ref = rec.URL
	}
	w := DefaultWeight
	if rec.Weight != nil {
		w = *rec.Weight
	}
	*l = LocatorSpec{Reference: strings.TrimSpace(ref), Weight: sanitizeWeight(w)}
	l.SourceID, _ = ExtractSourceID(l.Reference)
	return nil
}

// Valid reports whether the locator resolved to a source id.
func (l LocatorSpec) Valid() bool { return l.SourceID != "" }

// FilterValid drops unresolved locators, logging each one.
func FilterValid(in []LocatorSpec, log logx.Logger) []LocatorSpec {
	out := make([]LocatorSpec, 0, len(in))
	for _, l := range in {
		if !l.Valid() {
			log.Warn("locator skipped", logx.String("reference", l.Reference))
			continue
		}
		out = append(out, l)
	}
	return out
}
