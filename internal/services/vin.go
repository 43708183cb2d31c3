package services

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

// vinPattern matches the VINs the sticker site serves, optionally preceded
// by a "VIN" label. I, O and Q never appear in a VIN.
var vinPattern = regexp.MustCompile(`(?i)(?:VIN\s*)?(ZA[RS][A-HJ-NPR-Z0-9]{14})`)

// exactVIN is vinPattern anchored to a whole string.
var exactVIN = regexp.MustCompile(`^ZA[RS][A-HJ-NPR-Z0-9]{14}$`)

// FindVIN returns the first VIN in text, upper-cased. Full-width characters
// are folded to ASCII first so VINs typed on mobile keyboards still match.
func FindVIN(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	m := vinPattern.FindStringSubmatch(width.Fold.String(text))
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[1]), true
}

// NormalizeVIN upper-cases and validates a VIN given on its own.
func NormalizeVIN(s string) (string, error) {
	v := strings.ToUpper(strings.TrimSpace(width.Fold.String(s)))
	if !exactVIN.MatchString(v) {
		return "", ErrInvalidVIN
	}
	return v, nil
}
