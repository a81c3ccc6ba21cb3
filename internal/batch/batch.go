package batch

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrInvalidBatch = errors.New("invalid batch")

// DefaultLabels is the stock batch set used when no override is configured.
var DefaultLabels = []string{"F1", "F2", "F3", "F4", "F5", "F6", "F7", "F8", "F9"}

// Validator checks batch labels against the configured allowed set.
type Validator struct {
	allowed map[string]struct{}
	labels  []string
}

func NewValidator(allowed []string) *Validator {
	if len(allowed) == 0 {
		allowed = DefaultLabels
	}
	set := make(map[string]struct{}, len(allowed))
	labels := make([]string, 0, len(allowed))
	for _, raw := range allowed {
		label := strings.ToUpper(strings.TrimSpace(raw))
		if label == "" {
			continue
		}
		if _, ok := set[label]; ok {
			continue
		}
		set[label] = struct{}{}
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return &Validator{allowed: set, labels: labels}
}

// Allowed returns the full allowed set in sorted order.
func (v *Validator) Allowed() []string {
	out := make([]string, len(v.labels))
	copy(out, v.labels)
	return out
}

// Normalize uppercases and trims a single label and rejects anything
// outside the allowed set.
func (v *Validator) Normalize(raw string) (string, error) {
	label := strings.ToUpper(strings.TrimSpace(raw))
	if label == "" {
		return "", fmt.Errorf("%w: empty batch", ErrInvalidBatch)
	}
	if _, ok := v.allowed[label]; !ok {
		return "", fmt.Errorf("%w: %s is not an allowed batch", ErrInvalidBatch, label)
	}
	return label, nil
}

// NormalizeAll normalizes every label, drops duplicates, and keeps the
// first-occurrence order. An empty input yields an empty slice; callers
// decide whether that is an error.
func (v *Validator) NormalizeAll(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		label, err := v.Normalize(r)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out, nil
}

// Subset reports whether every label in want is present in have. Both
// sides are assumed to be already normalized.
func Subset(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, b := range have {
		set[b] = struct{}{}
	}
	for _, b := range want {
		if _, ok := set[b]; !ok {
			return false
		}
	}
	return true
}

// Contains reports whether a normalized label is in the list.
func Contains(list []string, label string) bool {
	for _, b := range list {
		if b == label {
			return true
		}
	}
	return false
}
