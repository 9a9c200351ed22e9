package validation

import (
	"fmt"
	"strings"
)

// NormalizeLabel trims and lowercases a category or tag name.
func NormalizeLabel(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidateLabelName checks a normalized category/tag name against the
// 2-50 character bound.
func ValidateLabelName(name string) error {
	if len(name) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	if len(name) > 50 {
		return fmt.Errorf("name must not exceed 50 characters")
	}
	return nil
}
