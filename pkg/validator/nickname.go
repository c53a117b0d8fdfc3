package validator

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

const MaxNicknameLength = 24

var validate = validator.New(validator.WithRequiredStructEnabled())

// NormalizeNickname applies NFC, trims and collapses inner whitespace.
func NormalizeNickname(nickname string) string {
	return strings.Join(strings.Fields(norm.NFC.String(nickname)), " ")
}

// ValidateNickname normalizes a display name and rejects empty, overlong or
// control-character names.
func ValidateNickname(nickname string) (string, error) {
	name := NormalizeNickname(nickname)

	if err := validate.Var(name, fmt.Sprintf("required,max=%d", MaxNicknameLength)); err != nil {
		return "", fmt.Errorf("nickname must be 1-%d characters", MaxNicknameLength)
	}
	for _, r := range name {
		if !unicode.IsPrint(r) {
			return "", fmt.Errorf("nickname contains invalid characters")
		}
	}

	return name, nil
}

// SameNickname compares two normalized names case-insensitively.
func SameNickname(a, b string) bool {
	return strings.EqualFold(a, b)
}
