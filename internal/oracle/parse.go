package oracle

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var integerToken = regexp.MustCompile(`[-+]?\d+`)

// ParseScore extracts the first integer in a completion. The result is not
// clamped; callers clamp at the oracle boundary. Integers too large for an
// int saturate toward their sign.
func ParseScore(completion string) (int, error) {
	text := strings.TrimSpace(completion)
	if text == "" {
		return 0, ErrEmptyCompletion
	}

	tok := integerToken.FindString(text)
	if tok == "" {
		return 0, ErrUnparseable
	}

	n, err := strconv.Atoi(tok)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			if strings.HasPrefix(tok, "-") {
				return math.MinInt, nil
			}
			return math.MaxInt, nil
		}
		return 0, ErrUnparseable
	}
	return n, nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
