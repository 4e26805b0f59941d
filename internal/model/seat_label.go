package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// maxSeatNumber bounds the numeric part of a seat label.
const maxSeatNumber = 999

// SeatLabel is a parsed seat identifier such as "A12" or "AA3".
type SeatLabel struct {
	Row    string // upper case letters, A..ZZ
	Number int    // 1-based seat number within the row
}

// String renders the canonical label.
func (l SeatLabel) String() string {
	return l.Row + strconv.Itoa(l.Number)
}

// ParseSeatLabel parses a row+number seat id.  Letters are folded to upper
// case and surrounding space is ignored; anything else is rejected.
func ParseSeatLabel(raw string) (SeatLabel, error) {
	s := strings.ToUpper(strings.TrimSpace(raw)) // canonical form
	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' { // consume the row letters
		i++
	}
	if i == 0 || i > 2 || i == len(s) {
		return SeatLabel{}, fmt.Errorf("%w: %q", ErrInvalidSeatLabel, raw)
	}
	digits := s[i:]
	if digits[0] == '0' { // no leading zeros so that labels stay unique
		return SeatLabel{}, fmt.Errorf("%w: %q", ErrInvalidSeatLabel, raw)
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 || n > maxSeatNumber {
		return SeatLabel{}, fmt.Errorf("%w: %q", ErrInvalidSeatLabel, raw)
	}
	return SeatLabel{Row: s[:i], Number: n}, nil
}

// RowIndex converts the row letters into a zero-based index (A=0, Z=25, AA=26).
func (l SeatLabel) RowIndex() int {
	n := 0
	for i := 0; i < len(l.Row); i++ {
		n = n*26 + int(l.Row[i]-'A'+1) // base26 without a zero digit
	}
	return n - 1
}

// NormalizeSeatLabels parses every raw label, returning the canonical labels
// in input order.  Duplicates (after canonicalisation) are an error.
func NormalizeSeatLabels(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		l, err := ParseSeatLabel(r)
		if err != nil {
			return nil, err
		}
		key := l.String()
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: duplicate seat %q", ErrInvalidSeatLabel, key)
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out, nil
}

// SortSeatLabels orders labels by row index then seat number.  Labels that
// fail to parse sort lexically after valid ones.
func SortSeatLabels(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		a, errA := ParseSeatLabel(labels[i])
		b, errB := ParseSeatLabel(labels[j])
		switch {
		case errA != nil && errB != nil:
			return labels[i] < labels[j]
		case errA != nil:
			return false
		case errB != nil:
			return true
		}
		if a.RowIndex() != b.RowIndex() {
			return a.RowIndex() < b.RowIndex()
		}
		return a.Number < b.Number
	})
}
