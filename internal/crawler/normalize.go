package crawler

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Field names used in MalformedFieldError and ExtractionError.
const (
	FieldPrice     = "price"
	FieldScore     = "score"
	FieldOpinions  = "opinions"
	FieldShop      = "shop"
	FieldDelivery  = "delivery"
	FieldAvailable = "available"
)

const currencySuffix = "zł"

var (
	errEmpty      = errors.New("no digits")
	errOutOfRange = errors.New("out of range [0,5]")

	scoreNoise     = regexp.MustCompile(`[^0-9,/]|/\s*5`)
	nonDigits      = regexp.MustCompile(`[^0-9]`)
	nonDigitsComma = regexp.MustCompile(`[^0-9,]`)
)

// ParsePrice converts a pl-PL price such as "1 234,56 zł" to a number.
// Spaces (including no-break spaces) group thousands, a comma separates decimals,
// and dots are treated as grouping when a decimal comma is present.
func ParsePrice(text string) (float64, error) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\u00a0', '\u202f':
			return -1
		}
		return r
	}, text)
	s = strings.TrimSuffix(s, currencySuffix)
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
	}
	s = strings.ReplaceAll(s, ",", ".")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &MalformedFieldError{Field: FieldPrice, Raw: text, Err: err}
	}
	return v, nil
}

// ParseScore converts a rating such as "4,5/5" to a number in [0,5].
func ParseScore(text string) (float64, error) {
	s := scoreNoise.ReplaceAllString(text, "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return 0, &MalformedFieldError{Field: FieldScore, Raw: text, Err: errEmpty}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &MalformedFieldError{Field: FieldScore, Raw: text, Err: err}
	}
	if v < 0 || v > 5 {
		return 0, &MalformedFieldError{Field: FieldScore, Raw: text, Err: errOutOfRange}
	}
	return v, nil
}

// ParseOpinionCount extracts the review count from text such as "123 opinie".
func ParseOpinionCount(text string) (int, error) {
	s := nonDigits.ReplaceAllString(text, "")
	if s == "" {
		return 0, &MalformedFieldError{Field: FieldOpinions, Raw: text, Err: errEmpty}
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, &MalformedFieldError{Field: FieldOpinions, Raw: text, Err: err}
	}
	return v, nil
}

// ParseDeliveryTotal extracts the price including delivery. Text without digits
// (free or bundled delivery) yields 0.
func ParseDeliveryTotal(text string) (float64, error) {
	s := nonDigitsComma.ReplaceAllString(text, "")
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(s, ",", ".")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &MalformedFieldError{Field: FieldDelivery, Raw: text, Err: err}
	}
	return v, nil
}

// CurrentEpochSeconds returns now truncated to whole seconds. A nil clock means time.Now.
func CurrentEpochSeconds(now func() time.Time) int64 {
	if now == nil {
		now = time.Now
	}
	return now().Unix()
}
