package diary

import (
	"unicode"

	"golang.org/x/text/unicode/bidi"
)

const (
	untitledEnglish = "Untitled Entry"
	untitledHebrew  = "רשומה ללא כותרת"
	untitledArabic  = "مدخل بدون عنوان"
)

// IsRightToLeft reports whether any of texts contains a strong right-to-left rune.
func IsRightToLeft(texts ...string) bool {
	for _, s := range texts {
		for _, r := range s {
			if isStrongRTL(r) {
				return true
			}
		}
	}
	return false
}

func isStrongRTL(r rune) bool {
	p, _ := bidi.LookupRune(r)
	switch p.Class() {
	case bidi.R, bidi.AL:
		return true
	}
	return false
}

// untitled picks a placeholder title in the script of the first strong
// right-to-left rune found in texts.
func untitled(texts ...string) string {
	for _, s := range texts {
		for _, r := range s {
			switch {
			case unicode.Is(unicode.Hebrew, r):
				return untitledHebrew
			case unicode.Is(unicode.Arabic, r):
				return untitledArabic
			}
		}
	}
	return untitledEnglish
}
