package formatter

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	artistCut      = regexp.MustCompile(`[(&,]`)
	trackCut       = regexp.MustCompile(`[(&,\-]`)
	parenthesized  = regexp.MustCompile(`\s*\(.*?\)\s*`)
	trailingSuffix = regexp.MustCompile(`\s*-\s*.*$`)
)

// Duration formats milliseconds as m:ss.
func Duration(ms int) string {
	if ms < 0 {
		ms = 0
	}
	return fmt.Sprintf("%d:%02d", ms/60000, (ms%60000)/1000)
}

// CompactCount formats n the short way: 999, 1.2K, 46K, 3.4M, 1B.
//
// Values below ten keep one decimal, larger ones are rounded to an integer.
func CompactCount(n int) string {
	sign := ""
	if n < 0 {
		sign, n = "-", -n
	}
	if n < 1000 {
		return sign + strconv.Itoa(n)
	}

	units := []string{"K", "M", "B", "T"}
	value := float64(n)
	for i, unit := range units {
		value /= 1000
		var rounded float64
		if value < 10 {
			rounded = math.Round(value*10) / 10
		} else {
			rounded = math.Round(value)
		}
		if rounded < 1000 || i == len(units)-1 {
			return sign + strconv.FormatFloat(rounded, 'f', -1, 64) + unit
		}
	}
	return sign + strconv.Itoa(n)
}

// TitleWords upper-cases the first letter of every space-separated word and leaves the rest untouched,
// so "hip-hop" becomes "Hip-hop" and "r&b" becomes "R&b".
func TitleWords(s string) string {
	upper := cases.Upper(language.BrazilianPortuguese)
	words := strings.Split(s, " ")
	for i, w := range words {
		first, size := utf8.DecodeRuneInString(w)
		if size == 0 {
			continue
		}
		words[i] = upper.String(string(first)) + w[size:]
	}
	return strings.Join(words, " ")
}

// SimplifyArtist drops featured artists and qualifiers: "A & B" and "A (feat. B)" become "A".
func SimplifyArtist(artist string) string {
	return strings.TrimSpace(artistCut.Split(artist, 2)[0])
}

// SimplifyTrack keeps the title up to the first parenthesis, ampersand, comma or dash.
func SimplifyTrack(track string) string {
	return strings.TrimSpace(trackCut.Split(track, 2)[0])
}

// StripTrackQualifiers removes parenthesized parts and anything after " - ",
// e.g. "Song (Ao Vivo) - Remastered 2011" becomes "Song".
func StripTrackQualifiers(track string) string {
	track = parenthesized.ReplaceAllString(track, "")
	track = trailingSuffix.ReplaceAllString(track, "")
	return strings.TrimSpace(track)
}

// Stars renders a 1-5 rating as stars.
func Stars(rating int) string {
	rating = max(0, min(rating, 5))
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}

// ReleaseYear returns the year part of a release date such as 1986-05-01.
func ReleaseYear(date string) string {
	year, _, _ := strings.Cut(date, "-")
	return year
}
