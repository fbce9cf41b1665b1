package ocr

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/usamaalam01/LabReportAI/internal/logger"
)

const (
	// minTextLength is the minimum number of characters (after trimming
	// whitespace) for a recognition result to be considered readable.
	minTextLength = 50

	// minAlnumRatio is the minimum ratio of alphanumeric characters to
	// non-whitespace characters. Heavily symbolic output is noise.
	minAlnumRatio = 0.3

	// minDigitRatio is the digit density below which a result is suspicious
	// for a lab report. Low density is logged but never rejected: referral
	// letters and cover pages are legitimately text-heavy.
	minDigitRatio = 0.03

	// maxRepeatRun is the longest run of identical non-digit characters
	// tolerated before the result is treated as scanner noise. Digit runs
	// are exempt: identifiers legitimately repeat digits.
	maxRepeatRun = 4
)

// symbolRunPattern matches 5+ consecutive special characters, which indicates
// recognition garbage rather than document content.
var symbolRunPattern = regexp.MustCompile(`[^\w\s.,;:!?()-]{5,}`)

// IsGarbageText reports whether recognized text is too noisy to be worth
// analyzing. It is intentionally conservative: borderline output passes
// through so the downstream classifier gets a chance to judge it.
func IsGarbageText(text string) bool {
	log := logger.WithComponent("ocr")

	stripped := strings.TrimSpace(text)
	if len(stripped) < minTextLength {
		log.Debug().Int("length", len(stripped)).Msg("Text too short, treating as garbage")
		return true
	}

	var alnum, digits, nonSpace int
	for _, r := range stripped {
		if unicode.IsSpace(r) {
			continue
		}
		nonSpace++
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum++
		}
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if nonSpace == 0 {
		return true
	}

	if ratio := float64(alnum) / float64(nonSpace); ratio < minAlnumRatio {
		log.Debug().Float64("alnum_ratio", ratio).Msg("Text mostly non-alphanumeric, treating as garbage")
		return true
	}

	if hasRepeatedRun(stripped) {
		log.Debug().Msg("Text contains long run of repeated characters, treating as garbage")
		return true
	}

	if symbolRunPattern.MatchString(stripped) {
		log.Debug().Msg("Text contains long run of special characters, treating as garbage")
		return true
	}

	if ratio := float64(digits) / float64(nonSpace); ratio < minDigitRatio {
		log.Warn().Float64("digit_ratio", ratio).Msg("Low digit density for a lab report, passing through anyway")
	}

	return false
}

// hasRepeatedRun reports whether text contains a run of more than maxRepeatRun
// identical non-digit characters.
func hasRepeatedRun(text string) bool {
	var prev rune
	run := 0
	for _, r := range text {
		if r == prev && !unicode.IsDigit(r) {
			run++
			if run > maxRepeatRun {
				return true
			}
		} else {
			run = 1
		}
		prev = r
	}
	return false
}
