// Package privacy redacts personally identifiable information from recognized
// document text before it is persisted or sent to an LLM provider.
package privacy

import (
	"regexp"
	"strings"

	"github.com/usamaalam01/LabReportAI/internal/logger"
)

// Redaction markers inserted in place of matched PII.
const (
	MarkerName    = "[REDACTED]"
	MarkerID      = "[ID_REDACTED]"
	MarkerPhone   = "[PHONE_REDACTED]"
	MarkerAddress = "[ADDRESS_REDACTED]"
	MarkerCity    = "[CITY_REDACTED]"
	MarkerDOB     = "[DOB_REDACTED]"
	MarkerDoctor  = "[DOCTOR_REDACTED]"
	MarkerLab     = "[LAB_REDACTED]"
	MarkerEmail   = "[EMAIL_REDACTED]"
	MarkerCNIC    = "[CNIC_REDACTED]"
)

// markers, in reporting order.
var markers = []string{
	MarkerName,
	MarkerID,
	MarkerPhone,
	MarkerAddress,
	MarkerCity,
	MarkerDOB,
	MarkerDoctor,
	MarkerLab,
	MarkerEmail,
	MarkerCNIC,
}

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// rules are applied in order. Labeled patterns (with a "Name:" style prefix)
// come before bare patterns so the label survives redaction.
var rules = []rule{
	// Patient name with a label: "Patient Name: John Doe" or "Name: John Doe"
	{regexp.MustCompile(`(?i)(patient\s*name|name)\s*[:]\s*[A-Z][a-z]+(?:\s+[A-Z][a-z]+){1,3}`), "${1}: " + MarkerName},
	// Honorific followed by a name: "Mr. John Doe"
	{regexp.MustCompile(`(?i)\b(?:Mr\.?|Mrs\.?|Ms\.?|Miss)\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+){1,2}\b`), MarkerName},

	// Patient ID / medical record number
	{regexp.MustCompile(`(?i)(patient\s*id|mrn|medical\s*record\s*(?:number|no\.?)|uhid|hospital\s*id)\s*[:]\s*[\w-]+`), "${1}: " + MarkerID},
	{regexp.MustCompile(`(?i)\b(id|mrn)\s*[:]\s*[A-Z0-9-]{4,20}\b`), "${1}: " + MarkerID},

	// CNIC (Pakistani national ID). Must run before the generic phone pattern,
	// which would otherwise consume the first thirteen digits.
	{regexp.MustCompile(`\b\d{5}-\d{7}-\d{1}\b`), MarkerCNIC},

	// Phone numbers, international and Pakistani mobile formats
	{regexp.MustCompile(`\+?\d{1,3}[-.\s]?\(?\d{2,4}\)?[-.\s]?\d{3,4}[-.\s]?\d{3,4}`), MarkerPhone},
	{regexp.MustCompile(`\b03[0-9]{2}[-.\s]?[0-9]{7}\b`), MarkerPhone},

	// Street addresses and well-known cities
	{regexp.MustCompile(`(?i)(?:house\s*(?:no\.?|#)?|street|road|lane|block|sector|phase)\s*[:.]?\s*[\w\s,.-]{5,50}`), MarkerAddress},
	{regexp.MustCompile(`(?i),\s*(?:karachi|lahore|islamabad|rawalpindi|faisalabad|multan|peshawar|quetta|hyderabad|sialkot)(?:\s*,\s*pakistan)?`), ", " + MarkerCity},

	// Date of birth
	{regexp.MustCompile(`(?i)(date\s*of\s*birth|dob|d\.o\.b\.?|birth\s*date)\s*[:]\s*[\d/.-]+`), "${1}: " + MarkerDOB},
	{regexp.MustCompile(`(?i)(?:born|dob)\s*[:.]?\s*(?:\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{4}[/-]\d{1,2}[/-]\d{1,2})`), "born: " + MarkerDOB},

	// Referring doctor
	{regexp.MustCompile(`(?i)(referred\s*by|doctor|physician|consultant|dr\.?)\s*[:.]?\s*[A-Z][a-z]+(?:\s+[A-Z][a-z]+){1,3}`), "${1}: " + MarkerDoctor},
	{regexp.MustCompile(`(?i)\bDr\.?\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2}\b`), MarkerDoctor},

	// Hospital / lab name
	{regexp.MustCompile(`(?i)(hospital|laboratory|lab|clinic|medical\s*center|diagnostic\s*center|healthcare)\s*[:.]?\s*[A-Z][A-Za-z\s&]+(?:Hospital|Lab|Clinic|Center|Healthcare|Diagnostics)?`), "${1}: " + MarkerLab},
	{regexp.MustCompile(`(?i)\b(?:Chughtai|Shaukat\s*Khanum|Aga\s*Khan|Excel|Essa|Ziauddin|Liaquat|Indus|OMI|Dow)\s+(?:Lab|Hospital|Diagnostic|Medical|Healthcare)?\w*\b`), MarkerLab},

	// Email addresses
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), MarkerEmail},
}

// Scrub replaces PII in text with category redaction markers. It never fails:
// text that matches no rule is returned unchanged, and scrubbing already
// scrubbed text is a no-op.
func Scrub(text string) string {
	if text == "" {
		return text
	}

	scrubbed := text
	redactions := 0
	for _, r := range rules {
		if matches := r.pattern.FindAllStringIndex(scrubbed, -1); len(matches) > 0 {
			redactions += len(matches)
			scrubbed = r.pattern.ReplaceAllString(scrubbed, r.replacement)
		}
	}

	if redactions > 0 {
		log := logger.WithComponent("privacy")
		log.Info().Int("redactions", redactions).Msg("Scrubbed PII from text")
	}
	return scrubbed
}

// Summary counts the redaction markers present in scrubbed text, keyed by
// marker name without brackets (e.g. "phone_redacted").
func Summary(scrubbed string) map[string]int {
	summary := make(map[string]int)
	for _, marker := range markers {
		if n := strings.Count(scrubbed, marker); n > 0 {
			key := strings.ToLower(strings.Trim(marker, "[]"))
			summary[key] = n
		}
	}
	return summary
}
