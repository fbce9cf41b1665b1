package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Severity tags for individual test results.
const (
	SeverityNormal     = "normal"
	SeverityBorderline = "borderline"
	SeverityCritical   = "critical"
)

// ReferenceSourceStandard marks a reference range the analyzer supplied
// from general medical knowledge because the document carried none.
const ReferenceSourceStandard = "standard_knowledge"

// FlexString decodes a JSON string OR number into a string. LLMs are
// inconsistent about quoting numeric test values, so both are accepted.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// Float returns the numeric value, or false when the value is not numeric.
func (f FlexString) Float() (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(f)), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// PatientInfo holds demographics the analyzer recovered from the document,
// falling back to form-supplied values.
type PatientInfo struct {
	Name       string     `json:"name,omitempty"`
	Age        FlexString `json:"age,omitempty"`
	Gender     string     `json:"gender,omitempty"`
	DOB        string     `json:"dob,omitempty"`
	ReportDate string     `json:"report_date,omitempty"`
}

// Test is one test entry inside a category.
type Test struct {
	TestName        string     `json:"test_name"`
	Value           FlexString `json:"value"`
	Unit            string     `json:"unit,omitempty"`
	ReferenceRange  string     `json:"reference_range,omitempty"`
	Severity        string     `json:"severity"`
	Interpretation  string     `json:"interpretation,omitempty"`
	ReferenceSource string     `json:"reference_source,omitempty"`
}

// Category is an ordered group of related tests.
type Category struct {
	Name  string `json:"name"`
	Tests []Test `json:"tests"`
}

// Analysis is the structured clinical interpretation produced by the
// analyzer. Category and test ordering is preserved end to end so that
// charts generated against the original-language structure align
// positionally with any translated copy.
type Analysis struct {
	PatientInfo PatientInfo `json:"patient_info"`
	Summary     string      `json:"summary"`
	Categories  []Category  `json:"categories"`

	AbnormalAnalysis     string `json:"abnormal_analysis,omitempty"`
	ClinicalAssociations string `json:"clinical_associations,omitempty"`
	LifestyleTips        string `json:"lifestyle_tips,omitempty"`
	Disclaimer           string `json:"disclaimer,omitempty"`
}

// ValidationResult is the classifier's verdict on whether the document is
// a genuine lab report.
type ValidationResult struct {
	IsLabReport bool    `json:"is_lab_report"`
	Confidence  float64 `json:"confidence"`
	Reason      string  `json:"reason"`
}
