package model

import "strings"

// Risk is a water-stress severity band. Labels are the Spanish display
// vocabulary the marketplace has always shown.
type Risk string

const (
	RiskLow      Risk = "Bajo"
	RiskMedium   Risk = "Medio"
	RiskHigh     Risk = "Alto"
	RiskCritical Risk = "Crítico"
)

// riskRanks orders bands by severity. Comparators must use this table, not
// string collation: "Alto" outranks "Bajo" in every locale.
var riskRanks = map[Risk]int{
	RiskLow:      1,
	RiskMedium:   2,
	RiskHigh:     3,
	RiskCritical: 4,
}

// Rank returns the ordinal severity of the band, 0 for unknown labels.
func (r Risk) Rank() int {
	return riskRanks[r]
}

// ParseRisk maps a free-text risk level label (the company record shape) to
// a band. Matching is case-insensitive; unrecognized labels fall back to
// RiskMedium rather than failing.
func ParseRisk(label string) Risk {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "low", "bajo":
		return RiskLow
	case "medium", "medio":
		return RiskMedium
	case "high", "alto":
		return RiskHigh
	case "critical", "crítico", "critico":
		return RiskCritical
	default:
		return RiskMedium
	}
}

// Verification labels. Projects carry either an attestation level from
// manual review or the automated-auditor vocabulary derived from the
// verified_by_ai flag.
const (
	VerificationVeryHigh = "Muy alta"
	VerificationHigh     = "Alta"
	VerificationMedium   = "Media"
	VerificationBasic    = "Básica"
	VerificationAI       = "Verificada (IA)"
	VerificationPending  = "En Proceso"
)

// verificationRanks covers both vocabularies so records from either source
// sort together. An automated audit counts as "Alta"; pending counts below
// every attested level.
var verificationRanks = map[string]int{
	VerificationVeryHigh: 4,
	VerificationHigh:     3,
	VerificationMedium:   2,
	VerificationBasic:    1,
	VerificationAI:       3,
	VerificationPending:  0,
}

// VerificationRank returns the ordinal strength of a verification label,
// 0 for unknown labels.
func VerificationRank(label string) int {
	return verificationRanks[label]
}
