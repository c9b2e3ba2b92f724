// Package auth implements login verdicts against the external lab
// directory: a single-source provider that can create and synchronize
// local accounts on the fly, and a chain that consults several
// providers in order.
package auth

// Verdict is a tri-state authentication answer. Unknown means "not my
// user, or the source is unreachable" and lets a chain move on to the
// next provider; it is never a password failure.
type Verdict int

const (
	// VerdictUnknown defers the decision to the next provider.
	VerdictUnknown Verdict = iota

	// VerdictNo is a definite rejection.
	VerdictNo

	// VerdictYes is a definite success.
	VerdictYes
)

func (v Verdict) String() string {
	switch v {
	case VerdictYes:
		return "yes"
	case VerdictNo:
		return "no"
	default:
		return "unknown"
	}
}

// Definite reports whether the verdict settles the login.
func (v Verdict) Definite() bool { return v != VerdictUnknown }

// verdictOf converts a boolean check result.
func verdictOf(ok bool) Verdict {
	if ok {
		return VerdictYes
	}
	return VerdictNo
}
