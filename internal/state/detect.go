package state

const (
	ReasonFirst     = "first compile"
	ReasonDocument  = "document changed"
	ReasonPlan      = "plan changed"
	ReasonUpToDate  = "up to date"
	ReasonUnchanged = "document changed, plan unchanged"
)

// Change describes how a new compile relates to the stored one.
type Change struct {
	Changed bool   `json:"changed"`
	Reason  string `json:"reason"`
	Prior   string `json:"prior_fingerprint,omitempty"`
}

// DetectChange compares a fresh fingerprint and document hash against the
// last recorded compile. Only the fingerprint decides whether the plan
// changed; edits that compile to the same model are reported as such.
func DetectChange(cs *CompileState, fingerprint, documentHash string) Change {
	if cs == nil || cs.Last == nil {
		return Change{Changed: true, Reason: ReasonFirst}
	}
	prior := cs.Last
	switch {
	case prior.Fingerprint != fingerprint:
		reason := ReasonPlan
		if prior.DocumentHash != documentHash {
			reason = ReasonDocument
		}
		return Change{Changed: true, Reason: reason, Prior: prior.Fingerprint}
	case prior.DocumentHash != documentHash:
		return Change{Changed: false, Reason: ReasonUnchanged, Prior: prior.Fingerprint}
	}
	return Change{Changed: false, Reason: ReasonUpToDate, Prior: prior.Fingerprint}
}
