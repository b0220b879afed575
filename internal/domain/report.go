package domain

// Report is a single cheat report: a reporter naming a cheater.
// Many-to-many: a reporter can report multiple cheaters and a cheater can be
// reported by multiple reporters; the eligibility engine resolves the
// aggregate penalty/bounty.
type Report struct {
	Reporter Address
	Cheater  Address
}
