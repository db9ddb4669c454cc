package raid

// Raid is the standard session: up to RaidGroupLimit groups of GroupCapacity.
type Raid struct {
	session
}

func NewRaid(opts Options) *Raid {
	return &Raid{
		session: newSession(KindRaid, opts, GroupCapacity, GroupCapacity, RaidGroupLimit, InviteLimit),
	}
}
