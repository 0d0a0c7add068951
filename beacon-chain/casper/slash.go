package casper

import "github.com/sirupsen/logrus"

// IsSlashable checks that a and b prove a validator misbehaved.
func (s *FinalizationState) IsSlashable(a, b *Vote) error {
	if a.Validator != b.Validator {
		return fail(SlashNotSameValidator, "votes of %s and %s", a.Validator.Hex(), b.Validator.Hex())
	}
	v, ok := s.validators[a.Validator]
	if !ok {
		return fail(SlashNotValidator, "%s is not a validator", a.Validator.Hex())
	}
	if *a == *b {
		return fail(SlashSameVote, "%s is the same vote twice", a)
	}
	if v.Slashed {
		return fail(SlashAlreadySlashed, "validator %s is already slashed", a.Validator.Hex())
	}
	if CheckSlashable(a, b) == NotSlashable {
		return fail(SlashNotValid, "%s and %s do not contradict", a, b)
	}
	return nil
}

// ProcessSlash punishes the validator of a and b: its deposit is forfeited
// and it leaves the validator set with the next dynasty. It returns the
// bounty owed to whoever reported the votes.
func (s *FinalizationState) ProcessSlash(a, b *Vote) uint64 {
	addr := a.Validator
	value := s.DepositSize(addr)
	v := s.mutableValidator(addr)
	v.Slashed = true
	s.setTotalSlashed(s.currentEpoch, s.totalSlashed[s.currentEpoch]+value)

	end := s.currentDynasty.Add(1)
	if v.EndDynasty > end {
		deposit := int64(v.Deposit)
		if v.HasLoggedOut() {
			s.addDynastyDelta(v.EndDynasty, deposit)
		} else {
			v.DepositsAtLogout = s.curDynDeposits
		}
		if v.StartDynasty >= end {
			// Never became active, withdraw the scheduled activation instead.
			s.addDynastyDelta(v.StartDynasty, -deposit)
			v.EndDynasty = v.StartDynasty
		} else {
			s.addDynastyDelta(end, -deposit)
			v.EndDynasty = end
		}
	}

	bounty := value / s.cfg.BountyFractionDenominator
	log.WithFields(logrus.Fields{
		"validator": addr.Hex(),
		"slashed":   value,
		"bounty":    bounty,
		"kind":      CheckSlashable(a, b),
	}).Debug("Processed slash")
	return bounty
}
