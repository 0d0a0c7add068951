package casper

import (
	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/ethereum/go-ethereum/common"
)

// ValidateLogout checks that addr is an active validator that has not
// scheduled its end yet.
func (s *FinalizationState) ValidateLogout(addr common.Address) error {
	v, ok := s.validators[addr]
	if !ok {
		return fail(LogoutNotAValidator, "%s is not a validator", addr.Hex())
	}
	if v.StartDynasty > s.currentDynasty {
		return fail(LogoutNotYetAValidator, "validator %s starts in dynasty %d", addr.Hex(), v.StartDynasty)
	}
	if v.EndDynasty <= s.logoutDynasty() {
		return fail(LogoutAlreadyDone, "validator %s already ends in dynasty %d", addr.Hex(), v.EndDynasty)
	}
	return nil
}

// logoutDynasty is the first dynasty a validator logging out now is no longer part of.
func (s *FinalizationState) logoutDynasty() primitives.Dynasty {
	return s.currentDynasty.Add(s.cfg.DynastyLogoutDelay + 1)
}

// ProcessLogout schedules the validator's departure. It keeps voting until
// the logout delay has passed.
func (s *FinalizationState) ProcessLogout(addr common.Address) {
	end := s.logoutDynasty()
	v := s.mutableValidator(addr)
	v.EndDynasty = end
	v.DepositsAtLogout = s.curDynDeposits
	s.addDynastyDelta(end, -int64(v.Deposit))
	log.WithField("validator", addr.Hex()).WithField("endDynasty", end).Debug("Processed logout")
}
