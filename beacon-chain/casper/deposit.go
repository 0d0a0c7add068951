package casper

import (
	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/esperanzalabs/esperanza/math/ufp64"
	"github.com/ethereum/go-ethereum/common"
)

// ValidateDeposit checks that addr may become a validator with amount.
func (s *FinalizationState) ValidateDeposit(addr common.Address, amount uint64) error {
	if !s.admin.IsValidatorAuthorized(addr) {
		return fail(AdminNotAuthorized, "validator %s is not white listed", addr.Hex())
	}
	if _, ok := s.validators[addr]; ok {
		return fail(DepositAlreadyValidator, "validator %s already exists", addr.Hex())
	}
	if amount < s.cfg.MinDepositSize {
		return fail(DepositInsufficient, "deposit %d is below the minimum of %d", amount, s.cfg.MinDepositSize)
	}
	return nil
}

// ProcessDeposit registers addr. The validator joins the set two dynasties
// from now, whose composition is not yet fixed.
func (s *FinalizationState) ProcessDeposit(addr common.Address, amount uint64) {
	start := s.currentDynasty.Add(2)
	scaled := ufp64.DivToUint(amount, s.depositScaleFactor[s.currentEpoch])
	s.putValidator(&Validator{
		Address:      addr,
		Deposit:      scaled,
		StartDynasty: start,
		EndDynasty:   primitives.MaxDynasty,
	})
	s.addDynastyDelta(start, int64(scaled))
	log.WithField("validator", addr.Hex()).WithField("startDynasty", start).Debug("Processed deposit")
}
