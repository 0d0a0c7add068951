package casper

import (
	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/esperanzalabs/esperanza/math/ufp64"
	"github.com/ethereum/go-ethereum/common"
)

// CalculateWithdrawAmount returns what addr may withdraw. The deposit is
// valued at the first epoch the validator no longer voted in, so the amount
// does not change while the validator waits. Slashed validators withdraw nothing.
func (s *FinalizationState) CalculateWithdrawAmount(addr common.Address) (uint64, error) {
	v, ok := s.validators[addr]
	if !ok {
		return 0, fail(WithdrawNotAValidator, "%s is not a validator", addr.Hex())
	}
	if v.Withdrawn {
		return 0, fail(WithdrawAlreadyDone, "validator %s already withdrew", addr.Hex())
	}
	if s.currentDynasty <= v.EndDynasty {
		return 0, fail(WithdrawTooEarly, "validator %s is part of the validator set until dynasty %d", addr.Hex(), v.EndDynasty)
	}
	endEpoch := s.dynastyStartEpoch[v.EndDynasty+1]
	withdrawalEpoch := endEpoch.Add(s.cfg.WithdrawalEpochDelay)
	if s.currentEpoch < withdrawalEpoch {
		return 0, fail(WithdrawTooEarly, "validator %s can withdraw from epoch %d", addr.Hex(), withdrawalEpoch)
	}
	if v.Slashed {
		return 0, nil
	}
	return ufp64.MulToUint(s.depositScaleFactor[endEpoch], v.Deposit), nil
}

// WithdrawalEpoch returns the first epoch addr may withdraw in, once its end
// dynasty has started.
func (s *FinalizationState) WithdrawalEpoch(addr common.Address) (primitives.Epoch, bool) {
	v, ok := s.validators[addr]
	if !ok || !v.HasLoggedOut() {
		return 0, false
	}
	endEpoch, ok := s.dynastyStartEpoch[v.EndDynasty+1]
	if !ok {
		return 0, false
	}
	return endEpoch.Add(s.cfg.WithdrawalEpochDelay), true
}

// ValidateWithdraw checks that addr may withdraw exactly amount.
func (s *FinalizationState) ValidateWithdraw(addr common.Address, amount uint64) error {
	want, err := s.CalculateWithdrawAmount(addr)
	if err != nil {
		return err
	}
	if amount != want {
		return fail(WithdrawWrongAmount, "validator %s requested %d, entitled to %d", addr.Hex(), amount, want)
	}
	return nil
}

// ProcessWithdraw marks the deposit of addr as paid out. The record stays so
// the address cannot deposit again.
func (s *FinalizationState) ProcessWithdraw(addr common.Address, amount uint64) {
	v := s.mutableValidator(addr)
	v.Deposit = 0
	v.Withdrawn = true
	log.WithField("validator", addr.Hex()).WithField("amount", amount).Debug("Processed withdraw")
}
