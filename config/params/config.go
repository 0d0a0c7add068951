// Package params defines the finalization parameters consumed by the
// finalization state machine and the presets of the known networks.
package params

import (
	"github.com/esperanzalabs/esperanza/math/ufp64"
	"github.com/mohae/deepcopy"
	"github.com/pkg/errors"
)

// Unit is the number of base units in one coin.
const Unit uint64 = 100_000_000

// AdminKeysSize is the number of admin keys the permissioning gate expects.
const AdminKeysSize = 3

// FinalizationConfig contains the parameters of the finality gadget.
type FinalizationConfig struct {
	ConfigName                string       `yaml:"CONFIG_NAME"`
	EpochLength               uint32       `yaml:"EPOCH_LENGTH"`                // Number of blocks in an epoch.
	MinDepositSize            uint64       `yaml:"MIN_DEPOSIT_SIZE"`            // Smallest accepted deposit, in base units.
	DynastyLogoutDelay        uint32       `yaml:"DYNASTY_LOGOUT_DELAY"`        // Dynasties a validator keeps voting after logout.
	WithdrawalEpochDelay      uint32       `yaml:"WITHDRAWAL_EPOCH_DELAY"`      // Epochs between leaving the validator set and withdrawing.
	SlashFractionMultiplier   uint64       `yaml:"SLASH_FRACTION_MULTIPLIER"`   // Kept for parameter compatibility, withdrawals of slashed validators are zero.
	BountyFractionDenominator uint64       `yaml:"BOUNTY_FRACTION_DENOMINATOR"` // Share of a slashed deposit paid to the reporter.
	BaseInterestFactor        ufp64.UFP64  `yaml:"BASE_INTEREST_FACTOR"`
	BasePenaltyFactor         ufp64.UFP64  `yaml:"BASE_PENALTY_FACTOR"`
	AdminParams               *AdminParams `yaml:"ADMIN_PARAMS"`
}

// AdminParams seeds the permissioning gate. Keys and white listed addresses
// are hex strings.
type AdminParams struct {
	AdminKeys []string `yaml:"ADMIN_KEYS"`
	WhiteList []string `yaml:"WHITE_LIST"`
}

// Copy returns a deep copy of the config.
func (c *FinalizationConfig) Copy() *FinalizationConfig {
	config := deepcopy.Copy(*c).(FinalizationConfig)
	return &config
}

// Validate rejects configs the state machine cannot run with.
func (c *FinalizationConfig) Validate() error {
	if c.EpochLength == 0 {
		return errors.New("epoch length must be positive")
	}
	if c.BountyFractionDenominator == 0 {
		return errors.New("bounty fraction denominator must be positive")
	}
	if c.MinDepositSize == 0 {
		return errors.New("min deposit size must be positive")
	}
	if c.AdminParams != nil && len(c.AdminParams.AdminKeys) != AdminKeysSize {
		return errors.Errorf("expected %d admin keys, got %d", AdminKeysSize, len(c.AdminParams.AdminKeys))
	}
	return nil
}
