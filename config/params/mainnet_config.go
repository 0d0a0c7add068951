package params

import "github.com/esperanzalabs/esperanza/math/ufp64"

var mainnetConfig = &FinalizationConfig{
	ConfigName:                ConfigNames[Mainnet],
	EpochLength:               50,
	MinDepositSize:            10_000 * Unit,
	DynastyLogoutDelay:        700,
	WithdrawalEpochDelay:      15_000,
	SlashFractionMultiplier:   3,
	BountyFractionDenominator: 25,
	BaseInterestFactor:        ufp64.ToUFP64(7),
	BasePenaltyFactor:         ufp64.Div2Uint(2, 10_000_000),
}

// MainnetConfig returns the parameters of the main network.
func MainnetConfig() *FinalizationConfig {
	return mainnetConfig.Copy()
}

// TestnetConfig shortens the logout and withdrawal delays of mainnet.
func TestnetConfig() *FinalizationConfig {
	c := MainnetConfig()
	c.ConfigName = ConfigNames[Testnet]
	c.DynastyLogoutDelay = 4
	c.WithdrawalEpochDelay = 5
	return c
}

// RegtestConfig uses short epochs and small deposits for local runs.
func RegtestConfig() *FinalizationConfig {
	c := TestnetConfig()
	c.ConfigName = ConfigNames[Regtest]
	c.EpochLength = 5
	c.MinDepositSize = 1_500 * Unit
	c.DynastyLogoutDelay = 2
	return c
}
