package params

const (
	Mainnet ConfigName = iota
	Testnet
	Regtest
)

// ConfigNames provides network configuration names.
var ConfigNames = map[ConfigName]string{
	Mainnet: "mainnet",
	Testnet: "testnet",
	Regtest: "regtest",
}

// ConfigName enum describes the type of known network in use.
type ConfigName int

func (n ConfigName) String() string {
	s, ok := ConfigNames[n]
	if !ok {
		return "undefined"
	}
	return s
}

// ConfigByName returns a copy of the preset registered under name.
func ConfigByName(name string) (*FinalizationConfig, bool) {
	switch name {
	case Mainnet.String():
		return MainnetConfig(), true
	case Testnet.String():
		return TestnetConfig(), true
	case Regtest.String():
		return RegtestConfig(), true
	default:
		return nil, false
	}
}
