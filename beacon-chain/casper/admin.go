package casper

import (
	"bytes"

	"github.com/esperanzalabs/esperanza/config/params"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// AdminState is the permissioning gate consulted by deposit validation.
// It never changes after construction, so states share it.
type AdminState struct {
	adminKeys           [params.AdminKeysSize][]byte
	whiteList           map[common.Address]struct{}
	permissioningActive bool
}

// NewAdminState builds the gate from config. Permissioning is active only
// when admin params are given.
func NewAdminState(p *params.AdminParams) (*AdminState, error) {
	a := &AdminState{whiteList: make(map[common.Address]struct{})}
	if p == nil {
		return a, nil
	}
	if len(p.AdminKeys) != params.AdminKeysSize {
		return nil, errors.Errorf("expected %d admin keys, got %d", params.AdminKeysSize, len(p.AdminKeys))
	}
	for i, k := range p.AdminKeys {
		key, err := hexutil.Decode(k)
		if err != nil {
			return nil, errors.Wrapf(err, "could not decode admin key %d", i)
		}
		a.adminKeys[i] = key
	}
	for _, addr := range p.WhiteList {
		if !common.IsHexAddress(addr) {
			return nil, errors.Errorf("invalid white listed address %q", addr)
		}
		a.whiteList[common.HexToAddress(addr)] = struct{}{}
	}
	a.permissioningActive = true
	return a, nil
}

// IsPermissioningActive reports whether deposits are restricted to the white list.
func (a *AdminState) IsPermissioningActive() bool {
	return a.permissioningActive
}

// IsValidatorAuthorized reports whether addr may deposit.
func (a *AdminState) IsValidatorAuthorized(addr common.Address) bool {
	if !a.permissioningActive {
		return true
	}
	_, ok := a.whiteList[addr]
	return ok
}

// IsAdminKey reports whether key is one of the admin keys.
func (a *AdminState) IsAdminKey(key []byte) bool {
	for _, k := range a.adminKeys {
		if k != nil && bytes.Equal(k, key) {
			return true
		}
	}
	return false
}
