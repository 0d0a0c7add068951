package kv

import (
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

func decode(data []byte, dst interface{}) error {
	data, err := snappy.Decode(nil, data)
	if err != nil {
		return err
	}
	return rlp.DecodeBytes(data, dst)
}

func encode(v interface{}) ([]byte, error) {
	if v == nil || reflect.ValueOf(v).IsNil() {
		return nil, errors.New("cannot encode nil value")
	}
	enc, err := rlp.EncodeToBytes(v)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, enc), nil
}
