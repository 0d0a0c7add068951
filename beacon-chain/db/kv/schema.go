package kv

import "github.com/sirupsen/logrus"

var log = logrus.WithField("prefix", "db")

var (
	finalizationStatesBucket = []byte("finalization-states")
	finalizationTipsBucket   = []byte("finalization-tips")
	chainMetadataBucket      = []byte("chain-metadata")

	tipHashKey = []byte("tip-hash")
)
