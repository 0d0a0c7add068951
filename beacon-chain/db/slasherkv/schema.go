package slasherkv

import "github.com/sirupsen/logrus"

var log = logrus.WithField("prefix", "slasherkv")

// Votes are keyed by validator address followed by the big-endian target
// epoch, so a cursor walks one validator's history in target order.
var voteRecordsBucket = []byte("vote-records")
