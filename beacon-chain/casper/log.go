package casper

import "github.com/sirupsen/logrus"

var log = logrus.WithField("prefix", "casper")
