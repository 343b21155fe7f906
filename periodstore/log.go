package periodstore

import "github.com/sirupsen/logrus"

var log = logrus.WithField("prefix", "periodstore")
