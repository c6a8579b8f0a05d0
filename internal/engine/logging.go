package engine

import (
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

func (d *Desk) logEntry() *logrus.Entry {
	return d.log.WithComponent("desk")
}

func (d *Desk) accountEntry(accountID string) *logrus.Entry {
	return d.log.For("desk", accountID)
}

func formatFloatPlain(val float64) string {
	formatted := strconv.FormatFloat(val, 'f', 12, 64)
	formatted = strings.TrimRight(formatted, "0")
	formatted = strings.TrimRight(formatted, ".")
	if formatted == "" || formatted == "-0" {
		return "0"
	}
	return formatted
}
