package journal

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestContext(t *testing.T) {
	fields := Context(ContractToSync, map[string]string{
		TenderID:   "1984",
		ContractID: "42",
	})

	assert.Equal(t, logrus.Fields{
		"MESSAGE_ID":          "c_bridge_contract_to_sync",
		"JOURNAL_TENDER_ID":   "1984",
		"JOURNAL_CONTRACT_ID": "42",
	}, fields)
}

func TestContextWithoutParams(t *testing.T) {
	assert.Equal(t, logrus.Fields{"MESSAGE_ID": "c_bridge_start"}, Context(Start, nil))
}

func TestRequestID(t *testing.T) {
	id := RequestID()
	assert.True(t, strings.HasPrefix(id, "contracting-data-bridge-req-"))
	assert.NotEqual(t, id, RequestID())
}
