// Package journal defines the structured-logging contract of the bridge:
// stable message ids, JOURNAL_-prefixed context fields and per-request ids.
// Operators and alerting key off these exact values, so they are treated as
// part of the external interface rather than free-form log text.
package journal

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Message ids attached to every noteworthy event as the MESSAGE_ID field.
const (
	Info                 = "c_bridge_info"
	Start                = "c_bridge_start"
	Restart              = "c_bridge_restart"
	Reconnect            = "c_bridge_reconnect"
	Exception            = "c_bridge_exception"
	ContractToSync       = "c_bridge_contract_to_sync"
	CopyContractItems    = "c_bridge_copy_contract_items"
	CopyContractValue    = "c_bridge_copy_contract_value"
	CopyContractSupplier = "c_bridge_copy_contract_suppliers"
	AwardNotFound        = "c_bridge_award_not_found"
	MissingCredentials   = "c_bridge_missing_credentials"
	WorkerDied           = "c_bridge_worker_died"
	SyncSleep            = "c_bridge_sync_sleep"
)

// Context-field names understood by the journal.
const (
	TenderID   = "TENDER_ID"
	ContractID = "CONTRACT_ID"
)

// Context builds logrus fields for a journaled event. Every params key is
// prefixed with JOURNAL_ so downstream log shippers can route on it.
func Context(messageID string, params map[string]string) logrus.Fields {
	fields := logrus.Fields{"MESSAGE_ID": messageID}
	for k, v := range params {
		fields["JOURNAL_"+k] = v
	}
	return fields
}

// RequestID generates the X-Request-ID value for one outgoing API call.
func RequestID() string {
	return "contracting-data-bridge-req-" + uuid.New().String()
}
