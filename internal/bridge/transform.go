package bridge

import (
	"github.com/sirupsen/logrus"

	"contracting-bridge/internal/data"
	"contracting-bridge/internal/journal"
)

// BuildContractData turns a tender+contract pair into the payload submitted
// to the contracting system. Returns nil when the contract is not active and
// must be skipped.
//
// Missing value/suppliers are backfilled from the award the contract
// references; a missing award is loggable but never fatal, the contract is
// still created with a partial payload. Items always come from the tender.
func BuildContractData(tender *data.Tender, contract *data.Contract) *data.ContractData {
	if contract.Status != "active" {
		return nil
	}

	ids := map[string]string{
		journal.TenderID:   tender.ID,
		journal.ContractID: contract.ID,
	}

	logrus.Infof("Extending contract %s with extra data", contract.ID)

	payload := &data.ContractData{
		ID:        contract.ID,
		TenderID:  tender.ID,
		Status:    tender.Status,
		AwardID:   contract.AwardID,
		Value:     contract.Value,
		Suppliers: contract.Suppliers,
	}

	logrus.WithFields(journal.Context(journal.CopyContractItems, ids)).Infof(
		"Copying all tender %s items into contract %s", tender.ID, contract.ID)
	payload.Items = tender.Items

	award := findAward(tender, contract)

	if payload.Value == nil {
		if award != nil && award.Value != nil {
			logrus.WithFields(journal.Context(journal.CopyContractValue, ids)).Infof(
				"Contract %s does not have value. Extending with award data.", contract.ID)
			payload.Value = award.Value
		} else {
			logrus.WithFields(journal.Context(journal.AwardNotFound, ids)).Warnf(
				"No value found with related award for contract %s.", contract.ID)
		}
	}

	if payload.Suppliers == nil {
		if award != nil && len(award.Suppliers) > 0 {
			logrus.WithFields(journal.Context(journal.CopyContractSupplier, ids)).Infof(
				"Contract %s does not have suppliers. Extending with award data.", contract.ID)
			payload.Suppliers = award.Suppliers
		} else {
			logrus.WithFields(journal.Context(journal.AwardNotFound, ids)).Warnf(
				"No suppliers found with related award for contract %s.", contract.ID)
		}
	}

	return payload
}

// findAward returns the award the contract references, or nil. Any award
// whose id matches is treated as authoritative; when several match, the first
// wins and the ambiguity is logged.
func findAward(tender *data.Tender, contract *data.Contract) *data.Award {
	if contract.AwardID == "" {
		return nil
	}
	var found *data.Award
	for i := range tender.Awards {
		if tender.Awards[i].ID != contract.AwardID {
			continue
		}
		if found != nil {
			logrus.Warnf("Tender %s has multiple awards with id %s, using the first",
				tender.ID, contract.AwardID)
			break
		}
		found = &tender.Awards[i]
	}
	return found
}
