package bridge

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"contracting-bridge/internal/contracting"
	"contracting-bridge/internal/journal"
)

// SyncSingleTender mirrors every transferable contract of one tender in a
// single pass, bypassing the queues. Used by the synctender command to
// backfill or repair an individual tender.
func (b *Bridge) SyncSingleTender(ctx context.Context, tenderID string) error {
	var transferred []string

	logrus.Infof("Getting tender %s", tenderID)
	resp, err := b.tendersSyncAPI().GetTender(ctx, tenderID)
	if err != nil {
		logrus.WithFields(journal.Context(journal.Exception, map[string]string{
			journal.TenderID: tenderID,
		})).WithError(err).Error("Failed to get tender")
		return err
	}
	tender := resp.Data
	logrus.Infof("Got tender %s in status %s", tender.ID, tender.Status)

	logrus.Infof("Getting tender %s credentials", tenderID)
	creds, err := b.getTenderCredentials(ctx, tenderID)
	if err != nil {
		logrus.WithFields(journal.Context(journal.Exception, map[string]string{
			journal.TenderID: tenderID,
		})).WithError(err).Error("Failed to get tender credentials")
		return err
	}
	logrus.Infof("Got tender %s credentials", tenderID)

	for i := range tender.Contracts {
		contract := tender.Contracts[i]
		ids := map[string]string{
			journal.TenderID:   tender.ID,
			journal.ContractID: contract.ID,
		}

		if contract.Status != "active" {
			logrus.Infof("Skip contract %s in status %s", contract.ID, contract.Status)
			continue
		}

		logrus.Infof("Checking if contract %s already exists", contract.ID)
		_, err := b.contractingAPI().GetContract(ctx, contract.ID)
		switch {
		case err == nil:
			logrus.Infof("Contract exists %s", contract.ID)
			continue
		case errors.Is(err, contracting.ErrArchived):
			logrus.WithFields(journal.Context(journal.ContractToSync, ids)).Infof(
				"Sync contract %s of tender %s has been archived", contract.ID, tender.ID)
			continue
		case errors.Is(err, contracting.ErrNotFound):
			logrus.Infof("Contract %s does not exists. Prepare contract for creation.", contract.ID)
		default:
			logrus.WithFields(journal.Context(journal.Exception, ids)).
				WithError(err).Error("Failed to check contract existence")
			return err
		}

		payload := BuildContractData(&tender, &contract)
		payload.Owner = creds.Owner
		payload.TenderToken = creds.TenderToken

		logrus.Infof("Creating contract %s", contract.ID)
		if _, err := b.contractingAPI().CreateContract(ctx, payload); err != nil {
			logrus.WithFields(journal.Context(journal.Exception, ids)).
				WithError(err).Error("Failed to create contract")
			return err
		}
		logrus.Infof("Contract %s created", contract.ID)

		if err := b.cacheDB.Put(ctx, contract.ID, "true"); err != nil {
			logrus.WithFields(journal.Context(journal.Exception, ids)).
				WithError(err).Error("Failed to flag contract in cache")
		}
		transferred = append(transferred, contract.ID)
	}

	if len(transferred) == 0 {
		logrus.Infof("Tender %s does not contain contracts to transfer", tenderID)
		return nil
	}
	logrus.Infof("Successfully transfered contracts: %v", transferred)
	return nil
}
