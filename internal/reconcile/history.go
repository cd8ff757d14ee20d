package reconcile

import (
	"github.com/rs/zerolog"

	"github.com/splenwilz/clipslot/internal/apiclient"
	"github.com/splenwilz/clipslot/internal/clientstore"
)

const historyPageSize = 200

// HistoryReconciler performs the optional hash-set diff described in spec
// §4.7, idempotent under re-run because both sides enforce (user,
// content_hash) uniqueness.
type HistoryReconciler struct {
	api   *apiclient.Client
	store *clientstore.Store
	log   zerolog.Logger
}

func NewHistoryReconciler(api *apiclient.Client, store *clientstore.Store, log zerolog.Logger) *HistoryReconciler {
	return &HistoryReconciler{api: api, store: store, log: log.With().Str("component", "history_reconciler").Logger()}
}

// Run pulls the first 200 remote items, inserts any whose content hash has
// no local match, then pushes the first 200 local non-promoted items whose
// content hash was not present in the remote set.
func (h *HistoryReconciler) Run(token string) error {
	remoteItems, err := h.api.GetHistory(token, historyPageSize, 0)
	if err != nil {
		return err
	}
	remoteHashes := make(map[string]struct{}, len(remoteItems))

	for _, remote := range remoteItems {
		remoteHashes[remote.ContentHash] = struct{}{}

		inserted, err := h.store.InsertItem(remote.ID, remote.EncryptedBlob, remote.ContentHash, remote.DeviceID, remote.CreatedAt.UnixMilli())
		if err != nil {
			return err
		}
		if inserted {
			h.log.Debug().Str("content_hash", remote.ContentHash).Msg("pulled remote history item")
		}
	}

	localItems, err := h.store.GetHistory(historyPageSize, 0)
	if err != nil {
		return err
	}

	pushed := 0
	for _, local := range localItems {
		if _, ok := remoteHashes[local.ContentHash]; ok {
			continue
		}
		if err := h.api.PushHistory(token, local.ID, local.Content, local.ContentHash); err != nil {
			return err
		}
		pushed++
	}

	h.log.Info().Int("pulled", len(remoteItems)).Int("pushed", pushed).Msg("history reconciliation complete")
	return nil
}
