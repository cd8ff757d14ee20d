// Package reconcile implements the client-side reconcilers that run at
// the start of a sync session: the slot reconciler (last-writer-wins
// per-slot merge) and the optional history reconciler (hash-set diff).
// Both are plain decision logic over apiclient and clientstore — there is
// no teacher precedent for this exact shape, so the control flow is
// grounded on original_source's src-tauri/src/sync/reconciler.rs rather
// than any Go example.
package reconcile

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/splenwilz/clipslot/internal/apiclient"
	"github.com/splenwilz/clipslot/internal/clientstore"
	"github.com/splenwilz/clipslot/internal/protocol"
)

// SlotReconciler performs the one-shot last-writer-wins merge between
// local and remote slots.
type SlotReconciler struct {
	api   *apiclient.Client
	store *clientstore.Store
	log   zerolog.Logger
}

func NewSlotReconciler(api *apiclient.Client, store *clientstore.Store, log zerolog.Logger) *SlotReconciler {
	return &SlotReconciler{api: api, store: store, log: log.With().Str("component", "slot_reconciler").Logger()}
}

// Run fetches every remote slot, compares it against the local raw slot
// for the same number, and pushes or pulls per the last-writer-wins
// decision table. It returns the count of slots that required a transfer.
func (r *SlotReconciler) Run(token string) (int, error) {
	remoteSlots, err := r.api.GetSlots(token)
	if err != nil {
		return 0, err
	}
	remoteByNumber := make(map[int]protocol.SlotResponse, len(remoteSlots))
	for _, rs := range remoteSlots {
		remoteByNumber[rs.SlotNumber] = rs
	}

	localSlots, err := r.store.GetRawSlots()
	if err != nil {
		return 0, err
	}

	transferred := 0
	for _, local := range localSlots {
		hasLocal := local.EncryptedBlob != ""
		remote, hasRemote := remoteByNumber[local.SlotNumber]
		hasRemote = hasRemote && remote.EncryptedBlob != ""

		switch {
		case !hasLocal && !hasRemote:
			// nothing to do

		case hasLocal && !hasRemote:
			if err := r.api.UpdateSlot(token, local.SlotNumber, local.EncryptedBlob); err != nil {
				return transferred, err
			}
			transferred++

		case !hasLocal && hasRemote:
			if err := r.pull(local.SlotNumber, remote); err != nil {
				return transferred, err
			}
			transferred++

		case hasLocal && hasRemote:
			if remote.UpdatedAt > local.UpdatedAt {
				if err := r.pull(local.SlotNumber, remote); err != nil {
					return transferred, err
				}
				transferred++
			} else if local.UpdatedAt > remote.UpdatedAt {
				if err := r.api.UpdateSlot(token, local.SlotNumber, local.EncryptedBlob); err != nil {
					return transferred, err
				}
				transferred++
			}
			// equal timestamps: nothing to do
		}
	}

	r.log.Info().Int("transferred", transferred).Msg("slot reconciliation complete")
	return transferred, nil
}

func (r *SlotReconciler) pull(slotNumber int, remote protocol.SlotResponse) error {
	var updatedBy uuid.UUID
	if remote.UpdatedBy != nil {
		updatedBy = *remote.UpdatedBy
	}
	return r.store.SaveEncryptedToSlot(slotNumber, remote.EncryptedBlob, remote.UpdatedAt, updatedBy)
}
