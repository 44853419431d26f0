package persistence

import (
	"time"

	"SynthLedger/internal/ledger"

	"github.com/google/uuid"
)

// Record is the persisted audit trail of one committed accounting
// operation: the operation identity plus its balanced journal batch.
// The engine emits a Record only after the operation has fully succeeded,
// so the log never contains partial effects.
type Record struct {
	OpID         uuid.UUID
	OpType       string
	Account      uuid.UUID
	Counterparty uuid.UUID // zero unless the operation involves a second party
	Timestamp    time.Time
	Journals     []ledger.Journal
}
