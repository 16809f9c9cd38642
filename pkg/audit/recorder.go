package audit

import (
	"context"
	"time"

	"github.com/entrhq/caseflow/pkg/logging"
)

// Store persists records. Implementations must be append-only.
type Store interface {
	// Append persists the record and returns its assigned id.
	Append(ctx context.Context, record *Record) (string, error)
}

// Recorder is the write-side used by the automation core. It is
// deliberately best-effort: a failed audit write is logged and swallowed
// so it can never mask the outcome of the action being audited. A crash
// between the portal action and the append can therefore lose a record;
// that gap is accepted, not remediated.
type Recorder struct {
	store Store
	log   *logging.Logger
}

// NewRecorder creates a recorder over the given store. The logger may
// be nil, in which case store failures are dropped silently.
func NewRecorder(store Store, log *logging.Logger) *Recorder {
	return &Recorder{store: store, log: log}
}

// Record appends the record, stamping CreatedAt if unset. The returned
// id is empty when the write failed; no error is ever returned to the
// caller of the audited action.
func (r *Recorder) Record(ctx context.Context, record *Record) string {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	id, err := r.store.Append(ctx, record)
	if err != nil {
		if r.log != nil {
			r.log.Errorf("audit append failed for case %s: %v", record.CaseID, err)
		}
		return ""
	}
	return id
}
