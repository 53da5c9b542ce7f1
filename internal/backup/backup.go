// Package backup mirrors users, teams and blocks to an external store.
// Every call is best-effort: backup failure must never fail or block the
// primary operation that triggered it.
package backup

import (
	"context"

	"github.com/rs/zerolog"
)

// Collaborator is the external backup target.
type Collaborator interface {
	IsAvailable() bool
	BackupAllUsers(ctx context.Context) error
	BackupAllTeams(ctx context.Context) error
	BackupAllBlocks(ctx context.Context) error
}

// Kind selects which dataset a notification snapshots.
type Kind int

const (
	KindUsers Kind = iota
	KindTeams
	KindBlocks
)

const notifyBuffer = 64

// Notifier decouples backup from the caller's return path: notifications go
// onto a buffered channel consumed by a single worker goroutine. Enqueueing
// never blocks; when the buffer is full the notification is dropped, which
// is acceptable because every backup is a full snapshot and the next
// mutation re-triggers it.
type Notifier struct {
	collab Collaborator
	ch     chan Kind
	log    zerolog.Logger
}

// NewNotifier creates a Notifier for the collaborator. A nil collaborator
// disables backup entirely; Notify* become no-ops.
func NewNotifier(collab Collaborator, log zerolog.Logger) *Notifier {
	return &Notifier{
		collab: collab,
		ch:     make(chan Kind, notifyBuffer),
		log:    log,
	}
}

// Start launches the worker goroutine. The worker stops when ctx is
// cancelled.
func (n *Notifier) Start(ctx context.Context) {
	go n.run(ctx)
}

// NotifyUsers requests a users snapshot.
func (n *Notifier) NotifyUsers() { n.notify(KindUsers) }

// NotifyTeams requests a teams snapshot.
func (n *Notifier) NotifyTeams() { n.notify(KindTeams) }

// NotifyBlocks requests a blocks snapshot.
func (n *Notifier) NotifyBlocks() { n.notify(KindBlocks) }

func (n *Notifier) notify(kind Kind) {
	if n == nil || n.collab == nil {
		return
	}
	select {
	case n.ch <- kind:
	default:
		n.log.Debug().Int("kind", int(kind)).Msg("backup queue full, notification dropped")
	}
}

func (n *Notifier) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case kind, ok := <-n.ch:
			if !ok {
				return
			}
			if !n.collab.IsAvailable() {
				continue
			}
			var err error
			switch kind {
			case KindUsers:
				err = n.collab.BackupAllUsers(ctx)
			case KindTeams:
				err = n.collab.BackupAllTeams(ctx)
			case KindBlocks:
				err = n.collab.BackupAllBlocks(ctx)
			}
			if err != nil {
				// Swallowed: backup is best-effort.
				n.log.Warn().Err(err).Int("kind", int(kind)).Msg("backup failed")
			}
		}
	}
}
