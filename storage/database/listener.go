package database

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/studentdir/core"
	"github.com/trezcool/studentdir/core/student"
)

// ChangesChannel is notified by the database triggers on every write to the student tables.
const ChangesChannel = "student_changes"

const listenerPingInterval = 90 * time.Second

// Listen publishes to feed whenever another connection writes to the student tables, until ctx is done.
// Revisions are also published after a reconnection, since notifications may have been missed.
func Listen(ctx context.Context, conf *core.Config, feed *student.Feed, logger core.Logger) error {
	listener := pq.NewListener(DSN(conf), 100*time.Millisecond, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("student changes listener", err, map[string]interface{}{"event": ev})
		}
	})
	if err := listener.Listen(ChangesChannel); err != nil {
		_ = listener.Close()
		return errors.Wrap(err, "listening to student changes")
	}

	go func() {
		defer func() { _ = listener.Close() }()
		ticker := time.NewTicker(listenerPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-listener.Notify:
				// nil after a reconnection
				feed.Publish()
			case <-ticker.C:
				go func() { _ = listener.Ping() }()
			}
		}
	}()
	return nil
}
