package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const defaultOutboxRetentionDays = 30

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPurger interface {
	PurgeBefore(tx *gorm.DB, cutoff time.Time, terminalAttempts int) (int64, error)
}

type OutboxRetentionJobParams struct {
	DB               txRunner
	Outbox           outboxPurger
	RetentionDays    int
	TerminalAttempts int
}

// outboxRetentionJob deletes delivered and parked outbox rows past retention.
type outboxRetentionJob struct {
	db               txRunner
	outbox           outboxPurger
	retention        time.Duration
	terminalAttempts int
	now              func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	if params.TerminalAttempts <= 0 {
		return nil, fmt.Errorf("terminal attempts must be positive")
	}
	days := params.RetentionDays
	if days <= 0 {
		days = defaultOutboxRetentionDays
	}
	return &outboxRetentionJob{
		db:               params.DB,
		outbox:           params.Outbox,
		retention:        time.Duration(days) * 24 * time.Hour,
		terminalAttempts: params.TerminalAttempts,
		now:              time.Now,
	}, nil
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.outbox.PurgeBefore(tx, cutoff, j.terminalAttempts)
		deleted = n
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("purge outbox before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return deleted, nil
}
