// Package migration copies device state from the device-keyed legacy table
// into the group-keyed table. It runs offline, never at request time.
package migration

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/farm-telemetry/internal/domain"
	"github.com/farm-telemetry/internal/infrastructure/dynamo"
)

type legacyStore interface {
	ScanPages(ctx context.Context, fn func([]dynamo.LegacyDeviceState) error, onBadItem func(id string, err error)) error
	MarkMigrated(ctx context.Context, id, groupID string, at time.Time) error
}

type stateStore interface {
	Upsert(ctx context.Context, s *domain.DeviceState) error
}

type groupResolver interface {
	GroupOf(ctx context.Context, deviceID string) (string, error)
}

// Options controls one migration run. Limit 0 means no limit.
type Options struct {
	DryRun bool
	Limit  int
}

// Report counts items per outcome.
type Report struct {
	Migrated int
	Skipped  int
}

type Service interface {
	Run(ctx context.Context, opts Options) (Report, error)
}

type service struct {
	legacy   legacyStore
	repo     stateStore
	registry groupResolver
	log      *slog.Logger
	now      func() time.Time
}

var errLimitReached = errors.New("limit reached")

// NewService wires the migration. registry may be nil, in which case items
// without their own group are skipped.
func NewService(legacy legacyStore, repo stateStore, registry groupResolver, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{legacy: legacy, repo: repo, registry: registry, log: log, now: time.Now}
}

// Run stops at the first store or registry fault. Items already copied are
// marked, so a rerun resumes where this one stopped.
func (s *service) Run(ctx context.Context, opts Options) (Report, error) {
	var r Report
	onBad := func(id string, err error) {
		s.log.Warn("legacy item undecodable, skipped", "device_id", id, "error", err)
		r.Skipped++
	}
	err := s.legacy.ScanPages(ctx, func(items []dynamo.LegacyDeviceState) error {
		for i := range items {
			if opts.Limit > 0 && r.Migrated >= opts.Limit {
				return errLimitReached
			}
			migrated, err := s.migrate(ctx, &items[i], opts.DryRun)
			if err != nil {
				return err
			}
			if migrated {
				r.Migrated++
			} else {
				r.Skipped++
			}
		}
		return nil
	}, onBad)
	if err != nil && !errors.Is(err, errLimitReached) {
		return r, err
	}
	return r, nil
}

func (s *service) migrate(ctx context.Context, item *dynamo.LegacyDeviceState, dryRun bool) (bool, error) {
	groupID, err := s.groupOf(ctx, item)
	if errors.Is(err, domain.ErrNotFound) {
		s.log.Warn("no group for legacy item, skipped", "device_id", item.ID)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	state, err := item.ToDeviceState(groupID, s.now().UTC())
	if err != nil {
		s.log.Warn("legacy item malformed, skipped", "device_id", item.ID, "error", err)
		return false, nil
	}
	if dryRun {
		s.log.Info("would migrate", "device_id", item.ID, "group_id", groupID)
		return true, nil
	}
	if err := s.repo.Upsert(ctx, state); err != nil {
		return false, err
	}
	if err := s.legacy.MarkMigrated(ctx, item.ID, groupID, s.now()); err != nil {
		return false, err
	}
	s.log.Info("migrated", "device_id", item.ID, "group_id", groupID)
	return true, nil
}

func (s *service) groupOf(ctx context.Context, item *dynamo.LegacyDeviceState) (string, error) {
	if item.FarmID != "" {
		return item.FarmID, nil
	}
	if s.registry == nil {
		return "", domain.ErrNotFound
	}
	return s.registry.GroupOf(ctx, item.ID)
}
