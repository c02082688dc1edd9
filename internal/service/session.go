package service

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"day-organiser/internal/localdate"
	"day-organiser/internal/model"
)

// SettingActiveGroup is the settings key of the last selected group.
const SettingActiveGroup = "active_group_id"

// DataStore persists the whole organiser aggregate.
type DataStore interface {
	Load(ctx context.Context) (*model.OrganiserData, error)
	Save(ctx context.Context, data *model.OrganiserData) error
}

// SettingsStore persists loose key/value settings.
type SettingsStore interface {
	LoadSettings(ctx context.Context) (map[string]string, error)
	SaveSettings(ctx context.Context, values map[string]string) error
}

// Tx exposes the services bound to the session's data for one call.
type Tx struct {
	Data    *model.OrganiserData
	Tasks   *TaskService
	Groups  *GroupService
	Queries *QueryService
}

// Session owns one OrganiserData. It serializes callers and saves after each
// successful mutation; the services it hands out never lock or do I/O.
type Session struct {
	mu          sync.Mutex
	store       DataStore
	settings    SettingsStore
	tx          *Tx
	activeGroup string
	now         func() time.Time
}

// OpenSession loads data and the remembered active group.
func OpenSession(ctx context.Context, store DataStore, settings SettingsStore) (*Session, error) {
	data, err := store.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load organiser data")
	}
	s := &Session{
		store:    store,
		settings: settings,
		tx:       newTx(data),
		now:      time.Now,
	}
	if settings != nil {
		values, err := settings.LoadSettings(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "load settings")
		}
		if id := values[SettingActiveGroup]; id != "" && data.FindGroup(id) != nil {
			s.activeGroup = id
		}
	}
	logrus.Debugf("session opened days=%d groups=%d active=%q", len(data.Days), len(data.Groups), s.activeGroup)
	return s, nil
}

func newTx(data *model.OrganiserData) *Tx {
	return &Tx{
		Data:    data,
		Tasks:   NewTaskService(data),
		Groups:  NewGroupService(data),
		Queries: NewQueryService(data),
	}
}

// View runs fn under the session lock without saving.
func (s *Session) View(fn func(tx *Tx)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.tx)
}

// Mutate runs fn and saves the data when it succeeds.
func (s *Session) Mutate(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.tx); err != nil {
		return err
	}
	if err := s.store.Save(ctx, s.tx.Data); err != nil {
		return errors.Wrap(err, "save organiser data")
	}
	if s.activeGroup != "" && s.tx.Data.FindGroup(s.activeGroup) == nil {
		logrus.Infof("active group %s no longer exists, showing all groups", s.activeGroup)
		return s.setActiveLocked(ctx, "")
	}
	return nil
}

// ActiveGroup returns the selected group id, "" for all groups.
func (s *Session) ActiveGroup() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeGroup
}

// SetActiveGroup selects a group ("" for all) and remembers it.
func (s *Session) SetActiveGroup(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" && s.tx.Data.FindGroup(id) == nil {
		return errors.Wrapf(ErrGroupNotFound, "select group %s", id)
	}
	return s.setActiveLocked(ctx, id)
}

func (s *Session) setActiveLocked(ctx context.Context, id string) error {
	s.activeGroup = id
	if s.settings == nil {
		return nil
	}
	if err := s.settings.SaveSettings(ctx, map[string]string{SettingActiveGroup: id}); err != nil {
		return errors.Wrap(err, "save active group")
	}
	return nil
}

// Today returns the current day key.
func (s *Session) Today() string {
	return localdate.Today(s.now())
}
