package service

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"day-organiser/internal/model"
)

type memoryStore struct {
	data    *model.OrganiserData
	saves   int
	saveErr error
}

func (m *memoryStore) Load(context.Context) (*model.OrganiserData, error) {
	if m.data == nil {
		m.data = model.NewOrganiserData()
	}
	return m.data, nil
}

func (m *memoryStore) Save(_ context.Context, data *model.OrganiserData) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.data = data
	return nil
}

type memorySettings map[string]string

func (m memorySettings) LoadSettings(context.Context) (map[string]string, error) {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out, nil
}

func (m memorySettings) SaveSettings(_ context.Context, values map[string]string) error {
	for k, v := range values {
		m[k] = v
	}
	return nil
}

func openTestSession(t *testing.T, store *memoryStore, settings memorySettings) *Session {
	t.Helper()
	s, err := OpenSession(context.Background(), store, settings)
	require.NoError(t, err)
	s.now = func() time.Time { return fixedNow }
	s.tx.Tasks.now = s.now
	s.tx.Groups.now = s.now
	return s
}

func TestOpenSession_RestoresActiveGroup(t *testing.T) {
	store := &memoryStore{data: &model.OrganiserData{Days: map[string]*model.Day{}, Groups: []*model.Group{group("home", "", false, false)}}}

	s := openTestSession(t, store, memorySettings{SettingActiveGroup: "home"})
	assert.Equal(t, "home", s.ActiveGroup())

	s = openTestSession(t, store, memorySettings{SettingActiveGroup: "gone"})
	assert.Equal(t, "", s.ActiveGroup())
}

func TestSession_MutateSavesOnlyOnSuccess(t *testing.T) {
	store := &memoryStore{}
	s := openTestSession(t, store, memorySettings{})
	ctx := context.Background()

	err := s.Mutate(ctx, func(tx *Tx) error {
		_, err := tx.Tasks.AddTask("2026-02-03", TaskInput{Name: "Call mum"})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)

	err = s.Mutate(ctx, func(tx *Tx) error {
		_, err := tx.Tasks.AddTask("03.02.2026", TaskInput{Name: "bad"})
		return err
	})
	assert.True(t, errors.Is(err, ErrInvalidDate))
	assert.Equal(t, 1, store.saves)

	store.saveErr = errors.New("disk full")
	err = s.Mutate(ctx, func(tx *Tx) error { return nil })
	assert.ErrorContains(t, err, "disk full")
}

func TestSession_ActiveGroupResetWhenDeleted(t *testing.T) {
	store := &memoryStore{}
	settings := memorySettings{}
	s := openTestSession(t, store, settings)
	ctx := context.Background()

	var id string
	require.NoError(t, s.Mutate(ctx, func(tx *Tx) error {
		id = tx.Groups.AddGroup(GroupInput{Name: "Work"}).ID
		return nil
	}))

	err := s.SetActiveGroup(ctx, "missing")
	assert.True(t, errors.Is(err, ErrGroupNotFound))

	require.NoError(t, s.SetActiveGroup(ctx, id))
	assert.Equal(t, id, settings[SettingActiveGroup])

	require.NoError(t, s.Mutate(ctx, func(tx *Tx) error {
		_, err := tx.Groups.DeleteGroup(id)
		return err
	}))
	assert.Equal(t, "", s.ActiveGroup())
	assert.Equal(t, "", settings[SettingActiveGroup])
}

func TestSession_GroupLifecycleScenario(t *testing.T) {
	store := &memoryStore{}
	s := openTestSession(t, store, memorySettings{})
	ctx := context.Background()

	var groupID, taskID string
	require.NoError(t, s.Mutate(ctx, func(tx *Tx) error {
		groupID = tx.Groups.AddGroup(GroupInput{Name: "Test Group"}).ID
		task, err := tx.Tasks.AddTask("2026-02-03", TaskInput{Name: "Write report", GroupID: groupID})
		if err != nil {
			return err
		}
		taskID = task.ID
		return nil
	}))
	assert.Regexp(t, `^tg[a-z0-9]{6}030226$`, groupID)

	require.NoError(t, s.Mutate(ctx, func(tx *Tx) error {
		_, err := tx.Tasks.UpdateTask("2026-02-03", taskID, TaskPatch{Date: strPtr("2026-02-05")})
		return err
	}))

	require.NoError(t, s.Mutate(ctx, func(tx *Tx) error {
		res, err := tx.Groups.DeleteGroup(groupID)
		if err != nil {
			return err
		}
		assert.True(t, res.GroupHasTasks)
		return nil
	}))

	s.View(func(tx *Tx) {
		task, bucket, ok := tx.Tasks.FindTask("", taskID)
		require.True(t, ok)
		assert.Equal(t, "2026-02-05", bucket)
		assert.Equal(t, "", task.GroupID)
		assert.Empty(t, tx.Data.Groups)
	})
	assert.Equal(t, 3, store.saves)
}
