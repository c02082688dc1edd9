package repository

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"day-organiser/internal/model"
)

func newTestDataFile(fs afero.Fs, path string) *DataFile {
	f := NewDataFile(fs, path)
	f.now = func() time.Time { return time.Date(2026, 2, 3, 9, 30, 0, 0, time.UTC) }
	return f
}

func TestDataFile_MissingFileIsEmpty(t *testing.T) {
	f := newTestDataFile(afero.NewMemMapFs(), "")

	data, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, data.Days)
	assert.Empty(t, data.Groups)
	assert.Equal(t, "organiser-data.json", f.Path())
}

func TestDataFile_LoadReshapesGroupTasks(t *testing.T) {
	fs := afero.NewMemMapFs()
	raw := `{
  "groups": [
    {"id": "home", "name": "Home", "tasks": [
      {"id": "t1", "name": "Vacuum", "date": "2026-02-03T10:00:00.000Z", "status_id": 1},
      {"id": "t2", "name": "Plants", "eventDate": "2026-02-04", "status_id": 1},
      {"id": "t3", "name": "Someday", "status_id": 1}
    ]},
    {"id": 42, "name": "Legacy", "parent_id": "home", "tasks": [
      {"id": "t4", "name": "Old", "date": "2026-02-01", "groupId": "home", "status_id": 0}
    ]}
  ],
  "days": {
    "2026-02-03": {"date": "2026-02-03", "notes": "busy day", "tasks": [
      {"id": "t1", "name": "Vacuum", "date": "2026-02-03", "groupId": "home", "status_id": 1},
      {"id": "t5", "name": "Loose", "date": "2026-02-03", "status_id": 1}
    ]},
    "2026-01-01": {"date": "2026-01-01", "tasks": []}
  }
}`
	require.NoError(t, afero.WriteFile(fs, "data.json", []byte(raw), 0o644))

	data, err := newTestDataFile(fs, "data.json").Load(context.Background())
	require.NoError(t, err)

	require.Len(t, data.Groups, 2)
	assert.Nil(t, data.Groups[0].ParentID)
	assert.Equal(t, "42", data.Groups[1].ID)
	assert.Equal(t, "home", data.Groups[1].Parent())

	day := data.Days["2026-02-03"]
	require.NotNil(t, day)
	assert.Equal(t, "busy day", day.Notes)
	ids := []string{}
	for _, task := range day.Tasks {
		ids = append(ids, task.ID)
	}
	// t1 is read from days first and its group copy is dropped; t3 has no date
	// and lands on today.
	assert.Equal(t, []string{"t1", "t5", "t3"}, ids)
	assert.Equal(t, "2026-02-03", day.Tasks[0].Date)
	assert.Equal(t, "home", day.Tasks[2].GroupID)
	assert.Equal(t, "2026-02-03", day.Tasks[2].Date)

	require.Contains(t, data.Days, "2026-02-04")
	assert.Equal(t, "home", data.Days["2026-02-04"].Tasks[0].GroupID)
	require.Contains(t, data.Days, "2026-02-01")
	assert.Equal(t, "home", data.Days["2026-02-01"].Tasks[0].GroupID, "an explicit groupId wins over the embedding group")
	assert.NotContains(t, data.Days, "2026-01-01")
}

func TestDataFile_LoadMissingStatusStaysActive(t *testing.T) {
	fs := afero.NewMemMapFs()
	raw := `{
  "groups": [
    {"id": "home", "name": "Home", "tasks": [
      {"id": "t1", "name": "No status", "date": "2026-02-03"},
      {"id": "t2", "name": "Null status", "date": "2026-02-03", "status_id": null},
      {"id": "t3", "name": "Done", "date": "2026-02-03", "status_id": 0}
    ]}
  ],
  "days": {
    "2026-02-04": {"date": "2026-02-04", "tasks": [
      {"id": "t4", "name": "Loose", "date": "2026-02-04"}
    ]}
  }
}`
	require.NoError(t, afero.WriteFile(fs, "data.json", []byte(raw), 0o644))

	data, err := newTestDataFile(fs, "data.json").Load(context.Background())
	require.NoError(t, err)

	status := map[string]int{}
	for _, day := range data.Days {
		for _, task := range day.Tasks {
			status[task.ID] = task.StatusID
		}
	}
	assert.Equal(t, map[string]int{
		"t1": model.StatusActive,
		"t2": model.StatusActive,
		"t3": model.StatusDone,
		"t4": model.StatusActive,
	}, status)
}

func TestDataFile_SaveRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := newTestDataFile(fs, "nested/dir/data.json")
	ctx := context.Background()

	parent := "home"
	data := model.NewOrganiserData()
	data.Groups = []*model.Group{
		{ID: "home", Name: "Home"},
		{ID: "kids", Name: "Kids", ParentID: &parent, HideTasksFromParent: true},
	}
	day := data.Bucket("2026-02-03")
	day.Notes = "remember keys"
	day.Tasks = []*model.Task{
		{ID: "a", Name: "Grouped", Date: "2026-02-03", GroupID: "kids", StatusID: model.StatusActive},
		{ID: "b", Name: "Loose", Date: "2026-02-03", StatusID: model.StatusDone},
	}
	data.Bucket("2026-02-09")

	require.NoError(t, f.Save(ctx, data))
	assert.Equal(t, "2026-02-03T09:30:00.000Z", data.LastModified)

	raw, err := afero.ReadFile(fs, "nested/dir/data.json")
	require.NoError(t, err)
	var onDisk fileData
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	assert.Len(t, onDisk.Groups[0].Tasks, 0)
	require.Len(t, onDisk.Groups[1].Tasks, 1)
	assert.Equal(t, "a", onDisk.Groups[1].Tasks[0].ID)
	assert.NotContains(t, onDisk.Days, "2026-02-09")

	loaded, err := f.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Days["2026-02-03"].Tasks, 2)
	assert.Equal(t, "remember keys", loaded.Days["2026-02-03"].Notes)
	assert.Equal(t, model.StatusDone, loaded.Days["2026-02-03"].Tasks[1].StatusID)
	assert.Equal(t, "home", loaded.Groups[1].Parent())
	assert.True(t, loaded.Groups[1].HideTasksFromParent)
}

func TestDataFile_CorruptFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "data.json", []byte("{not json"), 0o644))

	_, err := newTestDataFile(fs, "data.json").Load(context.Background())
	assert.ErrorContains(t, err, "decode data file")
}

func TestDataFile_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newTestDataFile(afero.NewMemMapFs(), "data.json")
	_, err := f.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, f.Save(ctx, model.NewOrganiserData()), context.Canceled)
}
