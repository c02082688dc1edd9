package repository

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"day-organiser/internal/localdate"
	"day-organiser/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// fileData is the on-disk layout: groups embed their tasks, days keep notes
// and every task including those without a group.
type fileData struct {
	Groups       []fileGroup           `json:"groups"`
	Days         map[string]*model.Day `json:"days,omitempty"`
	LastModified string                `json:"lastModified,omitempty"`
}

type fileGroup struct {
	ID                  looseID       `json:"id"`
	Name                string        `json:"name"`
	Color               string        `json:"color,omitempty"`
	Icon                string        `json:"icon,omitempty"`
	ParentID            *looseID      `json:"parentId,omitempty"`
	LegacyParentID      *looseID      `json:"parent_id,omitempty"`
	ShareSubgroups      bool          `json:"shareSubgroups,omitempty"`
	HideTasksFromParent bool          `json:"hideTasksFromParent,omitempty"`
	CreatedAt           string        `json:"createdAt,omitempty"`
	Tasks               []*model.Task `json:"tasks"`
}

// looseID decodes a string, a number or null into a string id.
type looseID string

func (l *looseID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*l = looseID(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.Wrapf(err, "group id %s", string(b))
	}
	*l = looseID(strconv.FormatFloat(n, 'f', -1, 64))
	return nil
}

func (l *looseID) value() string {
	if l == nil {
		return ""
	}
	return string(*l)
}

// DataFile is the JSON persistence for organiser data.
type DataFile struct {
	fs   afero.Fs
	path string
	now  func() time.Time
}

func NewDataFile(fs afero.Fs, path string) *DataFile {
	if path == "" {
		path = "organiser-data.json"
	}
	return &DataFile{fs: fs, path: path, now: time.Now}
}

// Path returns the file location.
func (f *DataFile) Path() string {
	return f.path
}

// Load reads the file and reshapes group-embedded tasks into day buckets.
// A missing file yields empty data.
func (f *DataFile) Load(ctx context.Context) (*model.OrganiserData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.NewOrganiserData(), nil
		}
		return nil, errors.Wrap(err, "read data file")
	}
	var raw fileData
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, errors.Wrap(err, "decode data file")
	}
	return fromFile(raw, localdate.Today(f.now())), nil
}

// Save writes data, redistributing tasks into their groups.
func (f *DataFile) Save(ctx context.Context, data *model.OrganiserData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data.LastModified = f.now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
	b, err := json.MarshalIndent(toFile(data), "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode data file")
	}
	if dir := filepath.Dir(f.path); dir != "." && dir != "" {
		if err := f.fs.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create data dir %q", dir)
		}
	}
	if err := afero.WriteFile(f.fs, f.path, b, 0o644); err != nil {
		return errors.Wrap(err, "write data file")
	}
	return nil
}

func fromFile(raw fileData, today string) *model.OrganiserData {
	data := model.NewOrganiserData()
	data.LastModified = raw.LastModified
	seen := map[string]bool{}

	place := func(t *model.Task) {
		if t == nil || (t.ID != "" && seen[t.ID]) {
			return
		}
		seen[t.ID] = true
		key := localdate.DateOnly(t.Date)
		if key == "" {
			key = localdate.DateOnly(t.EventDate)
		}
		if key == "" {
			key = today
		}
		if t.Date == "" {
			t.Date = key
		}
		day := data.Bucket(key)
		day.Tasks = append(day.Tasks, t)
	}

	for _, key := range dayKeys(raw.Days) {
		day := raw.Days[key]
		if day == nil {
			continue
		}
		bucket := data.Bucket(key)
		bucket.Notes = day.Notes
		for _, t := range day.Tasks {
			place(t)
		}
	}

	for _, fg := range raw.Groups {
		g := &model.Group{
			ID:                  string(fg.ID),
			Name:                fg.Name,
			Color:               fg.Color,
			Icon:                fg.Icon,
			ShareSubgroups:      fg.ShareSubgroups,
			HideTasksFromParent: fg.HideTasksFromParent,
			CreatedAt:           fg.CreatedAt,
		}
		parent := fg.ParentID.value()
		if parent == "" {
			parent = fg.LegacyParentID.value()
		}
		if parent != "" {
			g.ParentID = &parent
		}
		data.Groups = append(data.Groups, g)

		for _, t := range fg.Tasks {
			if t != nil && t.GroupID == "" {
				t.GroupID = string(fg.ID)
			}
			place(t)
		}
	}

	// Drop buckets left with neither tasks nor notes.
	for key, day := range data.Days {
		if len(day.Tasks) == 0 && day.Notes == "" {
			delete(data.Days, key)
		}
	}
	return data
}

func toFile(data *model.OrganiserData) fileData {
	out := fileData{
		Days:         map[string]*model.Day{},
		LastModified: data.LastModified,
	}
	index := make(map[string]int, len(data.Groups))
	for i, g := range data.Groups {
		fg := fileGroup{
			ID:                  looseID(g.ID),
			Name:                g.Name,
			Color:               g.Color,
			Icon:                g.Icon,
			ShareSubgroups:      g.ShareSubgroups,
			HideTasksFromParent: g.HideTasksFromParent,
			CreatedAt:           g.CreatedAt,
			Tasks:               []*model.Task{},
		}
		if g.ParentID != nil {
			p := looseID(*g.ParentID)
			fg.ParentID = &p
		}
		out.Groups = append(out.Groups, fg)
		index[g.ID] = i
	}
	for _, key := range dayKeys(data.Days) {
		day := data.Days[key]
		if len(day.Tasks) == 0 && day.Notes == "" {
			continue
		}
		tasks := day.Tasks
		if tasks == nil {
			tasks = []*model.Task{}
		}
		out.Days[key] = &model.Day{Date: key, Tasks: tasks, Notes: day.Notes}
		for _, t := range day.Tasks {
			if i, ok := index[t.GroupID]; ok && t.GroupID != "" {
				out.Groups[i].Tasks = append(out.Groups[i].Tasks, t)
			}
		}
	}
	if out.Groups == nil {
		out.Groups = []fileGroup{}
	}
	return out
}

func dayKeys(days map[string]*model.Day) []string {
	keys := make([]string, 0, len(days))
	for key := range days {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
