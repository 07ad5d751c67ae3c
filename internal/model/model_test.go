package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectiveValidate(t *testing.T) {
	valid := func() *Objective {
		return &Objective{
			ID:        "obj-1",
			ProjectID: "prj-1",
			Title:     "Clash",
			Status:    StatusOpen,
		}
	}

	tests := []struct {
		name    string
		mutate  func(o *Objective)
		wantErr string
	}{
		{name: "valid", mutate: func(o *Objective) {}},
		{name: "missing id", mutate: func(o *Objective) { o.ID = "" }, wantErr: "id is required"},
		{name: "missing project", mutate: func(o *Objective) { o.ProjectID = "" }, wantErr: "project_id is required"},
		{name: "missing title", mutate: func(o *Objective) { o.Title = "" }, wantErr: "title is required"},
		{name: "long title", mutate: func(o *Objective) { o.Title = strings.Repeat("x", 501) }, wantErr: "500 characters"},
		{name: "bad status", mutate: func(o *Objective) { o.Status = 42 }, wantErr: "invalid status"},
		{name: "self parent", mutate: func(o *Objective) { o.ParentObjectiveID = o.ID }, wantErr: "own parent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := valid()
			tt.mutate(obj)
			err := obj.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProjectValidate(t *testing.T) {
	p := &Project{ID: "p1", Title: "Tower"}
	assert.NoError(t, p.Validate())

	p.SynchronizationMateID = "p1"
	assert.ErrorContains(t, p.Validate(), "own mate")

	p = &Project{ID: "p1"}
	assert.ErrorContains(t, p.Validate(), "title is required")
}

func TestItemAndLocationValidate(t *testing.T) {
	assert.ErrorContains(t, (&Item{ID: "i1"}).Validate(), "relative_path")
	assert.ErrorContains(t, (&Item{ID: "i1", RelativePath: "a.ifc", ItemType: 9}).Validate(), "invalid item type")
	assert.NoError(t, (&Item{ID: "i1", RelativePath: "a.ifc", ItemType: ItemBim}).Validate())

	assert.ErrorContains(t, (&Location{ID: "l1", ObjectiveID: "o1"}).Validate(), "item_id")
	assert.ErrorContains(t, (&BimElement{ID: "b1"}).Validate(), "global_id")
}

func TestObjectiveExternalRoundTrip(t *testing.T) {
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	obj := &Objective{
		ID:            "o1",
		ExternalID:    "ext-1",
		ProjectID:     "p1",
		ObjectiveType: "clash",
		Title:         "Duct",
		Description:   "Duct hits beam",
		Status:        StatusInProgress,
		DueDate:       due,
	}

	back := ObjectiveFromExternal(obj.ToExternal())
	assert.Equal(t, "ext-1", back.ExternalID)
	assert.Equal(t, "Duct hits beam", back.Description)
	assert.Equal(t, StatusInProgress, back.Status)
	assert.True(t, SameInstant(due, back.DueDate))
	assert.Empty(t, back.ID)
	assert.Empty(t, back.ProjectID)
}

func TestSameInstant(t *testing.T) {
	now := time.Now()
	assert.True(t, SameInstant(now, now.In(time.FixedZone("x", 3600))))
	assert.True(t, SameInstant(time.Time{}, time.Time{}))
	assert.False(t, SameInstant(now, time.Time{}))
	assert.True(t, Later(now.Add(time.Second), now))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "in_progress", StatusInProgress.String())
	assert.Equal(t, "status(42)", ObjectiveStatus(42).String())
	assert.Equal(t, "bim", ItemBim.String())
}
