package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftd/internal/automation"
	logx "shiftd/pkg/logx"
)

func rec(id, owner, name string) automation.Record {
	return automation.Record{
		ID:      id,
		OwnerID: owner,
		Spec: automation.Spec{
			Name:   name,
			Domain: automation.DomainResearch,
		},
		Status:    automation.StatusActive,
		CreatedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestMemoryCreateEnforcesNameUniquenessPerOwner(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Create(ctx, rec("a1", "owner-1", "Daily_Brief_Bot"), 20))
	err := m.Create(ctx, rec("a2", "owner-1", "Daily_Brief_Bot"), 20)
	assert.ErrorIs(t, err, ErrNameTaken)

	// Same name under another owner is fine.
	assert.NoError(t, m.Create(ctx, rec("a3", "owner-2", "Daily_Brief_Bot"), 20))
}

func TestMemoryCreateEnforcesQuota(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("a%d", i)
		require.NoError(t, m.Create(ctx, rec(id, "owner-1", "Bot_Number_"+id), 3))
	}
	err := m.Create(ctx, rec("a9", "owner-1", "Bot_Number_a9"), 3)
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	// Deleting one frees a slot.
	require.NoError(t, m.Delete(ctx, "a0"))
	assert.NoError(t, m.Create(ctx, rec("a9", "owner-1", "Bot_Number_a9"), 3))
}

func TestMemoryGetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.Update(ctx, rec("missing", "o", "N_o_P")), ErrNotFound)
	assert.ErrorIs(t, m.Delete(ctx, "missing"), ErrNotFound)

	r := rec("a1", "owner-1", "Daily_Brief_Bot")
	require.NoError(t, m.Create(ctx, r, 0))

	got, err := m.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, r, got)

	r.Status = automation.StatusPaused
	require.NoError(t, m.Update(ctx, r))
	got, err = m.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, automation.StatusPaused, got.Status)
}

func TestMemoryListScheduled(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	withCron := rec("a1", "owner-1", "Cron_Bot_One")
	withCron.Spec.Schedule = &automation.ScheduleSpec{Cron: "0 * * * *", Task: "hourly sweep"}
	require.NoError(t, m.Create(ctx, withCron, 0))

	paused := rec("a2", "owner-1", "Cron_Bot_Two")
	paused.Spec.Schedule = &automation.ScheduleSpec{Cron: "0 * * * *", Task: "hourly sweep"}
	paused.Status = automation.StatusPaused
	require.NoError(t, m.Create(ctx, paused, 0))

	require.NoError(t, m.Create(ctx, rec("a3", "owner-1", "Manual_Bot"), 0))

	got, err := m.ListScheduled(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a1", got[0].ID)
}

func TestMemoryListByOwnerIsStable(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"c3", "a1", "b2"} {
		r := rec(id, "owner-1", "Bot_Name_"+id)
		r.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, m.Create(ctx, r, 0))
	}
	require.NoError(t, m.Create(ctx, rec("z9", "owner-2", "Other_Owner_Bot"), 0))

	got, err := m.ListByOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "c3", got[0].ID)
	assert.Equal(t, "a1", got[1].ID)
	assert.Equal(t, "b2", got[2].ID)
}

func TestMemoryHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for i := 0; i < 5; i++ {
		run := automation.RunRecord{
			ExecutionID:  fmt.Sprintf("exec-%d", i),
			AutomationID: "a1",
			Status:       automation.RunSuccess,
		}
		require.NoError(t, m.AppendRun(ctx, run))
	}

	got, err := m.History(ctx, "a1", 0)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, "exec-4", got[0].ExecutionID)
	assert.Equal(t, "exec-0", got[4].ExecutionID)

	got, err = m.History(ctx, "a1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "exec-4", got[0].ExecutionID)
	assert.Equal(t, "exec-3", got[1].ExecutionID)

	got, err = m.History(ctx, "unknown", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpenDefaultsToMemory(t *testing.T) {
	s, err := Open(Config{}, logx.Nop())
	require.NoError(t, err)
	_, ok := s.(*Memory)
	assert.True(t, ok)

	_, err = Open(Config{Driver: "bolt"}, logx.Nop())
	assert.Error(t, err)
}
