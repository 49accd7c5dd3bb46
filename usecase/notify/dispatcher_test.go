package notify_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskdesk/domain"
	"github.com/fastygo/taskdesk/usecase/notify"
	"github.com/fastygo/taskdesk/usecase/notify/notifytest"
)

const (
	adminID = int64(1)
	ownerID = int64(2)
)

func sampleTask(status domain.Status) *domain.Task {
	return &domain.Task{
		ID:          7,
		Title:       "T1",
		Description: "D1",
		Status:      status,
		Deadline:    time.Date(2026, 3, 2, 23, 59, 0, 0, time.UTC),
		OwnerID:     ownerID,
		Department:  "Финансы",
	}
}

func TestDispatcher_TaskAssignedSendsAlertAndCard(t *testing.T) {
	rec := notifytest.NewRecorder()
	d := notify.NewDispatcher(rec, adminID, nil)

	res := d.TaskAssigned(context.Background(), sampleTask(domain.StatusNew))
	require.True(t, res.Delivered)
	require.False(t, res.Failed())

	msgs := rec.To(ownerID)
	require.Len(t, msgs, 2)
	assert.True(t, strings.HasPrefix(msgs[0].Text, "🔔 НОВАЯ ЗАДАЧА #7"), "alert: %q", msgs[0].Text)
	assert.Empty(t, msgs[0].Controls, "alert carries no controls")
	assert.Equal(t, "t:7:inprog", msgs[1].Controls[0][0].Tag, "card offers start first")
}

func TestDispatcher_SwallowsDeliveryErrors(t *testing.T) {
	rec := notifytest.NewRecorder()
	rec.Block(ownerID)
	d := notify.NewDispatcher(rec, adminID, nil)

	res := d.TaskAssigned(context.Background(), sampleTask(domain.StatusNew))
	require.True(t, res.Failed())
	assert.False(t, res.Delivered)
	assert.Equal(t, ownerID, res.Target)
	assert.Empty(t, rec.All(), "card does not follow a failed alert")

	res = d.UserDeactivated(context.Background(), &domain.User{ID: ownerID, FullName: "Иван"})
	assert.True(t, res.Failed())

	got := rec.To(adminID)
	require.Len(t, got, 1, "admin mirror is delivered regardless")
	assert.Contains(t, got[0].Text, "ОТКЛЮЧЕН")
}

func TestDispatcher_StatusChangedRecipients(t *testing.T) {
	cases := []struct {
		name   string
		from   domain.Status
		to     domain.Status
		target int64
		prefix string
	}{
		{"submit notifies admin", domain.StatusInProgress, domain.StatusOnReview, adminID, "🟨 На проверке"},
		{"accept notifies owner", domain.StatusOnReview, domain.StatusDone, ownerID, "✅ Задача #7 принята"},
		{"reject notifies owner", domain.StatusOnReview, domain.StatusInProgress, ownerID, "↩️ Задача #7 возвращена"},
		{"cancel notifies owner", domain.StatusNew, domain.StatusCanceled, ownerID, "🗑 Задача #7 отменена"},
		{"start is silent", domain.StatusNew, domain.StatusInProgress, 0, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := notifytest.NewRecorder()
			d := notify.NewDispatcher(rec, adminID, nil)

			res := d.TaskStatusChanged(context.Background(), sampleTask(tc.to), tc.from)
			if tc.target == 0 {
				assert.Zero(t, res.Target)
				assert.Empty(t, rec.All())
				return
			}
			msgs := rec.To(tc.target)
			require.Len(t, msgs, 1, "sent: %+v", rec.All())
			assert.True(t, strings.HasPrefix(msgs[0].Text, tc.prefix), "got %q", msgs[0].Text)
		})
	}
}

func TestTaskTags(t *testing.T) {
	tag := notify.TaskTag(42, notify.OpChangeDeadline)
	require.Equal(t, "t:42:chgdl", tag)

	id, op, ok := notify.ParseTaskTag(tag)
	require.True(t, ok)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, notify.OpChangeDeadline, op)

	for _, bad := range []string{"t:", "t:x:done", "t:5", "ad:pick:5", "t:-1:done"} {
		_, _, ok := notify.ParseTaskTag(bad)
		assert.False(t, ok, "ParseTaskTag(%q)", bad)
	}

	action, ok := notify.OpAccept.Action()
	assert.True(t, ok)
	assert.Equal(t, domain.ActionAccept, action)
	_, ok = notify.OpComment.Action()
	assert.False(t, ok, "comment is not a lifecycle action")

	id, ok = notify.ParseIDTag("ad:pick:15", notify.PrefixAdminPick)
	assert.True(t, ok)
	assert.Equal(t, int64(15), id)
}

func TestControlsFollowRoleAndStatus(t *testing.T) {
	review := sampleTask(domain.StatusOnReview)
	admin := notify.AdminTaskControls(review)
	require.Len(t, admin, 2)
	assert.Equal(t, "t:7:done", admin[0][0].Tag)
	assert.Equal(t, "t:7:back", admin[0][1].Tag)

	employee := notify.EmployeeTaskControls(review)
	require.Len(t, employee, 1)
	assert.Equal(t, "t:7:comment", employee[0][0].Tag)

	assert.Nil(t, notify.AdminTaskControls(sampleTask(domain.StatusDone)), "finished tasks have no admin controls")

	canceled := notify.EmployeeTaskControls(sampleTask(domain.StatusCanceled))
	require.Len(t, canceled, 1, "owner may still comment on or attach to a finished task")
	assert.Equal(t, "t:7:comment", canceled[0][0].Tag)
	assert.Equal(t, "t:7:file", canceled[0][1].Tag)
	assert.Len(t, notify.EmployeeTaskControls(sampleTask(domain.StatusNew))[0], 2)
}
