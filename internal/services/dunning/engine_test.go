package dunning

import (
	"testing"
	"time"

	"github.com/ju-nu/ShopwareDunning/internal/models"
	"github.com/stretchr/testify/require"
)

func day(t time.Time, d int) int64 {
	return t.AddDate(0, 0, -d).Unix()
}

func TestDecide_FirstReminderWhenNoMarkers(t *testing.T) {
	now := time.Now().UTC()
	require.Equal(t, models.StageFirstReminder, Decide(models.StageMarkers{}, false, 10, now))
	// Regardless of the clock.
	require.Equal(t, models.StageFirstReminder, Decide(models.StageMarkers{}, false, 10, now.AddDate(-3, 0, 0)))
}

func TestDecide_NoneWhileNotYetDue(t *testing.T) {
	now := time.Now().UTC()
	m := models.StageMarkers{Stage1At: day(now, 5)}
	require.Equal(t, models.StageNone, Decide(m, false, 10, now))
}

func TestDecide_FirstDunningWhenDue(t *testing.T) {
	now := time.Now().UTC()
	m := models.StageMarkers{Stage1At: day(now, 11)}
	require.Equal(t, models.StageFirstDunning, Decide(m, false, 10, now))
}

func TestDecide_ExactThresholdIsDue(t *testing.T) {
	now := time.Now().UTC()
	m := models.StageMarkers{Stage1At: now.Unix() - 10*86400}
	require.Equal(t, models.StageFirstDunning, Decide(m, false, 10, now))
}

func TestDecide_SecondDunningWhenDue(t *testing.T) {
	now := time.Now().UTC()
	m := models.StageMarkers{Stage1At: day(now, 11), Stage2At: day(now, 11)}
	require.Equal(t, models.StageSecondDunning, Decide(m, false, 10, now))
}

func TestDecide_FullyDunned(t *testing.T) {
	now := time.Now().UTC()
	m := models.StageMarkers{Stage1At: day(now, 30), Stage2At: day(now, 30), Stage3At: day(now, 30)}
	require.Equal(t, models.StageNone, Decide(m, false, 10, now))
}

func TestDecide_IgnoredAlwaysNone(t *testing.T) {
	now := time.Now().UTC()
	cases := []models.StageMarkers{
		{},
		{Stage1At: day(now, 30)},
		{Stage1At: day(now, 30), Stage2At: day(now, 30)},
	}
	for _, m := range cases {
		require.Equal(t, models.StageNone, Decide(m, true, 10, now))
	}
}

func TestDecide_DueDaysCoercedToOne(t *testing.T) {
	now := time.Now().UTC()
	m := models.StageMarkers{Stage1At: day(now, 2)}
	require.Equal(t, models.StageFirstDunning, Decide(m, false, 0, now))
	require.Equal(t, models.StageFirstDunning, Decide(m, false, -5, now))
}

func TestDecide_Idempotent(t *testing.T) {
	now := time.Now().UTC()
	m := models.StageMarkers{Stage1At: day(now, 11)}
	first := Decide(m, false, 10, now)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, Decide(m, false, 10, now))
	}
}

func TestDecide_MonotonicProgression(t *testing.T) {
	now := time.Now().UTC()
	m := models.StageMarkers{}

	require.Equal(t, models.StageFirstReminder, Decide(m, false, 10, now))
	m.Stage1At = day(now, 11)

	require.Equal(t, models.StageFirstDunning, Decide(m, false, 10, now))
	m.Stage2At = day(now, 11)

	require.Equal(t, models.StageSecondDunning, Decide(m, false, 10, now))
	m.Stage3At = now.Unix()

	// No sequence of calls walks backwards or un-sets a marker.
	require.Equal(t, models.StageNone, Decide(m, false, 10, now))
	require.Equal(t, models.StageNone, Decide(m, false, 10, now.AddDate(0, 0, 100)))
}
