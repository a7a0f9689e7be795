package harness

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sencha/orion-core/internal/clock"
)

type dogRecorder struct {
	reports []error
}

func (d *dogRecorder) report(err error) {
	d.reports = append(d.reports, err)
}

func TestWatchDogDoneCancelsTimer(t *testing.T) {
	clk := clock.NewManual(time.Unix(1000, 0))
	var rec dogRecorder
	w := NewWatchDog(clk, 5*time.Second, false, rec.report)

	w.Arm()
	assert.Equal(t, 1, clk.PendingCount())
	assert.False(t, w.Reported())

	clk.Advance(time.Second)
	w.Done()

	require.Len(t, rec.reports, 1)
	assert.NoError(t, rec.reports[0])
	assert.True(t, w.Reported())
	assert.Equal(t, 0, clk.PendingCount(), "expiry timer should be cancelled")
}

func TestWatchDogDefaultExpiryAsksAboutDone(t *testing.T) {
	clk := clock.NewManual(time.Unix(1000, 0))
	var rec dogRecorder
	w := NewWatchDog(clk, 5*time.Second, false, rec.report)

	w.Arm()
	clk.Advance(5 * time.Second)

	require.Len(t, rec.reports, 1)
	require.Error(t, rec.reports[0])
	msg := rec.reports[0].Error()
	assert.Contains(t, msg, "5s")
	assert.Contains(t, msg, "did you forget to call done()?")
}

func TestWatchDogExplicitExpiryOmitsTheHint(t *testing.T) {
	clk := clock.NewManual(time.Unix(1000, 0))
	var rec dogRecorder
	w := NewWatchDog(clk, 2*time.Second, true, rec.report)

	w.Arm()
	clk.Advance(2 * time.Second)

	require.Len(t, rec.reports, 1)
	require.Error(t, rec.reports[0])
	msg := rec.reports[0].Error()
	assert.Contains(t, msg, "timed out after 2s")
	assert.NotContains(t, msg, "did you forget")
}

func TestWatchDogFirstReportWins(t *testing.T) {
	clk := clock.NewManual(time.Unix(1000, 0))
	var rec dogRecorder
	w := NewWatchDog(clk, time.Second, false, rec.report)

	w.Arm()
	w.Done()
	w.Fail(errors.New("too late"))
	clk.Advance(5 * time.Second)

	require.Len(t, rec.reports, 1)
	assert.NoError(t, rec.reports[0])
}

func TestWatchDogFailWithoutReasonStillFails(t *testing.T) {
	clk := clock.NewManual(time.Unix(1000, 0))
	var rec dogRecorder
	w := NewWatchDog(clk, time.Second, false, rec.report)

	w.Arm()
	w.Fail(nil)

	require.Len(t, rec.reports, 1)
	require.Error(t, rec.reports[0])
	assert.Contains(t, rec.reports[0].Error(), "without a reason")
}

func TestWatchDogZeroTimeoutNeverExpires(t *testing.T) {
	clk := clock.NewManual(time.Unix(1000, 0))
	var rec dogRecorder
	w := NewWatchDog(clk, 0, false, rec.report)

	w.Arm()
	assert.Equal(t, 0, clk.PendingCount(), "no timer without a timeout")

	clk.Advance(time.Hour)
	assert.Empty(t, rec.reports)

	w.Done()
	require.Len(t, rec.reports, 1)
	assert.NoError(t, rec.reports[0])
}

func TestWatchDogSecondArmIsNoOp(t *testing.T) {
	clk := clock.NewManual(time.Unix(1000, 0))
	var rec dogRecorder
	w := NewWatchDog(clk, time.Second, false, rec.report)

	w.Arm()
	w.Arm()
	assert.Equal(t, 1, clk.PendingCount())

	clk.Advance(time.Second)
	require.Len(t, rec.reports, 1)
}

func TestWatchDogDisarmReportsNothing(t *testing.T) {
	clk := clock.NewManual(time.Unix(1000, 0))
	var rec dogRecorder
	w := NewWatchDog(clk, time.Second, false, rec.report)

	w.Arm()
	w.disarm()

	assert.True(t, w.Reported())
	assert.Equal(t, 0, clk.PendingCount())

	clk.Advance(5 * time.Second)
	w.Done()
	assert.Empty(t, rec.reports)
}
