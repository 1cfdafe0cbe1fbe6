package tracking_test

import (
	"testing"

	"github.com/romainhaenni/numerai-cli/hamlet"
	"github.com/romainhaenni/numerai-cli/tracking"
)

func TestSecondStartIsRejectedUntilCompletion(t *testing.T) {
	must, wont := hamlet.Specifications(t)

	tracker := tracking.New()
	first, err := tracker.Start(tracking.KindDownload, "round 512")
	must.Nil(err)
	wont.Equal(uint64(0), first)

	_, err = tracker.Start(tracking.KindDownload, "again")
	must.Equal(tracking.ErrAlreadyActive, err)

	// independent kinds are unaffected
	_, err = tracker.Start(tracking.KindTraining, "epochs")
	must.Nil(err)

	must.True(tracker.Complete(tracking.KindDownload))
	second, err := tracker.Start(tracking.KindDownload, "retry")
	must.Nil(err)
	wont.Equal(first, second)
}

func TestPercentIsClampedAndForwardOnly(t *testing.T) {
	must, _ := hamlet.Specifications(t)

	tracker := tracking.New()
	generation, err := tracker.Start(tracking.KindTraining, "")
	must.Nil(err)

	must.True(tracker.Update(tracking.KindTraining, generation, 150, ""))
	op, ok := tracker.Get(tracking.KindTraining)
	must.True(ok)
	must.Equal(100.0, op.Percent)

	tracker.Update(tracking.KindTraining, generation, -5, "")
	op, _ = tracker.Get(tracking.KindTraining)
	must.Equal(100.0, op.Percent)

	must.True(tracker.Fail(tracking.KindTraining))
	generation, _ = tracker.Start(tracking.KindTraining, "")
	tracker.Update(tracking.KindTraining, generation, 60, "")
	tracker.Update(tracking.KindTraining, generation, 40, "")
	op, _ = tracker.Get(tracking.KindTraining)
	must.Equal(60.0, op.Percent)
}

func TestIdleCompleteAndFailAreNoOps(t *testing.T) {
	must, wont := hamlet.Specifications(t)

	tracker := tracking.New()
	wont.True(tracker.Complete(tracking.KindUpload))
	wont.True(tracker.Fail(tracking.KindUpload))
	wont.True(tracker.IsActive(tracking.KindUpload))
	must.Equal(0, len(tracker.Active()))
}

func TestStaleGenerationUpdatesAreDiscarded(t *testing.T) {
	must, wont := hamlet.Specifications(t)

	tracker := tracking.New()
	stale, _ := tracker.Start(tracking.KindPrediction, "")
	tracker.Update(tracking.KindPrediction, stale, 30, "old run")
	must.True(tracker.Fail(tracking.KindPrediction))

	fresh, _ := tracker.Start(tracking.KindPrediction, "")
	wont.True(tracker.Update(tracking.KindPrediction, stale, 90, "late callback"))
	op, _ := tracker.Get(tracking.KindPrediction)
	must.Equal(0.0, op.Percent)

	must.True(tracker.Update(tracking.KindPrediction, fresh, 10, "live"))
	op, _ = tracker.Get(tracking.KindPrediction)
	must.Equal(10.0, op.Percent)
	must.Equal("live", op.Note)
}

func TestCountersAndActiveOrdering(t *testing.T) {
	must, _ := hamlet.Specifications(t)

	tracker := tracking.New()
	uploadGen, _ := tracker.Start(tracking.KindUpload, "")
	downloadGen, _ := tracker.Start(tracking.KindDownload, "")

	must.True(tracker.SetCounters(tracking.KindDownload, downloadGen, 10<<20, 48<<20, "bytes"))
	must.True(tracker.SetCounters(tracking.KindUpload, uploadGen, 3, 9, "rows"))

	active := tracker.Active()
	must.Equal(2, len(active))
	must.Equal(tracking.KindDownload, active[0].Kind)
	must.Equal(tracking.KindUpload, active[1].Kind)
	must.Equal(int64(48<<20), active[0].Total)
	must.True(tracker.AnyActive())
}

func TestUpdateNotificationsFire(t *testing.T) {
	must, _ := hamlet.Specifications(t)

	tracker := tracking.New()
	notified := 0
	tracker.SetOnUpdate(func() { notified += 1 })

	generation, _ := tracker.Start(tracking.KindDownload, "")
	tracker.Update(tracking.KindDownload, generation, 50, "")
	tracker.Complete(tracking.KindDownload)
	must.Equal(3, notified)

	// rejected mutations stay silent
	tracker.Update(tracking.KindDownload, generation, 60, "")
	must.Equal(3, notified)
}
