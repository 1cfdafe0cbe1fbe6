package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/romainhaenni/numerai-cli/config"
	"github.com/romainhaenni/numerai-cli/dash"
	"github.com/romainhaenni/numerai-cli/faults"
	"github.com/romainhaenni/numerai-cli/hamlet"
	"github.com/romainhaenni/numerai-cli/pipeline"
	"github.com/romainhaenni/numerai-cli/tournament"
	"github.com/romainhaenni/numerai-cli/tracking"
)

func chainConfig(t *testing.T, train, predict, submit bool) *config.Config {
	t.Helper()
	return &config.Config{
		RefreshInterval:        time.Second,
		ActiveRefreshInterval:  10 * time.Millisecond,
		ModelUpdateInterval:    time.Minute,
		NetworkCheckInterval:   time.Minute,
		NetworkTimeout:         time.Second,
		AutoTrainAfterDownload: train,
		AutoPredictAfterTrain:  predict,
		AutoSubmitAfterPredict: submit,
		GraceDelay:             time.Millisecond,
		EventHistory:           100,
		ErrorHistory:           100,
		DefaultEpochs:          3,
		DataDir:                t.TempDir(),
		ModelName:              "example_model",
	}
}

func eventually(t *testing.T, what string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("gave up waiting for %s", what)
}

func TestDownloadChainsAllTheWayToSubmission(t *testing.T) {
	must, _ := hamlet.Specifications(t)

	state := dash.New(chainConfig(t, true, true, true))
	orchestrator := pipeline.NewOrchestrator(state, &tournament.Simulated{})
	defer orchestrator.Stop()

	must.Nil(orchestrator.StartDownload())

	eventually(t, "chained submission", func() bool {
		return state.Snapshot().Model.LastSubmission != ""
	})

	snapshot := state.Snapshot()
	must.True(strings.HasPrefix(snapshot.Model.LastSubmission, "sim-512-"))
	must.Equal(512, snapshot.Model.Round)
	must.True(snapshot.Model.ValidationCorr > 0)

	// the completed set was consumed by the chain trigger
	must.Equal(0, len(snapshot.Datasets))
	must.Equal(0, state.Classifier.TotalCount())
}

func TestChainIsSkippedWhilePaused(t *testing.T) {
	must, _ := hamlet.Specifications(t)

	state := dash.New(chainConfig(t, true, false, false))
	state.Mutate(func(data *dash.Data) { data.Paused = true })
	orchestrator := pipeline.NewOrchestrator(state, &tournament.Simulated{})
	defer orchestrator.Stop()

	must.Nil(orchestrator.StartDownload())
	eventually(t, "skip event", func() bool {
		for _, entry := range state.Events.All() {
			if strings.Contains(entry.Message, "skipped while paused") {
				return true
			}
		}
		return false
	})

	must.True(state.Snapshot().Model.TrainedAt.IsZero())
	must.Equal(false, state.Tracker.IsActive(tracking.KindTraining))
}

func TestTrainingFaultStopsTheChain(t *testing.T) {
	must, wont := hamlet.Specifications(t)

	state := dash.New(chainConfig(t, false, true, true))
	client := &tournament.Simulated{FailTrain: errors.New("connection refused")}
	orchestrator := pipeline.NewOrchestrator(state, client)
	defer orchestrator.Stop()

	must.Nil(orchestrator.StartTrain("example_model", 3))
	eventually(t, "classified failure", func() bool {
		return state.Classifier.TotalCount() == 1
	})

	recent := state.Classifier.Recent(1)
	must.Equal(faults.CategoryNetwork, recent[0].Category)

	// prediction never starts off a failed training run
	time.Sleep(20 * time.Millisecond)
	wont.True(state.Tracker.IsActive(tracking.KindPrediction))
	must.True(state.Snapshot().Model.TrainedAt.IsZero())
}

func TestManualStageSequenceWithPendingSubmission(t *testing.T) {
	must, wont := hamlet.Specifications(t)

	state := dash.New(chainConfig(t, false, false, false))
	orchestrator := pipeline.NewOrchestrator(state, &tournament.Simulated{})
	defer orchestrator.Stop()

	// prediction and submission have preconditions
	wont.Nil(orchestrator.StartPredict())
	wont.Nil(orchestrator.SubmitPending())

	must.Nil(orchestrator.StartTrain("example_model", 4))
	eventually(t, "trained model", func() bool {
		return !state.Snapshot().Model.TrainedAt.IsZero()
	})
	must.Equal(4, state.Snapshot().Model.Epochs)
	wont.Equal(0, len(state.Snapshot().Model.LossTail))

	must.Nil(orchestrator.StartPredict())
	eventually(t, "scored predictions", func() bool {
		op, _ := state.Tracker.Get(tracking.KindPrediction)
		return !op.Active && op.Percent == 100
	})

	must.Nil(orchestrator.SubmitPending())
	eventually(t, "submission id", func() bool {
		return state.Snapshot().Model.LastSubmission != ""
	})
}

func TestSecondDownloadIsRejectedWhileRunning(t *testing.T) {
	must, _ := hamlet.Specifications(t)

	state := dash.New(chainConfig(t, false, false, false))
	orchestrator := pipeline.NewOrchestrator(state, &tournament.Simulated{Pace: 20 * time.Millisecond})
	defer orchestrator.Stop()

	must.Nil(orchestrator.StartDownload())
	must.Equal(tracking.ErrAlreadyActive, orchestrator.StartDownload())
}

func TestWorkerPanicIsConfinedAndReported(t *testing.T) {
	must, _ := hamlet.Specifications(t)

	state := dash.New(chainConfig(t, false, false, false))
	orchestrator := pipeline.NewOrchestrator(state, &panicClient{})
	defer orchestrator.Stop()

	caught := make(chan interface{}, 1)
	previous := pipeline.PanicHook
	pipeline.PanicHook = func(reason interface{}) { caught <- reason }
	defer func() { pipeline.PanicHook = previous }()

	must.Nil(orchestrator.StartDownload())
	select {
	case reason := <-caught:
		must.Equal("boom", reason)
	case <-time.After(5 * time.Second):
		t.Fatal("panic hook never fired")
	}
	must.Equal(false, state.Tracker.IsActive(tracking.KindDownload))
	must.Equal(1, state.Classifier.TotalCount())
}

type panicClient struct {
	tournament.Simulated
}

func (*panicClient) DownloadDataset(context.Context, string, tournament.ProgressFunc) error {
	panic("boom")
}
