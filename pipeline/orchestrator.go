// Package pipeline sequences the tournament stages Download, Train,
// Predict, and Submit. Every stage runs inside a guarded worker task under
// the single-flight tracker; chaining between stages is opt-in per flag
// and never retries a failed stage on its own.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/romainhaenni/numerai-cli/common"
	"github.com/romainhaenni/numerai-cli/dash"
	"github.com/romainhaenni/numerai-cli/eventlog"
	"github.com/romainhaenni/numerai-cli/tournament"
	"github.com/romainhaenni/numerai-cli/tracking"
)

// PanicHook receives programming-bug panics caught at worker boundaries.
// The default just logs; the command layer points this at the recovery
// reporter.
var PanicHook = func(reason interface{}) {
	common.Error("worker panic", fmt.Errorf("%v", reason))
}

// Orchestrator drives stage workers against the dashboard state.
type Orchestrator struct {
	state  *dash.State
	client tournament.Client
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending *tournament.Predictions
}

func NewOrchestrator(state *dash.State, client tournament.Client) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		state:  state,
		client: client,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Stop requests cooperative cancellation of all running stage workers.
func (o *Orchestrator) Stop() {
	o.cancel()
}

// guarded wraps a worker body with the panic boundary. Expected failures
// are returned as errors by the body and classified by the caller;
// anything recovered here is a bug and goes to the panic hook.
func guarded(kind tracking.Kind, state *dash.State, body func() error) {
	defer func() {
		if reason := recover(); reason != nil {
			state.FailOperation(kind, fmt.Errorf("internal error in %s worker: %v", kind, reason))
			PanicHook(reason)
		}
	}()
	if err := body(); err != nil {
		state.FailOperation(kind, err)
	}
}

// StartDownload launches the dataset download worker. Returns
// tracking.ErrAlreadyActive when a download is already in flight.
func (o *Orchestrator) StartDownload() error {
	generation, err := o.state.StartOperation(tracking.KindDownload, "fetching tournament datasets")
	if err != nil {
		return err
	}

	go guarded(tracking.KindDownload, o.state, func() error {
		datasets := tournament.RequiredDatasets
		for index, name := range datasets {
			if o.ctx.Err() != nil {
				return fmt.Errorf("download cancelled")
			}
			base := float64(index) * 100 / float64(len(datasets))
			span := 100 / float64(len(datasets))
			dataset := name
			err := o.client.DownloadDataset(o.ctx, dataset, func(percent float64, note string, current, total int64) {
				overall := base + span*percent/100
				counters := fmt.Sprintf("%s %s / %s", dataset, humanize.IBytes(uint64(current)), humanize.IBytes(uint64(total)))
				o.state.UpdateProgress(tracking.KindDownload, generation, overall, counters)
				o.state.Tracker.SetCounters(tracking.KindDownload, generation, current, total, "bytes")
			})
			if err != nil {
				return err
			}
			o.state.Mutate(func(data *dash.Data) {
				data.Datasets[dataset] = true
			})
		}
		o.state.CompleteOperation(tracking.KindDownload)
		o.maybeChainTrain()
		return nil
	})
	return nil
}

// allDatasetsComplete checks the required set under the state lock.
func (o *Orchestrator) allDatasetsComplete() bool {
	complete := true
	o.state.Mutate(func(data *dash.Data) {
		for _, name := range tournament.RequiredDatasets {
			if !data.Datasets[name] {
				complete = false
			}
		}
	})
	return complete
}

// maybeChainTrain fires training after the grace delay when the download
// chain flag is set and all required datasets are present. The completed
// set resets at the trigger so a later unrelated download cannot re-arm
// the chain on stale completions.
func (o *Orchestrator) maybeChainTrain() {
	if !o.state.Config.AutoTrainAfterDownload || !o.allDatasetsComplete() {
		return
	}
	o.state.Mutate(func(data *dash.Data) {
		data.Datasets = make(map[string]bool)
	})
	o.chainAfterGrace("training", func() {
		snapshot := o.state.Snapshot()
		common.Error("auto-chain train", o.StartTrain(snapshot.Model.Name, snapshot.Model.Epochs))
	})
}

// chainAfterGrace schedules the next stage after the configured grace
// delay, giving the UI a beat to show the completion state. The chain is
// abandoned when the dashboard stops or pauses meanwhile.
func (o *Orchestrator) chainAfterGrace(next string, launch func()) {
	o.state.Events.Append(eventlog.LevelInfo, fmt.Sprintf("auto-chaining %s shortly", next))
	grace := o.state.Config.GraceDelay
	go func() {
		select {
		case <-o.ctx.Done():
			return
		case <-time.After(grace):
		}
		if !o.state.Running() {
			return
		}
		paused := false
		o.state.Mutate(func(data *dash.Data) {
			paused = data.Paused
		})
		if paused {
			o.state.Events.Append(eventlog.LevelInfo, fmt.Sprintf("auto-chain to %s skipped while paused", next))
			return
		}
		launch()
	}()
}

// StartTrain launches the training worker for the given model and epochs.
func (o *Orchestrator) StartTrain(modelName string, epochs int) error {
	if epochs < 1 {
		epochs = o.state.Config.DefaultEpochs
	}
	note := fmt.Sprintf("training %s for %d epochs", modelName, epochs)
	generation, err := o.state.StartOperation(tracking.KindTraining, note)
	if err != nil {
		return err
	}

	go guarded(tracking.KindTraining, o.state, func() error {
		spec := tournament.TrainSpec{
			ModelName: modelName,
			Epochs:    epochs,
			DataDir:   o.state.Config.DataDir,
		}
		model, err := o.client.Train(o.ctx, spec, func(epoch, total int, loss float64) bool {
			percent := float64(epoch) * 100 / float64(total)
			o.state.UpdateProgress(tracking.KindTraining, generation, percent, fmt.Sprintf("epoch %d/%d loss %.4f", epoch, total, loss))
			o.state.Tracker.SetCounters(tracking.KindTraining, generation, int64(epoch), int64(total), "epochs")
			o.state.Mutate(func(data *dash.Data) {
				data.Model.LossTail = append(data.Model.LossTail, loss)
				if len(data.Model.LossTail) > 20 {
					data.Model.LossTail = data.Model.LossTail[len(data.Model.LossTail)-20:]
				}
			})
			return o.ctx.Err() == nil && o.state.Running()
		})
		if err != nil {
			return err
		}
		o.state.Mutate(func(data *dash.Data) {
			data.Model.Name = model.Name
			data.Model.Epochs = model.Epochs
			data.Model.ValidationCorr = model.ValidationCorr
			data.Model.TrainedAt = time.Now()
		})
		o.state.CompleteOperation(tracking.KindTraining)
		if o.state.Config.AutoPredictAfterTrain {
			o.chainAfterGrace("prediction", func() {
				common.Error("auto-chain predict", o.StartPredict())
			})
		}
		return nil
	})
	return nil
}

// StartPredict launches the prediction worker against the last trained
// model.
func (o *Orchestrator) StartPredict() error {
	snapshot := o.state.Snapshot()
	if snapshot.Model.TrainedAt.IsZero() {
		return fmt.Errorf("no trained model available, run training first")
	}
	generation, err := o.state.StartOperation(tracking.KindPrediction, "predicting live data with "+snapshot.Model.Name)
	if err != nil {
		return err
	}

	go guarded(tracking.KindPrediction, o.state, func() error {
		model := tournament.Model{
			Name:           snapshot.Model.Name,
			Epochs:         snapshot.Model.Epochs,
			ValidationCorr: snapshot.Model.ValidationCorr,
		}
		predictions, err := o.client.Predict(o.ctx, model, func(percent float64, note string, current, total int64) {
			o.state.UpdateProgress(tracking.KindPrediction, generation, percent, note)
			o.state.Tracker.SetCounters(tracking.KindPrediction, generation, current, total, "rows")
		})
		if err != nil {
			return err
		}
		o.state.CompleteOperation(tracking.KindPrediction)
		if o.state.Config.AutoSubmitAfterPredict {
			o.chainAfterGrace("upload", func() {
				common.Error("auto-chain submit", o.StartSubmit(predictions))
			})
		} else {
			o.mu.Lock()
			o.pending = &predictions
			o.mu.Unlock()
		}
		return nil
	})
	return nil
}

// StartSubmit launches the upload worker for scored predictions.
func (o *Orchestrator) StartSubmit(predictions tournament.Predictions) error {
	generation, err := o.state.StartOperation(tracking.KindUpload, "submitting predictions for "+predictions.ModelName)
	if err != nil {
		return err
	}

	go guarded(tracking.KindUpload, o.state, func() error {
		o.state.UpdateProgress(tracking.KindUpload, generation, 10, "uploading")
		id, err := o.client.Submit(o.ctx, predictions)
		if err != nil {
			return err
		}
		round, roundErr := o.client.CurrentRound(o.ctx)
		common.Uncritical("current round", roundErr)
		o.state.Mutate(func(data *dash.Data) {
			data.Model.LastSubmission = id
			if roundErr == nil {
				data.Model.Round = round
			}
		})
		o.state.CompleteOperation(tracking.KindUpload)
		return nil
	})
	return nil
}

// SubmitPending submits the most recently scored predictions, if any.
func (o *Orchestrator) SubmitPending() error {
	o.mu.Lock()
	pending := o.pending
	o.mu.Unlock()
	if pending == nil {
		return fmt.Errorf("no predictions available, run prediction first")
	}
	return o.StartSubmit(*pending)
}
