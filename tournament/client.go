// Package tournament defines the external collaborator surface of the
// dashboard: data download, model training, prediction, and submission.
// The dashboard consumes these as opaque calls with callback-based
// progress reporting.
package tournament

import "context"

// RequiredDatasets is the dataset set that must be complete before
// training can be auto-chained.
var RequiredDatasets = []string{"train.parquet", "validation.parquet", "live.parquet"}

// ProgressFunc reports granular stage progress: percent within [0,100]
// plus optional counters (bytes, rows) for display.
type ProgressFunc func(percent float64, note string, current, total int64)

// EpochFunc reports one finished training epoch. Returning false requests
// cooperative cancellation before the next epoch.
type EpochFunc func(epoch, total int, loss float64) bool

// Model is the opaque handle to a trained model.
type Model struct {
	Name           string
	Epochs         int
	FinalLoss      float64
	ValidationCorr float64
}

// Predictions is the opaque handle to a scored live dataset.
type Predictions struct {
	ModelName string
	Rows      int
}

// TrainSpec configures one training run.
type TrainSpec struct {
	ModelName string
	Epochs    int
	DataDir   string
}

// Client is the tournament collaborator. Implementations block on I/O;
// the orchestrator runs them inside worker tasks so the dashboard loops
// never stall.
type Client interface {
	DownloadDataset(ctx context.Context, name string, progress ProgressFunc) error
	Train(ctx context.Context, spec TrainSpec, epoch EpochFunc) (Model, error)
	Predict(ctx context.Context, model Model, progress ProgressFunc) (Predictions, error)
	Submit(ctx context.Context, predictions Predictions) (string, error)
	CurrentRound(ctx context.Context) (int, error)
}
