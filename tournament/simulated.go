package tournament

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Simulated is a deterministic in-process client used for development
// runs and tests. Stages take a configurable pace per step so the
// dashboard shows realistic progress without network credentials.
type Simulated struct {
	// Pace is the sleep per progress step; zero means run flat out.
	Pace time.Duration
	// FailDownload, FailTrain and friends inject faults for tests.
	FailDownload error
	FailTrain    error
	FailPredict  error
	FailSubmit   error

	submissions int
}

const simulatedRound = 512

func (s *Simulated) pause(ctx context.Context) error {
	if s.Pace <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.Pace):
		return nil
	}
}

func (s *Simulated) DownloadDataset(ctx context.Context, name string, progress ProgressFunc) error {
	if s.FailDownload != nil {
		return s.FailDownload
	}
	total := int64(48 << 20)
	steps := 16
	for step := 1; step <= steps; step++ {
		if err := s.pause(ctx); err != nil {
			return err
		}
		current := total * int64(step) / int64(steps)
		progress(float64(step)*100/float64(steps), name, current, total)
	}
	return nil
}

func (s *Simulated) Train(ctx context.Context, spec TrainSpec, epoch EpochFunc) (Model, error) {
	if s.FailTrain != nil {
		return Model{}, s.FailTrain
	}
	loss := 0.72
	for e := 1; e <= spec.Epochs; e++ {
		if err := s.pause(ctx); err != nil {
			return Model{}, err
		}
		// smooth exponential-ish decay toward a floor
		loss = 0.078 + (loss-0.078)*0.93
		if !epoch(e, spec.Epochs, loss) {
			return Model{}, ctx.Err()
		}
	}
	return Model{
		Name:           spec.ModelName,
		Epochs:         spec.Epochs,
		FinalLoss:      loss,
		ValidationCorr: math.Round((0.031+loss/100)*10000) / 10000,
	}, nil
}

func (s *Simulated) Predict(ctx context.Context, model Model, progress ProgressFunc) (Predictions, error) {
	if s.FailPredict != nil {
		return Predictions{}, s.FailPredict
	}
	rows := 4800
	steps := 10
	for step := 1; step <= steps; step++ {
		if err := s.pause(ctx); err != nil {
			return Predictions{}, err
		}
		progress(float64(step)*100/float64(steps), "scoring live data", int64(rows*step/steps), int64(rows))
	}
	return Predictions{ModelName: model.Name, Rows: rows}, nil
}

func (s *Simulated) Submit(ctx context.Context, predictions Predictions) (string, error) {
	if s.FailSubmit != nil {
		return "", s.FailSubmit
	}
	if err := s.pause(ctx); err != nil {
		return "", err
	}
	s.submissions += 1
	return fmt.Sprintf("sim-%d-%04d", simulatedRound, s.submissions), nil
}

func (s *Simulated) CurrentRound(ctx context.Context) (int, error) {
	return simulatedRound, nil
}
