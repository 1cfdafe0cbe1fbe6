package faults_test

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/romainhaenni/numerai-cli/faults"
	"github.com/romainhaenni/numerai-cli/hamlet"
)

func TestClassificationIsDeterministic(t *testing.T) {
	must, _ := hamlet.Specifications(t)

	fault := errors.New("dial tcp 1.2.3.4:443: connect: connection refused")
	for round := 0; round < 5; round++ {
		category, severity := faults.Classify(fault)
		must.Equal(faults.CategoryNetwork, category)
		must.Equal(faults.SeverityHigh, severity)
	}
}

func TestClassificationBuckets(t *testing.T) {
	must, _ := hamlet.Specifications(t)

	scenarios := []struct {
		fault    string
		category faults.Category
		severity faults.Severity
	}{
		{"connection refused", faults.CategoryNetwork, faults.SeverityHigh},
		{"no such host", faults.CategoryNetwork, faults.SeverityHigh},
		{"401 unauthorized", faults.CategoryAuth, faults.SeverityCritical},
		{"invalid credentials supplied", faults.CategoryAuth, faults.SeverityCritical},
		{"context deadline exceeded", faults.CategoryTimeout, faults.SeverityMedium},
		{"graphql query rejected", faults.CategoryAPI, faults.SeverityMedium},
		{"rate limit exceeded", faults.CategoryAPI, faults.SeverityMedium},
		{"validation failed for predictions", faults.CategoryValidation, faults.SeverityLow},
		{"train.parquet is corrupt", faults.CategoryData, faults.SeverityMedium},
		{"something completely different", faults.CategorySystem, faults.SeverityMedium},
	}
	for _, scenario := range scenarios {
		category, severity := faults.Classify(errors.New(scenario.fault))
		must.Equal(scenario.category, category)
		must.Equal(scenario.severity, severity)
	}
}

func TestPermissionFaultsShareOneBucket(t *testing.T) {
	must, _ := hamlet.Specifications(t)

	// typed and textual permission faults land in the same bucket
	category, severity := faults.Classify(fmt.Errorf("open train.parquet: %w", os.ErrPermission))
	must.Equal(faults.CategoryData, category)
	must.Equal(faults.SeverityMedium, severity)

	category, severity = faults.Classify(errors.New("open train.parquet: permission denied"))
	must.Equal(faults.CategoryData, category)
	must.Equal(faults.SeverityMedium, severity)
}

func TestNilFaultIsLowSeveritySystem(t *testing.T) {
	must, _ := hamlet.Specifications(t)

	category, severity := faults.Classify(nil)
	must.Equal(faults.CategorySystem, category)
	must.Equal(faults.SeverityLow, severity)
}

func TestFriendlyMessages(t *testing.T) {
	must, _ := hamlet.Specifications(t)

	message := faults.FriendlyMessage(faults.CategoryNetwork, "connection refused")
	must.True(strings.Contains(message, "Network connectivity problem"))

	message = faults.FriendlyMessage(faults.CategoryAPI, "model not found: foo")
	must.True(strings.Contains(message, "model not found"))

	message = faults.FriendlyMessage(faults.CategoryAPI, "rate limit hit")
	must.True(strings.Contains(message, "rate limited"))

	message = faults.FriendlyMessage(faults.CategoryAuth, "invalid credentials")
	must.True(strings.Contains(message, "NUMERAI_PUBLIC_ID"))
}

func TestClassifierHistoryAndCounts(t *testing.T) {
	must, wont := hamlet.Specifications(t)

	classifier := faults.NewClassifier(3)
	classifier.Categorize(errors.New("connection refused"))
	classifier.Categorize(errors.New("connection reset"))
	classifier.Categorize(errors.New("unauthorized"))
	classifier.Categorize(errors.New("timed out"))

	must.Equal(2, classifier.Count(faults.CategoryNetwork))
	must.Equal(1, classifier.Count(faults.CategoryAuth))
	must.Equal(4, classifier.TotalCount())

	recent := classifier.Recent(10)
	must.Equal(3, len(recent))
	must.Equal(faults.CategoryNetwork, recent[0].Category)
	must.Equal(faults.CategoryTimeout, recent[2].Category)
	trend := classifier.Trend(time.Minute)
	wont.Equal(0, len(trend))
	must.Equal(1, trend[faults.CategoryNetwork])
	must.Equal(1, trend[faults.CategoryTimeout])
}

func TestCategorizedBehavesAsError(t *testing.T) {
	must, _ := hamlet.Specifications(t)

	classifier := faults.NewClassifier(5)
	categorized := classifier.Categorize(errors.New("connection refused"))
	var err error = categorized
	must.True(strings.Contains(err.Error(), "Network connectivity problem"))
	must.Equal("connection refused", categorized.Technical)
}
