// Package hamlet provides the small to-be-or-not-to-be assertion pair
// used by the test suites: "must" expects a condition to hold and "wont"
// expects it to fail.
package hamlet

import (
	"fmt"
	"reflect"
	"testing"
)

type Hamlet struct {
	t        *testing.T
	expected bool
}

// Specifications returns the must/wont pair bound to the given test.
func Specifications(t *testing.T) (*Hamlet, *Hamlet) {
	t.Helper()
	return &Hamlet{t, true}, &Hamlet{t, false}
}

func (it *Hamlet) verdict(outcome bool, form string, parts ...interface{}) {
	it.t.Helper()
	if outcome != it.expected {
		it.t.Errorf(form, parts...)
	}
}

func isNil(value interface{}) bool {
	if value == nil {
		return true
	}
	reflected := reflect.ValueOf(value)
	switch reflected.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		return reflected.IsNil()
	}
	return false
}

func (it *Hamlet) True(value bool) {
	it.t.Helper()
	it.verdict(value, "Expected %v but got %v!", it.expected, value)
}

func (it *Hamlet) Nil(value interface{}) {
	it.t.Helper()
	it.verdict(isNil(value), "Nil expectation %v failed for %#v!", it.expected, value)
}

func (it *Hamlet) Equal(expected, actual interface{}) {
	it.t.Helper()
	it.verdict(reflect.DeepEqual(expected, actual), "Expected %#v but got %#v!", expected, actual)
}

func (it *Hamlet) Text(expected string, actual interface{}) {
	it.t.Helper()
	it.verdict(expected == fmt.Sprintf("%v", actual), "Expected text %q but got %q!", expected, fmt.Sprintf("%v", actual))
}

func (it *Hamlet) Panic(task func()) {
	it.t.Helper()
	defer func() {
		it.t.Helper()
		it.verdict(recover() != nil, "Panic expectation %v failed!", it.expected)
	}()
	task()
}
