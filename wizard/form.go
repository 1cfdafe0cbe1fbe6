// Package wizard models the multi-step submit form that the dashboard
// body renders in place. One live instance at a time; the form itself is
// plain state, keystrokes reach it through the input dispatcher.
package wizard

import (
	"regexp"
	"strconv"
	"strings"
)

type Validator func(string) (string, bool)

var namePattern = regexp.MustCompile(`^[\w-]+$`)

// Step is a single field of the form.
type Step struct {
	Title    string
	Prompt   string
	Value    string
	Problem  string
	Validate Validator
}

// Form is a linear sequence of steps plus a terminal confirm step.
type Form struct {
	Steps     []Step
	Index     int
	Done      bool
	Cancelled bool
}

// Result carries the validated outcome of a completed submit form.
type Result struct {
	ModelName string
	Epochs    int
}

func memberValidation(members []string, problem string) Validator {
	return func(input string) (string, bool) {
		for _, member := range members {
			if strings.EqualFold(input, member) {
				return problem, true
			}
		}
		return problem, false
	}
}

func nameValidation(input string) (string, bool) {
	if !namePattern.MatchString(input) {
		return "model names may only contain letters, numbers, _ and -", false
	}
	return "", true
}

func epochsValidation(input string) (string, bool) {
	value, err := strconv.Atoi(input)
	if err != nil || value < 1 || value > 1000 {
		return "epochs must be a number between 1 and 1000", false
	}
	return "", true
}

// NewSubmitForm builds the 3-step train-and-submit form with defaults
// prefilled from configuration.
func NewSubmitForm(modelName string, epochs int) *Form {
	return &Form{
		Steps: []Step{
			{
				Title:    "Model name",
				Prompt:   "Tournament model to train and submit",
				Value:    modelName,
				Validate: nameValidation,
			},
			{
				Title:    "Epochs",
				Prompt:   "Training epochs",
				Value:    strconv.Itoa(epochs),
				Validate: epochsValidation,
			},
			{
				Title:    "Confirm",
				Prompt:   "Start training run? (yes/no)",
				Value:    "yes",
				Validate: memberValidation([]string{"yes", "no"}, "answer yes or no"),
			},
		},
	}
}

// Clone returns a display copy detached from the live form, safe to read
// after the state lock has been released.
func (f *Form) Clone() *Form {
	if f == nil {
		return nil
	}
	clone := *f
	clone.Steps = append([]Step(nil), f.Steps...)
	return &clone
}

// Current returns the active step.
func (f *Form) Current() *Step {
	if f.Index < 0 || f.Index >= len(f.Steps) {
		return nil
	}
	return &f.Steps[f.Index]
}

// Input appends one printable character to the active field.
func (f *Form) Input(ch rune) {
	step := f.Current()
	if step == nil || f.Done {
		return
	}
	step.Value += string(ch)
	step.Problem = ""
}

// Backspace removes the last character of the active field.
func (f *Form) Backspace() {
	step := f.Current()
	if step == nil || f.Done || len(step.Value) == 0 {
		return
	}
	step.Value = step.Value[:len(step.Value)-1]
	step.Problem = ""
}

// Next validates the active step and advances. On the last step the form
// becomes done. Returns false when validation rejected the value.
func (f *Form) Next() bool {
	step := f.Current()
	if step == nil || f.Done {
		return false
	}
	value := strings.TrimSpace(step.Value)
	if step.Validate != nil {
		if problem, ok := step.Validate(value); !ok {
			step.Problem = problem
			return false
		}
	}
	step.Value = value
	if f.Index+1 >= len(f.Steps) {
		f.Done = true
		return true
	}
	f.Index += 1
	return true
}

// Prev moves back one step without validation.
func (f *Form) Prev() {
	if f.Index > 0 && !f.Done {
		f.Index -= 1
	}
}

// Cancel abandons the form.
func (f *Form) Cancel() {
	f.Cancelled = true
	f.Done = true
}

// Confirmed reports whether the form completed with an affirmative answer.
func (f *Form) Confirmed() bool {
	if !f.Done || f.Cancelled {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(f.Steps[len(f.Steps)-1].Value), "yes")
}

// Result extracts the validated values. Only meaningful when Confirmed.
func (f *Form) Result() Result {
	epochs, _ := strconv.Atoi(f.Steps[1].Value)
	return Result{
		ModelName: f.Steps[0].Value,
		Epochs:    epochs,
	}
}
