package wizard_test

import (
	"testing"

	"github.com/romainhaenni/numerai-cli/hamlet"
	"github.com/romainhaenni/numerai-cli/wizard"
)

func TestHappyPathThroughSubmitForm(t *testing.T) {
	must, wont := hamlet.Specifications(t)

	form := wizard.NewSubmitForm("example_model", 50)
	must.Equal(3, len(form.Steps))
	must.Text("Model name", form.Current().Title)

	must.True(form.Next())
	must.Text("Epochs", form.Current().Title)
	must.True(form.Next())
	must.Text("Confirm", form.Current().Title)
	must.True(form.Next())

	must.True(form.Done)
	wont.True(form.Cancelled)
	must.True(form.Confirmed())

	result := form.Result()
	must.Text("example_model", result.ModelName)
	must.Equal(50, result.Epochs)
}

func TestValidationBlocksAdvance(t *testing.T) {
	must, wont := hamlet.Specifications(t)

	form := wizard.NewSubmitForm("model", 50)
	form.Input(' ')
	form.Input('!')
	wont.True(form.Next())
	wont.Equal("", form.Current().Problem)
	must.Equal(0, form.Index)

	// typing clears the complaint, backspacing out the junk unblocks
	form.Backspace()
	must.Text("", form.Current().Problem)
	form.Backspace()
	must.True(form.Next())

	// out of range epochs
	for range "50" {
		form.Backspace()
	}
	form.Input('0')
	wont.True(form.Next())
	must.Text("epochs must be a number between 1 and 1000", form.Current().Problem)
}

func TestPrevAndCancel(t *testing.T) {
	must, wont := hamlet.Specifications(t)

	form := wizard.NewSubmitForm("model", 10)
	must.True(form.Next())
	form.Prev()
	must.Equal(0, form.Index)
	form.Prev()
	must.Equal(0, form.Index)

	form.Cancel()
	must.True(form.Done)
	must.True(form.Cancelled)
	wont.True(form.Confirmed())

	// a done form ignores further edits
	before := form.Current().Value
	form.Input('x')
	must.Text(before, form.Current().Value)
}

func TestDecliningConfirmStep(t *testing.T) {
	must, wont := hamlet.Specifications(t)

	form := wizard.NewSubmitForm("model", 10)
	must.True(form.Next())
	must.True(form.Next())
	for range "yes" {
		form.Backspace()
	}
	for _, ch := range "no" {
		form.Input(ch)
	}
	must.True(form.Next())
	must.True(form.Done)
	wont.True(form.Confirmed())
}
