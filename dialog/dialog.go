// Package dialog is the boundary between workflow tasks and the user. Tasks
// open prompts and are called back once, when the prompt closes.
package dialog

import (
	"github.com/rom8726/clinicflow/archetype"
)

type Button string

const (
	ButtonOK     Button = "ok"
	ButtonCancel Button = "cancel"
	ButtonYes    Button = "yes"
	ButtonNo     Button = "no"
	ButtonSkip   Button = "skip"
)

var (
	YesNoCancel = []Button{ButtonYes, ButtonNo, ButtonCancel}
	OKCancel    = []Button{ButtonOK, ButtonCancel}
)

type Kind string

const (
	KindConfirm Kind = "confirm"
	KindEdit    Kind = "edit"
	KindSelect  Kind = "select"
)

type ConfirmRequest struct {
	Title   string
	Message string
	Buttons []Button
}

// EditRequest opens an editor over Object. The editor works on its own copy;
// the task decides what to persist.
type EditRequest struct {
	Title     string
	Object    *archetype.IMObject
	Skippable bool
}

type SelectRequest struct {
	Title     string
	Options   []*archetype.IMObject
	Skippable bool
}

type Action string

const (
	ActionSaved     Action = "saved"
	ActionSelected  Action = "selected"
	ActionDismissed Action = "dismissed"
	ActionSkipped   Action = "skipped"
)

// EditResult carries the node values the user changed when Action is
// ActionSaved.
type EditResult struct {
	Action  Action
	Changes map[string]any
}

type SelectResult struct {
	Action   Action
	Selected *archetype.IMObject
}

// Handle closes an open prompt without calling its callback.
type Handle interface {
	Close()
}

// Dialogs opens prompts. Callbacks fire at most once, possibly before the
// opening call returns.
type Dialogs interface {
	Confirm(req ConfirmRequest, onClose func(Button)) Handle
	Edit(req EditRequest, onClose func(EditResult)) Handle
	Select(req SelectRequest, onClose func(SelectResult)) Handle
	Error(title string, err error)
}

// ErrorMessage is an error shown to the user.
type ErrorMessage struct {
	Title   string
	Message string
}

type noopHandle struct{}

func (noopHandle) Close() {}
