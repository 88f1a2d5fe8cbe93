package dialog

import (
	"log/slog"
	"path"
	"slices"
	"sync"
)

var _ Dialogs = (*Script)(nil)

// Answer is a scripted reply.
type Answer struct {
	Kind    Kind
	Button  Button
	Changes map[string]any
	Choice  int
	Action  Action
}

func Press(button Button) Answer { return Answer{Kind: KindConfirm, Button: button} }

func Save(changes map[string]any) Answer {
	return Answer{Kind: KindEdit, Action: ActionSaved, Changes: changes}
}

func Choose(index int) Answer { return Answer{Kind: KindSelect, Action: ActionSelected, Choice: index} }

// Dismiss closes whatever prompt it is matched against.
func Dismiss() Answer { return Answer{Action: ActionDismissed} }

// Skip skips an edit or select prompt, or presses ButtonSkip on a confirm.
func Skip() Answer { return Answer{Action: ActionSkipped} }

type rule struct {
	pattern string
	answer  Answer
}

// Script answers prompts immediately by title, for unattended runs. Titles
// are matched with path.Match patterns in the order rules were added.
// Prompts without a rule go to the fallback, or are dismissed when there is
// none.
type Script struct {
	mu       sync.Mutex
	rules    []rule
	fallback Dialogs
	logger   *slog.Logger
	errors   []ErrorMessage
	asked    []string
}

func NewScript(logger *slog.Logger) *Script {
	if logger == nil {
		logger = slog.Default()
	}

	return &Script{logger: logger}
}

func (s *Script) On(title string, answer Answer) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rules = append(s.rules, rule{pattern: title, answer: answer})

	return s
}

func (s *Script) WithFallback(fallback Dialogs) *Script {
	s.fallback = fallback

	return s
}

func (s *Script) lookup(title string) (Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.asked = append(s.asked, title)
	for _, r := range s.rules {
		if ok, _ := path.Match(r.pattern, title); ok || r.pattern == title {
			return r.answer, true
		}
	}

	return Answer{}, false
}

// Asked returns the titles of all prompts opened so far.
func (s *Script) Asked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.asked)
}

func (s *Script) Errors() []ErrorMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.errors)
}

func (s *Script) Confirm(req ConfirmRequest, onClose func(Button)) Handle {
	answer, ok := s.lookup(req.Title)
	if !ok && s.fallback != nil {
		return s.fallback.Confirm(req, onClose)
	}

	button := ButtonCancel
	switch {
	case answer.Action == ActionSkipped:
		button = ButtonSkip
	case answer.Kind == KindConfirm:
		button = answer.Button
	}
	s.logger.Debug("[clinicflow] scripted confirm", "title", req.Title, "button", button)
	onClose(button)

	return noopHandle{}
}

func (s *Script) Edit(req EditRequest, onClose func(EditResult)) Handle {
	answer, ok := s.lookup(req.Title)
	if !ok && s.fallback != nil {
		return s.fallback.Edit(req, onClose)
	}

	result := EditResult{Action: ActionDismissed}
	switch {
	case answer.Action == ActionSkipped && req.Skippable:
		result.Action = ActionSkipped
	case answer.Kind == KindEdit:
		result = EditResult{Action: ActionSaved, Changes: answer.Changes}
	}
	s.logger.Debug("[clinicflow] scripted edit", "title", req.Title, "action", result.Action)
	onClose(result)

	return noopHandle{}
}

func (s *Script) Select(req SelectRequest, onClose func(SelectResult)) Handle {
	answer, ok := s.lookup(req.Title)
	if !ok && s.fallback != nil {
		return s.fallback.Select(req, onClose)
	}

	result := SelectResult{Action: ActionDismissed}
	switch {
	case answer.Action == ActionSkipped && req.Skippable:
		result.Action = ActionSkipped
	case answer.Kind == KindSelect && answer.Choice >= 0 && answer.Choice < len(req.Options):
		result = SelectResult{Action: ActionSelected, Selected: req.Options[answer.Choice]}
	}
	s.logger.Debug("[clinicflow] scripted select", "title", req.Title, "action", result.Action)
	onClose(result)

	return noopHandle{}
}

func (s *Script) Error(title string, err error) {
	s.mu.Lock()
	s.errors = append(s.errors, ErrorMessage{Title: title, Message: err.Error()})
	s.mu.Unlock()

	s.logger.Error("[clinicflow] "+title, "error", err)
	if s.fallback != nil {
		s.fallback.Error(title, err)
	}
}
