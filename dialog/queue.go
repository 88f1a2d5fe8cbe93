package dialog

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/rom8726/clinicflow/archetype"
)

var (
	ErrNoSuchPrompt = errors.New("no such prompt")
	ErrInvalidReply = errors.New("invalid reply")
)

var _ Dialogs = (*Queue)(nil)

// Prompt is an open prompt waiting for a reply.
type Prompt struct {
	ID      string
	Kind    Kind
	Title   string
	Message string
	Buttons []Button
	// Object is the editor's copy for KindEdit prompts.
	Object    *archetype.IMObject
	Options   []*archetype.IMObject
	Skippable bool
	OpenedAt  time.Time
}

type pending struct {
	prompt   Prompt
	onButton func(Button)
	onEdit   func(EditResult)
	onSelect func(SelectResult)
}

// Queue keeps open prompts until an event loop replies to them. Replies run
// the task callback on the replying goroutine.
type Queue struct {
	mu      sync.Mutex
	clock   clock.Clock
	order   []string
	prompts map[string]*pending
	errors  []ErrorMessage
}

func NewQueue(clk clock.Clock) *Queue {
	if clk == nil {
		clk = clock.New()
	}

	return &Queue{
		clock:   clk,
		prompts: make(map[string]*pending),
	}
}

func (q *Queue) Confirm(req ConfirmRequest, onClose func(Button)) Handle {
	buttons := req.Buttons
	if len(buttons) == 0 {
		buttons = OKCancel
	}

	return q.open(&pending{
		prompt: Prompt{
			Kind:    KindConfirm,
			Title:   req.Title,
			Message: req.Message,
			Buttons: slices.Clone(buttons),
		},
		onButton: onClose,
	})
}

func (q *Queue) Edit(req EditRequest, onClose func(EditResult)) Handle {
	return q.open(&pending{
		prompt: Prompt{
			Kind:      KindEdit,
			Title:     req.Title,
			Object:    req.Object,
			Skippable: req.Skippable,
		},
		onEdit: onClose,
	})
}

func (q *Queue) Select(req SelectRequest, onClose func(SelectResult)) Handle {
	return q.open(&pending{
		prompt: Prompt{
			Kind:      KindSelect,
			Title:     req.Title,
			Options:   slices.Clone(req.Options),
			Skippable: req.Skippable,
		},
		onSelect: onClose,
	})
}

func (q *Queue) Error(title string, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.errors = append(q.errors, ErrorMessage{Title: title, Message: err.Error()})
}

func (q *Queue) open(p *pending) Handle {
	q.mu.Lock()
	defer q.mu.Unlock()

	p.prompt.ID = uuid.NewString()
	p.prompt.OpenedAt = q.clock.Now()
	q.prompts[p.prompt.ID] = p
	q.order = append(q.order, p.prompt.ID)

	return &queueHandle{queue: q, id: p.prompt.ID}
}

// take removes and returns the prompt if it has the expected kind and the
// reply passes check.
func (q *Queue) take(id string, kind Kind, check func(p *pending) error) (*pending, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	p, ok := q.prompts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchPrompt, id)
	}
	if p.prompt.Kind != kind {
		return nil, fmt.Errorf("%w: prompt %s is a %s prompt", ErrInvalidReply, id, p.prompt.Kind)
	}
	if check != nil {
		if err := check(p); err != nil {
			return nil, err
		}
	}
	q.remove(id)

	return p, nil
}

func (q *Queue) remove(id string) {
	delete(q.prompts, id)
	q.order = slices.DeleteFunc(q.order, func(other string) bool { return other == id })
}

// Pending returns the open prompts, oldest first.
func (q *Queue) Pending() []Prompt {
	q.mu.Lock()
	defer q.mu.Unlock()

	prompts := make([]Prompt, 0, len(q.order))
	for _, id := range q.order {
		prompts = append(prompts, q.prompts[id].prompt)
	}

	return prompts
}

// Next returns the oldest open prompt.
func (q *Queue) Next() (Prompt, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.order) == 0 {
		return Prompt{}, false
	}

	return q.prompts[q.order[0]].prompt, true
}

// Errors returns the errors shown so far.
func (q *Queue) Errors() []ErrorMessage {
	q.mu.Lock()
	defer q.mu.Unlock()

	return slices.Clone(q.errors)
}

// Press answers a confirm prompt.
func (q *Queue) Press(id string, button Button) error {
	p, err := q.take(id, KindConfirm, func(p *pending) error {
		if !slices.Contains(p.prompt.Buttons, button) {
			return fmt.Errorf("%w: prompt %s has no %q button", ErrInvalidReply, id, button)
		}

		return nil
	})
	if err != nil {
		return err
	}
	p.onButton(button)

	return nil
}

// SaveEdit closes an edit prompt with the changed node values.
func (q *Queue) SaveEdit(id string, changes map[string]any) error {
	p, err := q.take(id, KindEdit, nil)
	if err != nil {
		return err
	}
	p.onEdit(EditResult{Action: ActionSaved, Changes: changes})

	return nil
}

// Choose closes a select prompt with the option at index.
func (q *Queue) Choose(id string, index int) error {
	p, err := q.take(id, KindSelect, func(p *pending) error {
		if index < 0 || index >= len(p.prompt.Options) {
			return fmt.Errorf("%w: option %d out of range", ErrInvalidReply, index)
		}

		return nil
	})
	if err != nil {
		return err
	}
	p.onSelect(SelectResult{Action: ActionSelected, Selected: p.prompt.Options[index]})

	return nil
}

// Skip closes a skippable edit or select prompt. Confirm prompts are
// skipped by pressing ButtonSkip.
func (q *Queue) Skip(id string) error {
	q.mu.Lock()
	p, ok := q.prompts[id]
	if !ok {
		q.mu.Unlock()

		return fmt.Errorf("%w: %s", ErrNoSuchPrompt, id)
	}
	if !p.prompt.Skippable || p.prompt.Kind == KindConfirm {
		q.mu.Unlock()

		return fmt.Errorf("%w: prompt %s cannot be skipped", ErrInvalidReply, id)
	}
	q.remove(id)
	q.mu.Unlock()

	switch p.prompt.Kind {
	case KindEdit:
		p.onEdit(EditResult{Action: ActionSkipped})
	case KindSelect:
		p.onSelect(SelectResult{Action: ActionSkipped})
	}

	return nil
}

// Dismiss closes any prompt the way closing its window would. Confirm
// prompts report ButtonCancel.
func (q *Queue) Dismiss(id string) error {
	q.mu.Lock()
	p, ok := q.prompts[id]
	if !ok {
		q.mu.Unlock()

		return fmt.Errorf("%w: %s", ErrNoSuchPrompt, id)
	}
	q.remove(id)
	q.mu.Unlock()

	switch p.prompt.Kind {
	case KindConfirm:
		p.onButton(ButtonCancel)
	case KindEdit:
		p.onEdit(EditResult{Action: ActionDismissed})
	case KindSelect:
		p.onSelect(SelectResult{Action: ActionDismissed})
	}

	return nil
}

type queueHandle struct {
	queue *Queue
	id    string
}

func (h *queueHandle) Close() {
	h.queue.mu.Lock()
	defer h.queue.mu.Unlock()

	h.queue.remove(h.id)
}
