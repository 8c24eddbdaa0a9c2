package bookshelf

import "sync"

// SelectionState is the multi-select state of a bookshelf view.
type SelectionState struct {
	Enabled     bool
	SelectedIDs map[string]struct{}
	SelectAll   bool
}

// NewSelection builds a selection state from a list of ids.
func NewSelection(enabled, selectAll bool, ids ...string) SelectionState {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return SelectionState{Enabled: enabled, SelectedIDs: set, SelectAll: selectAll}
}

func (s SelectionState) contains(id string) bool {
	if id == "" {
		return false
	}
	_, ok := s.SelectedIDs[id]
	return ok
}

// CardHandle is the pool's record of a created card.
type CardHandle struct {
	Index   int
	Variant Variant
	Card    Card
	Node    *Node

	mu       sync.Mutex
	selected bool
	hovering bool
}

func newCardHandle(index int, card Card, node *Node) *CardHandle {
	return &CardHandle{Index: index, Variant: card.Variant(), Card: card, Node: node}
}

func (h *CardHandle) Selected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.selected
}

func (h *CardHandle) Hovering() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hovering
}

func (h *CardHandle) SetHovering(on bool) {
	h.mu.Lock()
	h.hovering = on
	h.mu.Unlock()
	h.Node.SetClass("hovering", on)
}

func (h *CardHandle) SelectionMode() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Card.SelectionMode()
}

func (h *CardHandle) setSelected(on bool) {
	h.selected = on
	h.Node.SetClass("selected", on)
}

// Sync applies the view's selection state to a card. With selection
// disabled only the mode is switched off and the selected flag is left as
// it was. With selection enabled the card is selected when its entity id is
// in the selected set or when everything is selected.
func Sync(h *CardHandle, state SelectionState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !state.Enabled {
		h.Card.SetSelectionMode(false)
		return
	}
	h.Card.SetSelectionMode(true)
	h.setSelected(state.contains(h.Card.EntityID()) || state.SelectAll)
}
