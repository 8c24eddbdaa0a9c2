package bookshelf

// Entity is the data a card displays. Which fields are used depends on the
// card variant.
type Entity struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Subtitle  string  `json:"subtitle,omitempty"`
	Author    string  `json:"author,omitempty"`
	CoverPath string  `json:"coverPath,omitempty"`
	Sequence  string  `json:"sequence,omitempty"`
	NumBooks  int     `json:"numBooks,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
}

// EntitySource resolves the entity shown at a logical index.
type EntitySource interface {
	Entity(index int) (Entity, bool)
}

// EntitySlice is an in-memory EntitySource.
type EntitySlice []Entity

func (s EntitySlice) Entity(index int) (Entity, bool) {
	if index < 0 || index >= len(s) {
		return Entity{}, false
	}
	return s[index], true
}

// SelectionSource reports the selection state of the owning view.
type SelectionSource interface {
	Selection() SelectionState
}

// SelectionFunc adapts a function to SelectionSource.
type SelectionFunc func() SelectionState

func (f SelectionFunc) Selection() SelectionState { return f() }

// Callbacks receive card interactions. Either field may be nil.
type Callbacks struct {
	Edit   func(Entity)
	Select func(entity Entity, shiftKey bool)
}
