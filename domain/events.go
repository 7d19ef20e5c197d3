package domain

// EventType represents the type of domain event
type EventType string

// Event types
const (
	EventInitStarted   EventType = "InitStarted"
	EventInitSucceeded EventType = "InitSucceeded"
	EventInitFailed    EventType = "InitFailed"
	EventInitCanceled  EventType = "InitCanceled"

	EventAttributeLoadStarted   EventType = "AttributeLoadStarted"
	EventAttributeLoadSucceeded EventType = "AttributeLoadSucceeded"
	EventAttributeLoadFailed    EventType = "AttributeLoadFailed"
	EventAttributeLoadCanceled  EventType = "AttributeLoadCanceled"

	EventElementsLoadStarted   EventType = "ElementsLoadStarted"
	EventElementsLoadSucceeded EventType = "ElementsLoadSucceeded"
	EventElementsLoadFailed    EventType = "ElementsLoadFailed"
	EventElementsLoadCanceled  EventType = "ElementsLoadCanceled"

	EventSelectionChanged   EventType = "SelectionChanged"
	EventSelectionCommitted EventType = "SelectionCommitted"

	EventUpdated EventType = "Updated"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	Type() EventType
}

// InitStartedEvent is emitted when the top-level init workflow begins
type InitStartedEvent struct {
	Correlation Correlation
}

func (e InitStartedEvent) Type() EventType { return EventInitStarted }

// InitSucceededEvent is emitted when attribute, selection and first page are all loaded
type InitSucceededEvent struct {
	Correlation Correlation
}

func (e InitSucceededEvent) Type() EventType { return EventInitSucceeded }

// InitFailedEvent is emitted when any init step fails
type InitFailedEvent struct {
	Correlation Correlation
	Err         error
}

func (e InitFailedEvent) Type() EventType { return EventInitFailed }

// InitCanceledEvent is emitted when the init workflow is canceled
type InitCanceledEvent struct {
	Correlation Correlation
}

func (e InitCanceledEvent) Type() EventType { return EventInitCanceled }

// AttributeLoadStartedEvent is emitted when attribute metadata loading begins
type AttributeLoadStartedEvent struct {
	Correlation Correlation
}

func (e AttributeLoadStartedEvent) Type() EventType { return EventAttributeLoadStarted }

// AttributeLoadSucceededEvent carries the loaded attribute metadata
type AttributeLoadSucceededEvent struct {
	Correlation Correlation
	Attribute   AttributeMetadata
}

func (e AttributeLoadSucceededEvent) Type() EventType { return EventAttributeLoadSucceeded }

// AttributeLoadFailedEvent is emitted when attribute metadata could not be loaded
type AttributeLoadFailedEvent struct {
	Correlation Correlation
	Err         error
}

func (e AttributeLoadFailedEvent) Type() EventType { return EventAttributeLoadFailed }

// AttributeLoadCanceledEvent is emitted when an attribute load is canceled or superseded
type AttributeLoadCanceledEvent struct {
	Correlation Correlation
}

func (e AttributeLoadCanceledEvent) Type() EventType { return EventAttributeLoadCanceled }

// ElementsLoadStartedEvent is emitted when an elements load begins
type ElementsLoadStartedEvent struct {
	Kind        LoadKind
	Correlation Correlation
}

func (e ElementsLoadStartedEvent) Type() EventType { return EventElementsLoadStarted }

// ElementsLoadSucceededEvent carries one loaded page
type ElementsLoadSucceededEvent struct {
	Kind        LoadKind
	Correlation Correlation
	Page        ElementsPage
	Search      string
}

func (e ElementsLoadSucceededEvent) Type() EventType { return EventElementsLoadSucceeded }

// ElementsLoadFailedEvent is emitted when one elements load fails
type ElementsLoadFailedEvent struct {
	Kind        LoadKind
	Correlation Correlation
	Err         error
}

func (e ElementsLoadFailedEvent) Type() EventType { return EventElementsLoadFailed }

// ElementsLoadCanceledEvent is emitted when one elements load is canceled or superseded
type ElementsLoadCanceledEvent struct {
	Kind        LoadKind
	Correlation Correlation
}

func (e ElementsLoadCanceledEvent) Type() EventType { return EventElementsLoadCanceled }

// SelectionChangedEvent is emitted on every working selection mutation
type SelectionChangedEvent struct {
	Selection Selection
}

func (e SelectionChangedEvent) Type() EventType { return EventSelectionChanged }

// SelectionCommittedEvent is emitted when the working selection is committed
type SelectionCommittedEvent struct {
	Selection Selection
}

func (e SelectionCommittedEvent) Type() EventType { return EventSelectionCommitted }

// UpdatedEvent is emitted after every state change, after the specific event
type UpdatedEvent struct{}

func (e UpdatedEvent) Type() EventType { return EventUpdated }
