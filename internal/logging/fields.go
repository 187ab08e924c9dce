package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries the next step a user should take.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldRunID ties every line of one run together.
	FieldRunID = "run_id"
	FieldPass  = "pass"
	FieldPath  = "path"
	// FieldAlbumKey is the canonical album container name.
	FieldAlbumKey = "album_key"
)
