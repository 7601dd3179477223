package core

// QueryMode is the request a chart builder sends: either a natural-language
// prompt or a structured preset selection, never both.
// The interface is sealed; NaturalLanguage and Structured are its only variants.
type QueryMode interface {
	queryMode()
}

// NaturalLanguage asks the backend to interpret a free-text prompt.
type NaturalLanguage struct {
	Prompt string
}

// Structured asks the backend to draw a preset from resolved fields.
type Structured struct {
	Preset    Preset
	Selection FieldSelection
}

func (NaturalLanguage) queryMode() {}
func (Structured) queryMode()      {}
