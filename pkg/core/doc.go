// Package core defines the shared language of the leapviz system.
//
// This package contains:
//   - Dataset schema types (Schema, SemanticType)
//   - Chart vocabulary (Preset, Role, FieldSelection, ResolvedSpec)
//   - Backend payloads (Figure, VisualizationResult, Interpretation)
//   - Query modes (NaturalLanguage, Structured)
//   - Display inputs (DisplayPreferences, ViewportClass)
//   - The error taxonomy shared by the pipeline
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
