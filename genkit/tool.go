package genkit

// Tool turns loaded packages into generated files.
type Tool interface {
	// Name is the annotation prefix, "zodgen" in zodgen:@schema.
	Name() string

	// Run registers output files on gen and logs its own progress.
	Run(gen *Generator, log *Logger) error
}

// ValidatableTool can check the loaded packages without generating,
// which is what --dry-run reports.
type ValidatableTool interface {
	Tool

	Validate(gen *Generator, log *Logger) []Diagnostic
}
