package model

// Program is a single relative-or-absolute path to the executable to
// launch. It receives no normalization beyond being the literal
// source-of-truth string (spec.md §3).
type Program string

// Arguments is the ordered sequence of argument strings passed to the
// program. Order is significant and preserved exactly.
type Arguments []string

// TaskInputs is the canonical description of everything that
// determines a task's fingerprint (spec.md §3): its environment,
// program, arguments, resolved input files with identities, and
// outputs description. Its serialized form is the fingerprint source.
type TaskInputs struct {
	EnvVars    EnvVars                `json:"env_vars"`
	Program    Program                `json:"program"`
	Arguments  Arguments              `json:"arguments"`
	InputFiles FileIdentitiesManifest `json:"input_files"`
	Outputs    OutputsDescription     `json:"outputs"`
}

// TaskOutputs is the canonical record of a completed execution
// (spec.md §3): every input that participated (including the program
// path itself, distinguishing execution-time inputs from user-declared
// ones) and every produced output file, each with its identity. Scheme
// records the identity scheme used to compute every identity this
// value contains, independent of the tag each nested File-Identities
// Manifest already carries, so a pointer dereferenced after a scheme
// change is caught as an integrity error before any nested comparison
// even runs (SPEC_FULL.md §3).
type TaskOutputs struct {
	Scheme            string                 `json:"scheme"`
	InputsWithProgram FileIdentitiesManifest `json:"inputs_with_program"`
	OutputFiles       FileIdentitiesManifest `json:"output_files"`
}
