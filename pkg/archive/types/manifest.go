package types

// Runtime identifies the language runtime a model's handler executes in.
type Runtime string

const (
	RuntimePython  Runtime = "python"
	RuntimePython3 Runtime = "python3"
)

// Manifest is the metadata contract embedded in a model archive at
// MAR-INF/MANIFEST.json. Sections are pointers so that an absent section
// remains distinguishable from a present-but-empty one; validation depends
// on that distinction.
type Manifest struct {
	CreatedOn       string  `json:"createdOn,omitempty"`
	Description     string  `json:"description,omitempty"`
	ArchiverVersion string  `json:"archiverVersion,omitempty"`
	Runtime         Runtime `json:"runtime,omitempty"`
	Model           *Model  `json:"model,omitempty"`
	Engine          *Engine `json:"engine,omitempty"`
}

// Model describes the packaged model itself.
type Model struct {
	ModelName        string `json:"modelName,omitempty"`
	ModelVersion     string `json:"modelVersion,omitempty"`
	Description      string `json:"description,omitempty"`
	Handler          string `json:"handler,omitempty"`
	SerializedFile   string `json:"serializedFile,omitempty"`
	RequirementsFile string `json:"requirementsFile,omitempty"`
}

// Engine describes an optional execution engine the model requires.
type Engine struct {
	EngineName    string `json:"engineName,omitempty"`
	EngineVersion string `json:"engineVersion,omitempty"`
}
