package registry

import "github.com/awaazlabs/awaaz/internal/speech/engine"

// ASR is the global transcription backend registry.
var ASR = New[engine.ASREngine]()
