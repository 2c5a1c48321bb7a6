package registry

import "github.com/awaazlabs/awaaz/internal/speech/engine"

// TTS is the global synthesis backend registry.
var TTS = New[engine.TTSEngine]()
