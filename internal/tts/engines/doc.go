// Package engines contains the speech backends: edge-tts, gTTS, Piper
// (offline), Amazon Polly, Google Cloud TTS and a tone generator for tests.
// Each one implements the Engine interface from the parent package.
package engines
