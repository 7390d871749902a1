// Package audio joins, levels and exports synthesized speech, and plays
// finished files on the local sound device. Editing goes through godub,
// which drives ffmpeg; playback decodes to PCM with ffmpeg and streams it
// through oto.
package audio
