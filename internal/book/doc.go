// Package book turns the page texts of a PDF into chapters and the chapters
// into speakable chunks. It also owns the naming of generated audio files.
package book
