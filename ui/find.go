package ui

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/muesli/gitcha"
)

var pdfPatterns = []string{"*.pdf", "*.PDF"}

// FindPDFs returns the PDF files below dir, honoring .gitignore rules
// unless all is set.
func FindPDFs(dir string, all bool) ([]string, error) {
	var (
		ch  chan gitcha.SearchResult
		err error
	)
	if all {
		ch, err = gitcha.FindAllFilesExcept(dir, pdfPatterns, nil)
	} else {
		ch, err = gitcha.FindFilesExcept(dir, pdfPatterns, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("error finding PDF files: %w", err)
	}

	var found []string
	for res := range ch {
		found = append(found, res.Path)
	}
	sort.Strings(found)

	log.Debug("PDF search finished", "dir", dir, "found", len(found))
	return found, nil
}
