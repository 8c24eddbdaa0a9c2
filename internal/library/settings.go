package library

import (
	"fmt"
	"slices"
	"strings"

	"github.com/robfig/cron/v3"
)

// CoverAspectRatio selects the cover shape a library renders.
type CoverAspectRatio int

const (
	CoverStandard CoverAspectRatio = 0
	CoverSquare   CoverAspectRatio = 1
)

// Ratio returns the height/width factor used by the bookshelf.
func (c CoverAspectRatio) Ratio() float64 {
	if c == CoverSquare {
		return 1
	}
	return 1.6
}

// DefaultMetadataPrecedence orders metadata sources from lowest to highest
// priority.
var DefaultMetadataPrecedence = []string{"folderStructure", "audioMetatags", "nfoFile", "txtFiles", "opfFile", "absMetadata"}

// LibrarySettings holds the per-library behaviour switches.
type LibrarySettings struct {
	CoverAspectRatio          CoverAspectRatio `json:"coverAspectRatio"`
	DisableWatcher            bool             `json:"disableWatcher"`
	SkipMatchingMediaWithASIN bool             `json:"skipMatchingMediaWithAsin"`
	SkipMatchingMediaWithISBN bool             `json:"skipMatchingMediaWithIsbn"`
	AutoScanCronExpression    *string          `json:"autoScanCronExpression"`
	AudiobooksOnly            bool             `json:"audiobooksOnly"`
	HideSingleBookSeries      bool             `json:"hideSingleBookSeries"`
	MetadataPrecedence        []string         `json:"metadataPrecedence"`
}

type LibrarySettingsPatch struct {
	CoverAspectRatio          *CoverAspectRatio `json:"coverAspectRatio"`
	DisableWatcher            *bool             `json:"disableWatcher"`
	SkipMatchingMediaWithASIN *bool             `json:"skipMatchingMediaWithAsin"`
	SkipMatchingMediaWithISBN *bool             `json:"skipMatchingMediaWithIsbn"`
	AutoScanCronExpression    Optional[string]  `json:"autoScanCronExpression"`
	AudiobooksOnly            *bool             `json:"audiobooksOnly"`
	HideSingleBookSeries      *bool             `json:"hideSingleBookSeries"`
	MetadataPrecedence        []string          `json:"metadataPrecedence"`
}

func DefaultLibrarySettings() LibrarySettings {
	return LibrarySettings{
		CoverAspectRatio:   CoverSquare,
		MetadataPrecedence: slices.Clone(DefaultMetadataPrecedence),
	}
}

// Normalize fills defaults for settings decoded from older rows.
func (s *LibrarySettings) Normalize() {
	if s.CoverAspectRatio != CoverStandard && s.CoverAspectRatio != CoverSquare {
		s.CoverAspectRatio = CoverSquare
	}
	if s.AutoScanCronExpression != nil && strings.TrimSpace(*s.AutoScanCronExpression) == "" {
		s.AutoScanCronExpression = nil
	}
	if len(s.MetadataPrecedence) == 0 {
		s.MetadataPrecedence = slices.Clone(DefaultMetadataPrecedence)
	}
}

// Update applies patch and reports whether anything changed. An empty or
// missing metadata precedence list is ignored.
func (s *LibrarySettings) Update(patch LibrarySettingsPatch) bool {
	changed := false
	if patch.CoverAspectRatio != nil && *patch.CoverAspectRatio != s.CoverAspectRatio {
		s.CoverAspectRatio = *patch.CoverAspectRatio
		changed = true
	}
	changed = setBool(&s.DisableWatcher, patch.DisableWatcher) || changed
	changed = setBool(&s.SkipMatchingMediaWithASIN, patch.SkipMatchingMediaWithASIN) || changed
	changed = setBool(&s.SkipMatchingMediaWithISBN, patch.SkipMatchingMediaWithISBN) || changed
	changed = setBool(&s.AudiobooksOnly, patch.AudiobooksOnly) || changed
	changed = setBool(&s.HideSingleBookSeries, patch.HideSingleBookSeries) || changed
	if differs(patch.AutoScanCronExpression, s.AutoScanCronExpression) {
		s.AutoScanCronExpression = clonePtr(patch.AutoScanCronExpression.Value)
		changed = true
	}
	if len(patch.MetadataPrecedence) > 0 && !slices.Equal(patch.MetadataPrecedence, s.MetadataPrecedence) {
		s.MetadataPrecedence = slices.Clone(patch.MetadataPrecedence)
		changed = true
	}
	return changed
}

// Validate checks the auto-scan schedule parses as a standard five-field
// cron expression.
func (s *LibrarySettings) Validate() error {
	if s.AutoScanCronExpression == nil {
		return nil
	}
	if _, err := cron.ParseStandard(*s.AutoScanCronExpression); err != nil {
		return fmt.Errorf("autoScanCronExpression %q: %w", *s.AutoScanCronExpression, err)
	}
	return nil
}

func setBool(dst *bool, v *bool) bool {
	if v == nil || *v == *dst {
		return false
	}
	*dst = *v
	return true
}
