package keywords

import (
	"fmt"
	"strings"

	"github.com/go-ego/gse"

	"github.com/bobmcallan/twpulse/internal/common"
)

// embeddedDictionary names gse's compiled-in simplified plus traditional
// Chinese dictionary.
const embeddedDictionary = "zh"

// GseSegmenter segments Chinese text with a gse dictionary and HMM for
// out-of-vocabulary words
type GseSegmenter struct {
	seg gse.Segmenter
}

// NewGseSegmenter loads the dictionary compiled into the binary, or the
// dictionary files in spec (comma separated, gse syntax) when non-empty.
// Only a configured spec is read from disk.
func NewGseSegmenter(spec string, logger *common.Logger) (*GseSegmenter, error) {
	g := &GseSegmenter{}
	g.seg.SkipLog = true

	source := embeddedDictionary
	var err error
	if s := strings.TrimSpace(spec); s != "" {
		source = s
		err = g.seg.LoadDict(s)
	} else {
		err = g.seg.LoadDictEmbed(embeddedDictionary)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load segmenter dictionary %q: %w", source, err)
	}

	logger.Debug().Str("dictionary", source).Msg("Segmenter dictionary loaded")
	return g, nil
}

// Cut splits text into words
func (g *GseSegmenter) Cut(text string) []string {
	return g.seg.Cut(text, true)
}

var _ Segmenter = (*GseSegmenter)(nil)
