package dataset

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// Artifact is one of the per-cluster files produced by the analysis pipeline
// and republished in canonical form.
type Artifact int

const (
	Peaks Artifact = iota
	EnhancerList
	GeneList
	Predictions
	PredictionsThresholded
)

const (
	peaksInput       = "Peaks/macs2_peaks.narrowPeak.sorted"
	enhancerInput    = "Neighborhoods/EnhancerList.txt"
	geneInput        = "Neighborhoods/GeneList.txt"
	predictionsInput = "encode_e2g_predictions.tsv.gz"
	thresholdedInput = "encode_e2g_predictions_threshold%s.tsv.gz"
)

// Artifacts lists every artifact in publication order.
func Artifacts() []Artifact {
	return []Artifact{Peaks, EnhancerList, GeneList, Predictions, PredictionsThresholded}
}

// ParseArtifact resolves the String form of an artifact.
func ParseArtifact(value string) (Artifact, error) {
	for _, a := range Artifacts() {
		if a.String() == strings.ToLower(strings.TrimSpace(value)) {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown artifact %q", value)
}

func (a Artifact) String() string {
	switch a {
	case Peaks:
		return "peaks"
	case EnhancerList:
		return "enhancer_list"
	case GeneList:
		return "gene_list"
	case Predictions:
		return "predictions"
	case PredictionsThresholded:
		return "predictions_thresholded"
	default:
		return fmt.Sprintf("artifact(%d)", int(a))
	}
}

// IsEdge reports whether the artifact holds element-to-gene edges.
func (a Artifact) IsEdge() bool {
	return a == Predictions || a == PredictionsThresholded
}

// CatalogColumn is the catalog column holding the uploaded object id.
func (a Artifact) CatalogColumn() string {
	switch a {
	case Peaks:
		return "PeaksMACS2"
	case EnhancerList:
		return "EnhancerList"
	case GeneList:
		return "GeneList"
	case Predictions:
		return "ENCODE-rE2G"
	case PredictionsThresholded:
		return "ENCODE-rE2G_Thresholded"
	default:
		return ""
	}
}

// InputPath is the slash-separated location of the raw file inside a
// cluster's results directory.
func (a Artifact) InputPath(threshold float64) string {
	switch a {
	case Peaks:
		return peaksInput
	case EnhancerList:
		return enhancerInput
	case GeneList:
		return geneInput
	case Predictions:
		return predictionsInput
	case PredictionsThresholded:
		return fmt.Sprintf(thresholdedInput, FormatThreshold(threshold))
	default:
		return ""
	}
}

// FileName is the name the converted artifact is written and uploaded under.
func (a Artifact) FileName(threshold float64) string {
	return path.Base(a.InputPath(threshold))
}

// FormatThreshold renders a threshold the way the analysis pipeline names its
// thresholded files: shortest decimal form with at least one fractional
// digit, so 1 becomes "1.0" and 0.5 stays "0.5".
func FormatThreshold(threshold float64) string {
	s := strconv.FormatFloat(threshold, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
