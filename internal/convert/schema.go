package convert

import (
	"clustersync/internal/dataset"
)

// Injected columns present in every converted artifact.
const (
	ColumnClusterID     = "CellClusterID"
	ColumnBiosampleTerm = "BiosampleOntologyTerm"
	ColumnElementStrand = "Element:strand"
	unstrandedElement   = "*"
)

// peakColumns are the positional columns of a headerless narrowPeak file.
var peakColumns = []string{
	"chr", "start", "end", "name", "score", "strand",
	"signalValue", "pValue", "qValue", "peak",
}

var elementNodeColumns = []string{
	"chr", "start", "end", "name", ColumnClusterID, ColumnBiosampleTerm,
}

var geneNodeColumns = []string{
	"Symbol", "EnsemblID", "TSS", ColumnClusterID, ColumnBiosampleTerm,
}

var edgeColumns = []string{
	"Element:chr", "Element:start", "Element:end", "Element:name", ColumnElementStrand,
	"Gene:Symbol", "Gene:EnsemblID", "Gene:TSS",
	"Score", ColumnClusterID, ColumnBiosampleTerm,
}

var geneRenames = map[string]string{
	"symbol":     "Symbol",
	"Ensembl_ID": "EnsemblID",
	"tss":        "TSS",
}

var edgeRenames = map[string]string{
	"chr":                  "Element:chr",
	"start":                "Element:start",
	"end":                  "Element:end",
	"name":                 "Element:name",
	"TargetGene":           "Gene:Symbol",
	"TargetGeneEnsembl_ID": "Gene:EnsemblID",
	"TargetGeneTSS":        "Gene:TSS",
	"ENCODE-E2G.Score":     "Score",
	"ABC.Score":            "Score.ABC",
}

// kindSchema describes how one artifact kind is converted.
type kindSchema struct {
	fileType    string
	description string
	headerless  []string
	renames     map[string]string
	canonical   []string
	directional bool
	compressed  bool
}

func schemaFor(kind dataset.Artifact, threshold float64) (kindSchema, bool) {
	switch kind {
	case dataset.Peaks:
		return kindSchema{
			fileType:    "Node:RegulatoryElement",
			description: "MACS2 narrow peaks",
			headerless:  peakColumns,
			canonical:   elementNodeColumns,
		}, true
	case dataset.EnhancerList:
		return kindSchema{
			fileType:    "Node:RegulatoryElement",
			description: "Candidate Enhancers",
			canonical:   elementNodeColumns,
		}, true
	case dataset.GeneList:
		return kindSchema{
			fileType:    "Node:Gene",
			description: "Accessibility read counts on gene bodies and gene promoter regions",
			renames:     geneRenames,
			canonical:   geneNodeColumns,
		}, true
	case dataset.Predictions:
		return kindSchema{
			fileType:    "Edge:RegulatoryElementToGene",
			description: "ENCODE-rE2G predictions",
			renames:     edgeRenames,
			canonical:   edgeColumns,
			directional: true,
			compressed:  true,
		}, true
	case dataset.PredictionsThresholded:
		return kindSchema{
			fileType:    "Edge:RegulatoryElementToGene",
			description: "ENCODE-rE2G predictions with scores >= " + dataset.FormatThreshold(threshold),
			renames:     edgeRenames,
			canonical:   edgeColumns,
			directional: true,
			compressed:  true,
		}, true
	default:
		return kindSchema{}, false
	}
}

// injected returns the constant cells added to every row of the kind.
func (s kindSchema) injected(clusterID string) map[string]string {
	cells := map[string]string{
		ColumnClusterID:     clusterID,
		ColumnBiosampleTerm: "",
	}
	if s.directional {
		cells[ColumnElementStrand] = unstrandedElement
	}
	return cells
}
