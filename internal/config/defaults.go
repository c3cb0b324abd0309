package config

// Remote backends.
const (
	BackendS3    = "s3"
	BackendMinio = "minio"
	BackendLocal = "local"
)

const (
	defaultConfigPath    = "~/.config/clustersync/config.toml"
	defaultDatasetDir    = "~/clustersync/datasets"
	defaultResultsDir    = "~/clustersync/results"
	defaultMetadataFile  = "~/clustersync/metadata/CellClusterTable.tsv"
	defaultStateDir      = "~/.local/share/clustersync"
	defaultLogDir        = "~/.local/share/clustersync/logs"
	defaultOutputFolder  = "igvf"
	defaultThreshold     = 0.5
	defaultSpecies       = "Human"
	defaultMinFragments  = 1_000_000
	defaultPoolSize      = 20
	defaultBackend       = BackendLocal
	defaultRegion        = "us-east-1"
	defaultLocalRoot     = "~/.local/share/clustersync/remote"
	defaultProject       = "predictions"
	defaultCatalogName   = "DatasetSummary.tsv"
	defaultCodeURL       = "https://github.com/EngreitzLab/e2g_pipeline"
	defaultContact       = "Jesse Engreitz (engreitz@stanford.edu)"
	defaultGenome        = "GRCh38"
	defaultBiosampleFile = "~/clustersync/config/biosamples.tsv"
	defaultHiCDir        = "/oak/stanford/groups/engreitz/Projects/ABC/HiC/avg_track2"
	defaultHiCType       = "avg"
	defaultHiCGamma      = 1.024238616787792
	defaultHiCScale      = 5.9594510043736655
	defaultHiCResolution = 5000
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DatasetDir:   defaultDatasetDir,
			ResultsDir:   defaultResultsDir,
			MetadataFile: defaultMetadataFile,
			StateDir:     defaultStateDir,
			LogDir:       defaultLogDir,
		},
		Convert: Convert{
			OutputFolder: defaultOutputFolder,
			Threshold:    defaultThreshold,
		},
		Selection: Selection{
			Species:      defaultSpecies,
			MinFragments: defaultMinFragments,
		},
		Workers: Workers{
			PoolSize: defaultPoolSize,
		},
		Remote: Remote{
			Backend:   defaultBackend,
			Region:    defaultRegion,
			UseSSL:    true,
			LocalRoot: defaultLocalRoot,
			Project:   defaultProject,
		},
		Catalog: Catalog{
			Name: defaultCatalogName,
		},
		Provenance: Provenance{
			CodeURL: defaultCodeURL,
			Contact: defaultContact,
			Genome:  defaultGenome,
		},
		Biosamples: Biosamples{
			Output:        defaultBiosampleFile,
			HiCDir:        defaultHiCDir,
			HiCType:       defaultHiCType,
			HiCGamma:      defaultHiCGamma,
			HiCScale:      defaultHiCScale,
			HiCResolution: defaultHiCResolution,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
