package constants

// DefaultEnvPath is the default path to the .env file
const DefaultEnvPath = "./.env"

// DefaultConfigPath is the default path to the config.toml file.
// A missing file at this path means "use defaults"; an explicit --config must exist.
const DefaultConfigPath = "~/.chronos/config.toml"

// DefaultExportFile is used by `chronos export` when no file is given.
const DefaultExportFile = "chronos-jobs.yaml"

// DefaultScheduleRuns is how many activations `chronos schedule check` prints.
const DefaultScheduleRuns = 5

// TimeLayout is how the CLI prints next-run times.
const TimeLayout = "2006-01-02 15:04 MST"
